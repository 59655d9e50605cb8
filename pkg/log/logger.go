package log

import (
	"fmt"
	"time"
)

// Logger is the structured logger every greenfinch component writes to.
// Entries carry a message and a flat list of fields; implementations decide
// how fields are rendered and which levels are kept.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key-value pair of a log entry. Value is one of the types
// produced by the constructors below; anything else is rendered as JSON by
// the zerolog adapter.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{key, value} }

func Int(key string, value int) Field { return Field{key, value} }

func Int64(key string, value int64) Field { return Field{key, value} }

func Bool(key string, value bool) Field { return Field{key, value} }

// Duration is written in milliseconds by the zerolog adapter.
func Duration(key string, value time.Duration) Field { return Field{key, value} }

// Stringer defers formatting of value until the entry is written, so a
// disabled level never calls String.
func Stringer(key string, value fmt.Stringer) Field { return Field{key, value} }

// Err records err under the "error" key. A nil err is written as null.
func Err(err error) Field {
	return Field{"error", err}
}

// Any records value as is. Prefer a typed constructor when one fits.
func Any(key string, value any) Field { return Field{key, value} }
