package log

// NoopLogger drops every entry. The zero value is ready to use and is what
// components fall back to when they are given a nil Logger.
type NoopLogger struct{}

var _ Logger = NoopLogger{}

// NewNoopLogger returns a NoopLogger.
func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}
