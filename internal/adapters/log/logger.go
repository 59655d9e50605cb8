// Package log builds the process logger from configuration.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/bft-labs/greenfinch/internal/ports"
	pkglog "github.com/bft-labs/greenfinch/pkg/log"
)

// FormatNone disables logging entirely.
const FormatNone = "none"

// Options selects the logger output.
type Options struct {
	// Format is "console", "json" or "none".
	Format string
	// Level is a zerolog level name such as "debug" or "warn".
	Level string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a zerolog-backed ports.Logger, or a no-op logger for FormatNone.
func New(opts Options) ports.Logger {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case FormatNone, "off":
		return pkglog.NewNoopLogger()
	case "":
		format = pkglog.FormatConsole
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return pkglog.NewZerologAdapterWithOptions(out, format, opts.Level)
}
