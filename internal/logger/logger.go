// Package logger provides the service's zerolog setup.
package logger

import (
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

// New returns a JSON logger on stdout tagged with serviceName and installs it
// as the package-global zerolog logger used by the HTTP helpers.
// Call sites should use .Stack() on error events to include stacks.
func New(serviceName string) zerolog.Logger {
	l := NewWithWriter(os.Stdout, serviceName)
	log.Logger = l
	return l
}

// NewWithWriter is New without touching the global logger.
func NewWithWriter(w io.Writer, serviceName string) zerolog.Logger {
	// pkg/errors stacks are marshalled when present; plain errors get one
	// attached at the logging call site.
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}

	return zerolog.New(w).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, falling back to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
