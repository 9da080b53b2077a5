// Package logging adapts zerolog to the small key/value Logger interface
// shared by pkg/client, pkg/host, and pkg/orchestrator, so all three
// binaries log through one structured sink.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Adapter wraps a zerolog.Logger to satisfy the Debug/Info/Warn/Error(msg
// string, args ...interface{}) shape each pkg/* Logger interface declares.
type Adapter struct {
	zl zerolog.Logger
}

// New builds an Adapter writing zerolog JSON lines to w (Console gives the
// human-readable form). debug raises the minimum level to Debug; otherwise
// Info is the floor.
func New(w io.Writer, component string, debug bool) *Adapter {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Str("component", component).Logger()
	return &Adapter{zl: zl}
}

// Console builds an Adapter with zerolog's human-friendly ConsoleWriter,
// the form cortex-avatar uses for interactive/CLI runs.
func Console(component string, debug bool) *Adapter {
	return New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}, component, debug)
}

func (a *Adapter) with(ev *zerolog.Event, msg string, args []interface{}) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}

func (a *Adapter) Debug(msg string, args ...interface{}) { a.with(a.zl.Debug(), msg, args) }
func (a *Adapter) Info(msg string, args ...interface{})  { a.with(a.zl.Info(), msg, args) }
func (a *Adapter) Warn(msg string, args ...interface{})  { a.with(a.zl.Warn(), msg, args) }
func (a *Adapter) Error(msg string, args ...interface{}) { a.with(a.zl.Error(), msg, args) }

// WithComponent returns an Adapter scoped to a sub-component, mirroring
// zerolog's .With().Str(...).Logger() chaining used throughout cortex-avatar.
func (a *Adapter) WithComponent(name string) *Adapter {
	return &Adapter{zl: a.zl.With().Str("subcomponent", name).Logger()}
}
