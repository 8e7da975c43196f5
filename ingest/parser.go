package ingest

import (
	"fmt"

	"idsrs/core"
)

// Parser is a pure, side-effect-free mapping from a raw log line to a
// normalized Event. Safe to call concurrently from any number of
// listener goroutines; implementations must not retain or mutate line.
type Parser interface {
	Name() string
	Parse(line string) (*core.Event, bool)
}

// ErrUnknownParser is returned by NewParser for an unrecognized name.
// Encountering it at startup is fatal.
type ErrUnknownParser struct {
	Name string
}

func (e *ErrUnknownParser) Error() string {
	return fmt.Sprintf("ingest: unknown parser %q (want %q or %q)", e.Name, "gaia", "cef")
}

// NewParser is the startup-time factory mapping a config string to a
// Parser instance.
func NewParser(name string) (Parser, error) {
	switch name {
	case "gaia":
		return &GaiaParser{}, nil
	case "cef":
		return &CEFParser{}, nil
	default:
		return nil, &ErrUnknownParser{Name: name}
	}
}
