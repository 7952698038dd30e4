// Package airline contains the per-airline record extractors. Each one
// recognises its airline's report layout and maps matches onto a fixed schema.
package airline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

// Code is the IATA designator used to select an extractor.
type Code string

const (
	Gol   Code = "G3"
	Azul  Code = "AD"
	Latam Code = "JJ"
)

var ErrUnknownAirline = errors.New("unknown airline")

func ParseCode(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case Gol, Azul, Latam:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAirline, s)
}

// Extractor turns decoded content into a fragment. Lines that do not match
// the airline's record patterns are skipped, so Extract never fails; a
// document without matches yields an empty fragment.
type Extractor interface {
	Airline() Code
	Name() string
	// Kind is the document kind the extractor reads.
	Kind() decoder.Kind
	// Layout reports whether PDF pages should be decoded line by line from
	// text positions.
	Layout() bool
	Schema() *table.Schema
	Extract(content *decoder.Content) *table.Fragment
}

// All returns one instance of every built-in extractor.
func All() []Extractor {
	return []Extractor{
		NewGolExtractor(),
		NewAzulExtractor(),
		NewLatamExtractor(),
	}
}
