package airline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

func textContent(source string, lines ...string) *decoder.Content {
	return &decoder.Content{Source: source, Kind: decoder.KindText, Blocks: lines}
}

func pdfContent(source string, pages ...string) *decoder.Content {
	return &decoder.Content{Source: source, Kind: decoder.KindPDF, Blocks: pages}
}

func cell(t *testing.T, r table.Record, column string) table.Value {
	t.Helper()
	v, ok := r.Get(column)
	require.True(t, ok, "missing column %q", column)
	return v
}
