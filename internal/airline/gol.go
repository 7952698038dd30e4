package airline

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

const (
	golHeaderPrefix = "PNR;Bilhete;Data;Tarifa à Vista;"
	golFooterPrefix = "Total - A Vista / A Crédito"

	golSourceColumn = "FONTE"
	golTypeColumn   = "TIPO"
)

// golReportColumns are the report columns kept from the Gol header, in output order.
var golReportColumns = []string{
	"PNR",
	"Bilhete",
	"Data",
	"Tarifa à Vista",
	"Tarifa a Crédito",
	"Taxas à Vista",
	"Taxas a Crédito",
	"Comissão",
	"Incentivo",
	"Valor Líquido",
}

// golAliases maps folded header spellings seen in reports onto report columns.
var golAliases = map[string]string{
	"taxa a vista":   "Taxas à Vista",
	"taxa a credito": "Taxas a Crédito",
	"tarifa credito": "Tarifa a Crédito",
	"liquido":        "Valor Líquido",
	"valor liq.":     "Valor Líquido",
	"comissao":       "Comissão",
}

var golSchema = table.MustSchema(append(append([]string{golSourceColumn}, golReportColumns...), golTypeColumn)...)

// GolExtractor reads the ';'-separated settlement text report. Rows sit
// between the header line and the totals footer; bare text lines between
// rows name the sale type of the rows that follow.
type GolExtractor struct {
	columnsByKey map[string]string
}

func NewGolExtractor() *GolExtractor {
	byKey := make(map[string]string, len(golReportColumns)+len(golAliases))
	for _, c := range golReportColumns {
		byKey[foldHeader(c)] = c
	}
	for alias, c := range golAliases {
		byKey[alias] = c
	}
	return &GolExtractor{columnsByKey: byKey}
}

func (e *GolExtractor) Airline() Code         { return Gol }
func (e *GolExtractor) Name() string          { return "Gol" }
func (e *GolExtractor) Kind() decoder.Kind    { return decoder.KindText }
func (e *GolExtractor) Layout() bool          { return false }
func (e *GolExtractor) Schema() *table.Schema { return golSchema }

func (e *GolExtractor) Extract(content *decoder.Content) *table.Fragment {
	frag := table.NewFragment(content.Source, golSchema)

	var (
		capturing bool
		header    []string // report column per field position, "" when unknown
		saleType  string
	)

	for _, l := range content.Lines() {
		line := strings.TrimSpace(l.Text)

		if strings.HasPrefix(line, golFooterPrefix) {
			break
		}

		if !capturing {
			if strings.HasPrefix(line, golHeaderPrefix) {
				header = e.mapHeader(strings.Split(line, ";"))
				capturing = true
			}
			continue
		}

		if !strings.Contains(line, ";") {
			if line != "" {
				saleType = line
			}
			continue
		}

		fields := strings.Split(line, ";")
		if !validGolRow(fields) {
			continue
		}

		rec := table.NewRecord(golSchema)
		rec.MustSet(golSourceColumn, table.String(content.Source))
		for i, f := range fields {
			if i >= len(header) || header[i] == "" {
				continue
			}
			rec.MustSet(header[i], table.String(strings.TrimSpace(f)))
		}
		rec.MustSet(golTypeColumn, table.String(saleType))
		frag.Append(rec)
	}

	return frag
}

func (e *GolExtractor) mapHeader(fields []string) []string {
	out := make([]string, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		c, ok := e.columnsByKey[foldHeader(f)]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out[i] = c
	}
	return out
}

// validGolRow keeps rows with at least three fields, non-empty PNR, ticket
// and date, and at least one non-zero field.
func validGolRow(fields []string) bool {
	if len(fields) < 3 {
		return false
	}
	for _, f := range fields[:3] {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	for _, f := range fields {
		switch strings.TrimSpace(f) {
		case "", "0", "0,00":
		default:
			return true
		}
	}
	return false
}

// foldHeader lower-cases, strips accents and collapses spaces.
func foldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
