package airline

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

// latamTicketPrefix is prepended to document numbers that carry no airline prefix.
const latamTicketPrefix = "957000"

var latamAmountColumns = []string{
	"Vl. Tarifa", "Vl.Tx.Emb.", "Vl.Multa",
	"Vl.Rep. Terc.", "Tx.Adm", "Vl.Comissão", "Vl.Incentivo",
	"Vl.Desc", "Vl.Item Fatura",
}

var latamSchema = table.MustSchema(append(append([]string{"Data", "Documento"}, latamAmountColumns...), "OBS", "Bilhete")...)

// Section titles and totals that share the row layout but are not sales.
var latamSkipMarkers = []string{
	"Venda Propria Matriz", "Ponto de Venda", "Pontos de Venda Matriz",
	"Total Tipo Item", "Total Ponto de Venda", "Total Pontos de Venda",
	"Total Fature", "Descrição", "Total Venda", "Total Fatura",
	"TAM LINHAS AEREAS", "DEMONSTRATIVO DE VENDAS",
}

var (
	latamItemType  = regexp.MustCompile(`(?i)Tipo Item:\s*(.+)`)
	latamRow       = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\s+(.+)`)
	latamDocument  = regexp.MustCompile(`^(\S+)\s+(.+)`)
	latamNumeric   = regexp.MustCompile(`^-?[\d,.]+$`)
	latamNonDigits = regexp.MustCompile(`\D`)
	latamNotAmount = regexp.MustCompile(`[^\d.\-]`)
)

// LatamExtractor reads the Latam sales statement. Each sale is a single
// layout line: date, document number, then the amount columns in order.
// "Tipo Item:" lines set the OBS value of the sales below them.
type LatamExtractor struct {
	skipMarkers []string
}

func NewLatamExtractor() *LatamExtractor {
	markers := make([]string, len(latamSkipMarkers))
	for i, m := range latamSkipMarkers {
		markers[i] = strings.ToUpper(m)
	}
	return &LatamExtractor{skipMarkers: markers}
}

func (e *LatamExtractor) Airline() Code         { return Latam }
func (e *LatamExtractor) Name() string          { return "Latam" }
func (e *LatamExtractor) Kind() decoder.Kind    { return decoder.KindPDF }
func (e *LatamExtractor) Layout() bool          { return true }
func (e *LatamExtractor) Schema() *table.Schema { return latamSchema }

func (e *LatamExtractor) Extract(content *decoder.Content) *table.Fragment {
	frag := table.NewFragment(content.Source, latamSchema)
	itemType := ""

	for _, l := range content.Lines() {
		line := strings.TrimSpace(l.Text)
		if line == "" || e.skip(line) {
			continue
		}

		if strings.Contains(line, "Tipo Item:") {
			if m := latamItemType.FindStringSubmatch(line); m != nil {
				itemType = strings.TrimSpace(m[1])
			}
			continue
		}

		m := latamRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		doc := latamDocument.FindStringSubmatch(m[2])
		if doc == nil {
			continue
		}

		frag.Append(e.record(m[1], doc[1], doc[2], itemType))
	}

	return frag
}

func (e *LatamExtractor) skip(line string) bool {
	up := strings.ToUpper(line)
	for _, m := range e.skipMarkers {
		if strings.Contains(up, m) {
			return true
		}
	}
	return false
}

func (e *LatamExtractor) record(date, document, rest, itemType string) table.Record {
	var amounts []string
	for _, p := range strings.Fields(rest) {
		p = strings.ReplaceAll(strings.ReplaceAll(p, "R$", ""), "BRL", "")
		if latamNumeric.MatchString(p) {
			amounts = append(amounts, p)
		}
	}

	rec := table.NewRecord(latamSchema)
	rec.MustSet("Data", dateValue(date))
	rec.MustSet("Documento", table.String(document))
	for i, c := range latamAmountColumns {
		v := decimal.Zero
		if i < len(amounts) {
			v = latamAmount(amounts[i])
		}
		rec.MustSet(c, amountValue(v))
	}
	rec.MustSet("OBS", table.String(itemType))
	rec.MustSet("Bilhete", table.String(latamTicket(document)))
	return rec
}

// latamAmount reads the statement's dotted notation; commas are thousands
// separators. Anything unparsable is zero.
func latamAmount(s string) decimal.Decimal {
	s = latamNotAmount.ReplaceAllString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// latamTicket derives the ticket number from a document number:
// "957-1234567890-1" gives "9571234567890"; undashed numbers get the 957 prefix.
func latamTicket(document string) string {
	if !strings.Contains(document, "-") {
		return latamTicketPrefix + latamNonDigits.ReplaceAllString(document, "")
	}
	parts := strings.Split(document, "-")
	if len(parts) == 3 {
		return latamNonDigits.ReplaceAllString(parts[0]+parts[1], "")
	}
	return latamNonDigits.ReplaceAllString(strings.Join(parts[:len(parts)-1], ""), "")
}
