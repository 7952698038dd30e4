package airline

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

const (
	azulUnknownPassenger = "PASSAGEIRO DESCONHECIDO"
	azulLoosePassenger   = "AVULSO"
	azulLooseFeeCode     = "OC/OD"
)

// Amount columns in the order they appear on a passenger line.
var azulAmountColumns = []string{
	"TARIFA_A_VISTA", "TARIFA_CREDITO",
	"TAXAS_A_VISTA", "TAXAS_CREDITO",
	"DU_A_VISTA", "DU_CREDITO",
	"CC_DU", "COMISSAO", "INCENTIVO", "VALOR_LIQUIDO",
}

const (
	azulFeeCashIdx   = 2 // TAXAS_A_VISTA
	azulFeeCreditIdx = 3 // TAXAS_CREDITO
)

var azulSchema = table.MustSchema(
	"LOCALIZADOR", "TIPO", "AGENCIA_COD", "AGENCIA_NOME",
	"NOME", "N_TKT", "DATA",
	"TARIFA_A_VISTA", "TARIFA_CREDITO",
	"TAXAS_A_VISTA", "TAXAS_CREDITO",
	"DU_A_VISTA", "DU_CREDITO",
	"CC_DU", "COMISSAO", "INCENTIVO", "VALOR_LIQUIDO",
	"OBSERVACOES",
	"PAGINA",
)

var (
	azulLocatorLine  = regexp.MustCompile(`^\s*([A-Z0-9]{6})\s*$`)
	azulTicket       = regexp.MustCompile(`\b(\d{10})\b`)
	azulDate         = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	azulAgency       = regexp.MustCompile(`(?i)^\s*NOME\s+AGENCIA\s*:\s*(\d+)\s*[-–—]\s*(.+?)\s*$`)
	azulSaleType     = regexp.MustCompile(`(?i)^\s*([A-ZÇÃÕÉÊÍÓÚÁÜ\s]+)\s*:\s*$`)
	azulFeeCodeLine  = regexp.MustCompile(`(?i)^\s*(OC-[A-Z0-9]+|OD-CHG\d*|OD-[A-Z0-9]+)\s*$`)
	azulFeeMarker    = regexp.MustCompile(`(?i)\b(OC-|OD-CHG|OD-)\b`)
	azulFeeCodeMatch = regexp.MustCompile(`(?i)\b(OC-[A-Z0-9]+|OD-CHG\d*|OD-[A-Z0-9]+)\b`)
)

// Header and footer lines repeated on every invoice page.
var azulNoisePrefixes = []string{
	"AZUL LINHAS AEREAS", "FATURA", "PERIODO", "VENCIMENTO",
	"MOEDA", "RLOC", "TARIFA", "TAXAS", "DU", "CC DU",
	"COMISSAO", "INCENTIVO", "VALOR", "VALOR LIQUIDO",
	"OBSERVACOES", "AGENTE MASTER", "CNPJ", "CEP", "ENDERECO",
	"PAGE", "PAG",
}

// AzulExtractor walks the Azul invoice PDF line by line. Passenger lines
// carry ticket, date and amounts; OC/OD fee lines become extra rows tied to
// the last passenger; context lines (agency, sale type, locator) apply to
// everything below them until they change.
type AzulExtractor struct{}

func NewAzulExtractor() *AzulExtractor { return &AzulExtractor{} }

func (e *AzulExtractor) Airline() Code         { return Azul }
func (e *AzulExtractor) Name() string          { return "Azul" }
func (e *AzulExtractor) Kind() decoder.Kind    { return decoder.KindPDF }
func (e *AzulExtractor) Layout() bool          { return false }
func (e *AzulExtractor) Schema() *table.Schema { return azulSchema }

type azulRow struct {
	locator    string
	saleType   string
	agencyCode string
	agencyName string
	name       string
	ticket     string
	date       string
	notes      string
	page       int
	amounts    [10]decimal.Decimal
}

// addAmounts adds vals onto the amount columns by position.
func (r *azulRow) addAmounts(vals []decimal.Decimal) {
	for i := 0; i < len(vals) && i < len(r.amounts); i++ {
		if vals[i].IsZero() {
			continue
		}
		r.amounts[i] = r.amounts[i].Add(vals[i])
	}
}

func (r *azulRow) setFees(vals []decimal.Decimal) {
	cash, credit := feePair(vals)
	r.amounts[azulFeeCashIdx] = cash
	r.amounts[azulFeeCreditIdx] = credit
}

func feePair(vals []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	cash, credit := decimal.Zero, decimal.Zero
	if len(vals) >= 1 {
		cash = vals[0]
	}
	if len(vals) >= 2 {
		credit = vals[1]
	}
	return cash, credit
}

func feesAreZero(vals []decimal.Decimal) bool {
	cash, credit := feePair(vals)
	return cash.IsZero() && credit.IsZero()
}

type azulState struct {
	rows []*azulRow

	saleType   string
	locator    string
	agencyCode string
	agencyName string

	last           *azulRow
	pendingFeeCode string
	pendingName    string
}

// breakContinuation stops later lines from attaching to the previous passenger.
func (s *azulState) breakContinuation() {
	s.last = nil
	s.pendingFeeCode = ""
	s.pendingName = ""
}

func (e *AzulExtractor) Extract(content *decoder.Content) *table.Fragment {
	st := &azulState{}
	for _, l := range content.Lines() {
		st.consume(l.Text, l.Block)
	}

	frag := table.NewFragment(content.Source, azulSchema)
	for _, r := range st.rows {
		frag.Append(r.record())
	}
	return frag
}

func (s *azulState) consume(raw string, page int) {
	line := dashReplacer.Replace(strings.TrimRightFunc(raw, unicode.IsSpace))
	up := strings.ToUpper(strings.TrimSpace(line))

	if strings.Contains(up, "SUBTOTAL") {
		s.breakContinuation()
		return
	}

	// Repeated page headers keep the continuation so a passenger can span pages.
	if isAzulNoise(line) {
		if containsAny(up, "NOME AGENCIA", "PERIODO", "AGENTE MASTER") {
			s.pendingName = ""
		}
		return
	}

	if m := azulAgency.FindStringSubmatch(line); m != nil {
		code, name := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		changed := s.agencyCode != "" && s.agencyName != "" &&
			(code != s.agencyCode || name != s.agencyName)
		s.agencyCode, s.agencyName = code, name
		if changed {
			s.breakContinuation()
		}
		return
	}

	if m := azulSaleType.FindStringSubmatch(line); m != nil {
		saleType := titleCase(strings.ReplaceAll(multiSpace.ReplaceAllString(strings.TrimSpace(m[1]), " "), ":", ""))
		changed := s.saleType != "" && saleType != s.saleType
		s.saleType = saleType
		if changed {
			s.breakContinuation()
		}
		return
	}

	if m := azulLocatorLine.FindStringSubmatch(up); m != nil {
		locator := m[1]
		changed := s.locator != "" && locator != s.locator
		s.locator = locator
		if changed {
			s.breakContinuation()
		}
		return
	}

	if m := azulFeeCodeLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
		s.pendingFeeCode = strings.ToUpper(m[1])
		vals, _ := amountsAndNote(line)
		if len(vals) > 0 && !feesAreZero(vals) && s.last != nil {
			fee := &azulRow{
				locator:    s.last.locator,
				saleType:   s.last.saleType,
				agencyCode: s.last.agencyCode,
				agencyName: s.last.agencyName,
				name:       s.last.name,
				ticket:     s.pendingFeeCode,
				date:       s.last.date,
				notes:      s.last.notes,
				page:       page,
			}
			fee.setFees(vals)
			s.rows = append(s.rows, fee)
			s.pendingFeeCode = ""
		}
		return
	}

	tkt := azulTicket.FindStringSubmatchIndex(line)
	date := azulDate.FindStringSubmatchIndex(line)
	if tkt != nil && date != nil {
		s.passenger(line, tkt, date, page)
		return
	}

	vals, _ := amountsAndNote(line)
	if len(vals) > 0 {
		switch {
		case s.pendingFeeCode != "" || azulFeeMarker.MatchString(line):
			s.looseFee(line, vals, page)
		case s.last != nil:
			s.last.addAmounts(vals)
		}
		return
	}

	clean := strings.TrimSpace(line)
	if len([]rune(clean)) > 3 && !containsAny(up, "MOEDA", "RLOC", "TKT", "DATE") {
		s.pendingName = clean
	}
}

func (s *azulState) passenger(line string, tkt, date []int, page int) {
	name := strings.TrimSpace(line[:tkt[0]])
	if len([]rune(name)) <= 3 {
		name = s.pendingName
	}
	if name == "" {
		name = azulUnknownPassenger
	}

	vals, notes := amountsAndNote(line[date[1]:])

	row := &azulRow{
		locator:    s.locator,
		saleType:   s.saleType,
		agencyCode: s.agencyCode,
		agencyName: s.agencyName,
		name:       name,
		ticket:     line[tkt[2]:tkt[3]],
		date:       line[date[2]:date[3]],
		notes:      notes,
		page:       page,
	}
	row.addAmounts(vals)

	s.rows = append(s.rows, row)
	s.last = row
	s.pendingName = ""
	s.pendingFeeCode = ""
}

// looseFee records an OC/OD fee found on an amounts line.
func (s *azulState) looseFee(line string, vals []decimal.Decimal, page int) {
	code := s.pendingFeeCode
	if m := azulFeeCodeMatch.FindStringSubmatch(line); m != nil {
		code = strings.ToUpper(m[1])
	}
	if code == "" {
		code = azulLooseFeeCode
	}

	if !feesAreZero(vals) {
		fee := &azulRow{
			locator:    s.locator,
			saleType:   s.saleType,
			agencyCode: s.agencyCode,
			agencyName: s.agencyName,
			ticket:     code,
			page:       page,
		}
		if s.last != nil {
			fee.name, fee.date, fee.notes = s.last.name, s.last.date, s.last.notes
		} else {
			fee.name = s.pendingName
			if fee.name == "" {
				fee.name = azulLoosePassenger
			}
		}
		fee.setFees(vals)
		s.rows = append(s.rows, fee)
	}

	s.pendingFeeCode = ""
}

func (r *azulRow) record() table.Record {
	rec := table.NewRecord(azulSchema)
	rec.MustSet("LOCALIZADOR", table.String(r.locator))
	rec.MustSet("TIPO", table.String(r.saleType))
	rec.MustSet("AGENCIA_COD", table.String(r.agencyCode))
	rec.MustSet("AGENCIA_NOME", table.String(r.agencyName))
	rec.MustSet("NOME", table.String(r.name))
	rec.MustSet("N_TKT", table.String(r.ticket))
	rec.MustSet("DATA", dateValue(r.date))
	for i, c := range azulAmountColumns {
		rec.MustSet(c, amountValue(r.amounts[i]))
	}
	rec.MustSet("OBSERVACOES", table.String(r.notes))
	rec.MustSet("PAGINA", table.Number(float64(r.page)))
	return rec
}

func isAzulNoise(line string) bool {
	l := strings.ToUpper(strings.TrimSpace(line))
	if l == "" {
		return true
	}
	if strings.Contains(l, "SUBTOTAL") {
		return true
	}
	for _, p := range azulNoisePrefixes {
		if strings.HasPrefix(l, p) {
			return true
		}
	}
	return strings.Trim(l, "-_=|") == ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// titleCase upper-cases the first letter of each run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
