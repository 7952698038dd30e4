package airline

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

const reportDateLayout = "02/01/2006"

var dashReplacer = strings.NewReplacer("−", "-", "–", "-")

// parseAmount reads Brazilian (1.234,56) and dotted (1234.56) notations.
// Anything unparsable is zero.
func parseAmount(s string) decimal.Decimal {
	s = dashReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero
	}

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// amountCandidate matches 1.234,56 / 1234.56 / 1234,56 with an optional sign.
var amountCandidate = regexp.MustCompile(`-?\d{1,3}(?:\.\d{3})*,\d{2}|-?\d+\.\d{2}|-?\d+,\d{2}`)

var multiSpace = regexp.MustCompile(`\s{2,}`)

// amountsAndNote returns the amounts found in s, in order, and the text
// after the last amount. Matches glued to letters or digits are ignored.
func amountsAndNote(s string) ([]decimal.Decimal, string) {
	s = dashReplacer.Replace(s)

	var (
		vals    []decimal.Decimal
		lastEnd = -1
	)
	for pos := 0; pos < len(s); {
		loc := amountCandidate.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if !standalone(s, start, end) {
			// X-7,30: the unsigned amount after a glued dash still counts.
			if s[start] == '-' {
				pos = start + 1
			} else {
				pos = end
			}
			continue
		}
		vals = append(vals, parseAmount(s[start:end]))
		lastEnd = end
		pos = end
	}

	note := ""
	if lastEnd >= 0 {
		note = strings.TrimSpace(multiSpace.ReplaceAllString(s[lastEnd:], " "))
	}
	return vals, note
}

func standalone(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func amountValue(d decimal.Decimal) table.Value {
	return table.Number(d.InexactFloat64())
}

// dateValue parses DD/MM/YYYY; invalid dates become null.
func dateValue(s string) table.Value {
	t, err := time.Parse(reportDateLayout, strings.TrimSpace(s))
	if err != nil {
		return table.Null()
	}
	return table.Date(t)
}
