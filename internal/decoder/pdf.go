package decoder

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// NewPDFConfiguration returns a relaxed pdfcpu configuration that never
// touches the user config directory.
func NewPDFConfiguration() *model.Configuration {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func decodePDF(raw RawDocument, opts Options) (*Content, error) {
	if len(raw.Data) == 0 {
		return nil, unreadable(raw.Filename, fmt.Errorf("empty file"))
	}

	if err := validatePDF(raw.Data, opts.PDFConfig); err != nil {
		return nil, unreadable(raw.Filename, err)
	}

	pdfReader, err := newPDFReader(raw.Data)
	if err != nil {
		return nil, unreadable(raw.Filename, err)
	}

	numPages := pdfReader.NumPage()
	blocks := make([]string, numPages)

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		// Pages whose content cannot be interpreted stay empty.
		if opts.Layout {
			if text, err := layoutText(page); err == nil {
				blocks[i-1] = text
				continue
			}
		}
		if text, err := page.GetPlainText(nil); err == nil {
			blocks[i-1] = text
		}
	}

	return &Content{Source: raw.Filename, Kind: KindPDF, Blocks: blocks}, nil
}

func validatePDF(data []byte, conf *model.Configuration) (err error) {
	if conf == nil {
		conf = NewPDFConfiguration()
	}
	// pdfcpu writes into the configuration while validating.
	c := *conf

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid PDF structure: %v", r)
		}
	}()

	if err := api.Validate(bytes.NewReader(data), &c); err != nil {
		return fmt.Errorf("invalid PDF structure: %w", err)
	}
	return nil
}

func newPDFReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to create PDF reader: %v", rec)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}
	return r, nil
}

// layoutText rebuilds the page line by line from positioned glyph runs.
func layoutText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read text rows: %v", r)
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, rowText(row.Content))
	}
	return strings.Join(lines, "\n"), nil
}

func rowText(texts pdf.TextHorizontal) string {
	runs := slices.Clone([]pdf.Text(texts))
	slices.SortStableFunc(runs, func(a, b pdf.Text) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})

	var b strings.Builder
	end := math.Inf(-1)
	for _, t := range runs {
		if b.Len() > 0 && t.X-end > gapThreshold(t) && !strings.HasPrefix(t.S, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		end = t.X + t.W
	}
	return strings.TrimSpace(b.String())
}

func gapThreshold(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize * 0.2
	}
	return 1
}
