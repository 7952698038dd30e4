// Package decoder turns uploaded bytes into ordered text blocks: one block
// per page for PDFs and one block per line for text reports.
package decoder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

var (
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrUnsupportedKind    = errors.New("unsupported document kind")
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPDF:
		return KindPDF, nil
	case KindText, "txt":
		return KindText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// RawDocument is one uploaded file. Data must not be modified after upload.
type RawDocument struct {
	Filename string
	Kind     Kind
	Data     []byte
}

// Content is the decoded form of a RawDocument.
type Content struct {
	Source string
	Kind   Kind
	Blocks []string
}

// Line is one text line together with the 1-based block it came from
// (the page number for PDFs, the line number for text files).
type Line struct {
	Block int
	Text  string
}

// Lines flattens the blocks into lines. PDF pages are split on line breaks;
// text blocks already are lines.
func (c *Content) Lines() []Line {
	var lines []Line
	for i, b := range c.Blocks {
		if c.Kind == KindText {
			lines = append(lines, Line{Block: i + 1, Text: b})
			continue
		}
		for _, l := range splitLines(b) {
			lines = append(lines, Line{Block: i + 1, Text: l})
		}
	}
	return lines
}

type Options struct {
	// PDFConfig is copied for each validation; nil uses a relaxed default.
	PDFConfig *model.Configuration
	// Layout rebuilds PDF lines from positioned text rows so table columns
	// stay on one line.
	Layout bool
}

// Decode dispatches on the declared kind. Errors caused by the bytes
// themselves wrap ErrUnreadableDocument.
func Decode(raw RawDocument, opts Options) (*Content, error) {
	switch raw.Kind {
	case KindPDF:
		return decodePDF(raw, opts)
	case KindText:
		return decodeTextDocument(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, raw.Kind)
	}
}

// DetectKind picks the document kind from the file extension, falling back
// to content sniffing.
func DetectKind(filename string, data []byte) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt", ".csv":
		return KindText, nil
	}

	mtype := mimetype.Detect(data)
	if mtype.Is("application/pdf") {
		return KindPDF, nil
	}
	if isText(mtype) {
		return KindText, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedKind, filename, mtype.String())
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func unreadable(filename string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, filename, err)
}
