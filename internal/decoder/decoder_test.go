package decoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/airline-extractor/internal/testutil"
)

func TestDecodePDF_OneBlockPerPage(t *testing.T) {
	data := testutil.BuildPDF(
		[]string{"FATURA AZUL", "ABC123"},
		nil,
		[]string{"third page"},
	)

	content, err := Decode(RawDocument{Filename: "azul.pdf", Kind: KindPDF, Data: data}, Options{})
	require.NoError(t, err)

	require.Len(t, content.Blocks, 3)
	assert.Contains(t, content.Blocks[0], "FATURA AZUL")
	assert.Contains(t, content.Blocks[0], "ABC123")
	assert.Empty(t, strings.TrimSpace(content.Blocks[1]))
	assert.Contains(t, content.Blocks[2], "third page")
	assert.Equal(t, "azul.pdf", content.Source)
	assert.Equal(t, KindPDF, content.Kind)
}

func TestDecodePDF_LayoutKeepsLines(t *testing.T) {
	data := testutil.BuildPDF([]string{"01/02/2024 957-1234567890-1 100.00 10.00", "Tipo Item: A VISTA"})

	content, err := Decode(RawDocument{Filename: "latam.pdf", Kind: KindPDF, Data: data}, Options{Layout: true})
	require.NoError(t, err)

	var texts []string
	for _, l := range content.Lines() {
		if s := strings.TrimSpace(l.Text); s != "" {
			texts = append(texts, s)
			assert.Equal(t, 1, l.Block)
		}
	}
	assert.Contains(t, texts, "01/02/2024 957-1234567890-1 100.00 10.00")
	assert.Contains(t, texts, "Tipo Item: A VISTA")
}

func TestDecodePDF_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not a pdf", data: []byte("PNR;Bilhete;Data\n")},
		{name: "truncated", data: testutil.BuildPDF([]string{"x"})[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(RawDocument{Filename: "bad.pdf", Kind: KindPDF, Data: tt.data}, Options{})
			assert.ErrorIs(t, err, ErrUnreadableDocument)
		})
	}
}

func TestDecodePDF_Deterministic(t *testing.T) {
	data := testutil.BuildPDF([]string{"a", "b"}, []string{"c"})
	raw := RawDocument{Filename: "x.pdf", Kind: KindPDF, Data: data}

	first, err := Decode(raw, Options{})
	require.NoError(t, err)
	second, err := Decode(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodeText_LineEndings(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{name: "lf", data: "a\nb\nc", want: []string{"a", "b", "c"}},
		{name: "crlf", data: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "cr", data: "a\rb", want: []string{"a", "b"}},
		{name: "blank lines kept", data: "a\n\nb\n", want: []string{"a", "", "b"}},
		{name: "empty", data: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := Decode(RawDocument{Filename: "gol.txt", Kind: KindText, Data: []byte(tt.data)}, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, content.Blocks)
		})
	}
}

func TestDecodeText_Encodings(t *testing.T) {
	want := "Tarifa à Vista"

	latin1 := []byte{'T', 'a', 'r', 'i', 'f', 'a', ' ', 0xE0, ' ', 'V', 'i', 's', 't', 'a'}
	utf8BOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte(want)...)

	for name, data := range map[string][]byte{"latin1": latin1, "utf8 bom": utf8BOM, "utf8": []byte(want)} {
		t.Run(name, func(t *testing.T) {
			content, err := Decode(RawDocument{Filename: "gol.txt", Kind: KindText, Data: data}, Options{})
			require.NoError(t, err)
			assert.Equal(t, []string{want}, content.Blocks)
		})
	}
}

func TestDecodeText_Binary(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	_, err := Decode(RawDocument{Filename: "blob.txt", Kind: KindText, Data: data}, Options{})
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestDecode_UnsupportedKind(t *testing.T) {
	_, err := Decode(RawDocument{Filename: "x.docx", Kind: "docx"}, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.NotErrorIs(t, err, ErrUnreadableDocument)
}

func TestDetectKind(t *testing.T) {
	pdfData := testutil.BuildPDF([]string{"x"})

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     Kind
		wantErr  bool
	}{
		{name: "pdf extension", filename: "a.PDF", want: KindPDF},
		{name: "txt extension", filename: "a.txt", want: KindText},
		{name: "sniffed pdf", filename: "upload", data: pdfData, want: KindPDF},
		{name: "sniffed text", filename: "upload", data: []byte("PNR;Bilhete;Data\n"), want: KindText},
		{name: "binary", filename: "upload.bin", data: []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKind(tt.filename, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, KindPDF, k)

	k, err = ParseKind("txt")
	require.NoError(t, err)
	assert.Equal(t, KindText, k)

	_, err = ParseKind("xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}
