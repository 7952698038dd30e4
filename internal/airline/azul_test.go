package airline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

func azulPage(lines ...string) string {
	return strings.Join(lines, "\n")
}

func TestAzulExtractor_PassengerAndFees(t *testing.T) {
	page1 := azulPage(
		"AZUL LINHAS AEREAS BRASILEIRAS S/A",
		"FATURA 123456",
		"NOME AGENCIA: 1001 - VIAGENS BOAS LTDA",
		"VENDAS:",
		"ABC123",
		"MARIA SOUZA 1234567890 10/01/2024 1.000,00 0,00 120,50 0,00 0,00 0,00 0,00 -50,00 0,00 1.070,50 REEMISSAO",
		"0,00 0,00 0,00 0,00 10,00",
		"OC-NS",
		"35,00 0,00",
		"SUBTOTAL 1.105,50",
	)
	page2 := azulPage(
		"AZUL LINHAS AEREAS BRASILEIRAS S/A",
		"NOME AGENCIA: 1001 - VIAGENS BOAS LTDA",
		"XYZ999",
		"JOAO PEREIRA",
		"JP 9999999999 11/01/2024 200,00",
		"REEMBOLSO:",
		"OD-CHG 15,00 5,00",
	)

	frag := NewAzulExtractor().Extract(pdfContent("azul.pdf", page1, page2))
	require.NoError(t, frag.Validate())
	require.Equal(t, 4, frag.Len())

	maria := frag.Records[0]
	assert.Equal(t, table.String("ABC123"), cell(t, maria, "LOCALIZADOR"))
	assert.Equal(t, table.String("Vendas"), cell(t, maria, "TIPO"))
	assert.Equal(t, table.String("1001"), cell(t, maria, "AGENCIA_COD"))
	assert.Equal(t, table.String("VIAGENS BOAS LTDA"), cell(t, maria, "AGENCIA_NOME"))
	assert.Equal(t, table.String("MARIA SOUZA"), cell(t, maria, "NOME"))
	assert.Equal(t, table.String("1234567890"), cell(t, maria, "N_TKT"))
	assert.Equal(t, table.Date(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)), cell(t, maria, "DATA"))
	assert.Equal(t, table.Number(1000), cell(t, maria, "TARIFA_A_VISTA"))
	assert.Equal(t, table.Number(120.5), cell(t, maria, "TAXAS_A_VISTA"))
	// continuation line adds 10,00 to the fifth amount column
	assert.Equal(t, table.Number(10), cell(t, maria, "DU_A_VISTA"))
	assert.Equal(t, table.Number(-50), cell(t, maria, "COMISSAO"))
	assert.Equal(t, table.Number(1070.5), cell(t, maria, "VALOR_LIQUIDO"))
	assert.Equal(t, table.String("REEMISSAO"), cell(t, maria, "OBSERVACOES"))
	assert.Equal(t, table.Number(1), cell(t, maria, "PAGINA"))

	fee := frag.Records[1]
	assert.Equal(t, table.String("OC-NS"), cell(t, fee, "N_TKT"))
	assert.Equal(t, table.String("MARIA SOUZA"), cell(t, fee, "NOME"))
	assert.Equal(t, table.Number(35), cell(t, fee, "TAXAS_A_VISTA"))
	assert.Equal(t, table.Number(0), cell(t, fee, "TARIFA_A_VISTA"))

	joao := frag.Records[2]
	assert.Equal(t, table.String("XYZ999"), cell(t, joao, "LOCALIZADOR"))
	assert.Equal(t, table.String("JOAO PEREIRA"), cell(t, joao, "NOME"))
	assert.Equal(t, table.Number(2), cell(t, joao, "PAGINA"))
	assert.Equal(t, table.Number(200), cell(t, joao, "TARIFA_A_VISTA"))

	// sale type changed, so the fee is not tied to João
	loose := frag.Records[3]
	assert.Equal(t, table.String("OD-CHG"), cell(t, loose, "N_TKT"))
	assert.Equal(t, table.String("Reembolso"), cell(t, loose, "TIPO"))
	assert.Equal(t, table.String(azulLoosePassenger), cell(t, loose, "NOME"))
	assert.True(t, cell(t, loose, "DATA").IsNull())
	assert.Equal(t, table.Number(15), cell(t, loose, "TAXAS_A_VISTA"))
	assert.Equal(t, table.Number(5), cell(t, loose, "TAXAS_CREDITO"))
}

func TestAzulExtractor_UnknownPassenger(t *testing.T) {
	frag := NewAzulExtractor().Extract(pdfContent("azul.pdf", "AB 1234567890 01/03/2024 10,00"))
	require.Equal(t, 1, frag.Len())
	assert.Equal(t, table.String(azulUnknownPassenger), cell(t, frag.Records[0], "NOME"))
}

func TestAzulExtractor_ZeroFeesDropped(t *testing.T) {
	frag := NewAzulExtractor().Extract(pdfContent("azul.pdf", azulPage(
		"ANA LIMA 1234567890 01/03/2024 10,00",
		"OC-DP",
		"0,00 0,00",
	)))
	assert.Equal(t, 1, frag.Len())
}

func TestAzulExtractor_NoMatches(t *testing.T) {
	frag := NewAzulExtractor().Extract(pdfContent("azul.pdf", "", "FATURA 1\nPERIODO 01/2024"))
	assert.Equal(t, 0, frag.Len())
	assert.Equal(t, azulSchema, frag.Schema)
}

func TestAzulExtractor_Deterministic(t *testing.T) {
	content := pdfContent("azul.pdf", azulPage(
		"ABC123",
		"ANA LIMA 1234567890 01/03/2024 10,00 2,00",
		"1,00",
	))
	e := NewAzulExtractor()
	assert.Equal(t, e.Extract(content), e.Extract(content))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Vendas Nacionais", titleCase("VENDAS NACIONAIS"))
	assert.Equal(t, "Reembolso", titleCase("reembolso"))
}
