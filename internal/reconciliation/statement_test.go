package reconciliation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/condoledger/condoledger/internal/shared"
)

func TestParseDelimitedSemicolonWithHeader(t *testing.T) {
	raw := []byte(`Data;Histórico;Valor;Documento
05/04/2024;Taxa condominial abril;480,50;DOC-1
12/04/2024;Manutenção elevador;-250,00;DOC-2
`)
	result, err := ParseDelimited(raw)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Zero(t, result.Skipped)

	first := result.Lines[0]
	require.Equal(t, 0, first.Index)
	require.Equal(t, time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), first.Date)
	require.Equal(t, "Taxa condominial abril", first.Description)
	require.True(t, first.Amount.Equal(decimal.RequireFromString("480.50")))
	require.Equal(t, "DOC-1", first.DocumentID)

	require.True(t, result.Lines[1].Amount.IsNegative())
}

func TestParseDelimitedCommaNoHeader(t *testing.T) {
	raw := []byte("2024-04-05,condo fee,480.50\n2024-04-12,elevator,-250.00\n")
	result, err := ParseDelimited(raw)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.True(t, result.Lines[0].Amount.Equal(decimal.RequireFromString("480.50")))
}

func TestParseDelimitedDecimalConventionsAgree(t *testing.T) {
	brazilian, err := ParseDelimited([]byte("05/04/2024;fee;1.480,50\n"))
	require.NoError(t, err)
	american, err := ParseDelimited([]byte("2024-04-05,fee,\"1,480.50\"\n"))
	require.NoError(t, err)
	require.True(t, brazilian.Lines[0].Amount.Equal(american.Lines[0].Amount),
		"got %s vs %s", brazilian.Lines[0].Amount, american.Lines[0].Amount)
}

func TestParseDelimitedCurrencyPrefix(t *testing.T) {
	result, err := ParseDelimited([]byte("05/04/2024;fee;R$ 480,50\n"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.True(t, result.Lines[0].Amount.Equal(decimal.RequireFromString("480.50")))
}

func TestParseDelimitedSkipsBadRowsAndCounts(t *testing.T) {
	raw := []byte(`05/04/2024;fee;480,50
not-a-date;noise;480,50
05/04/2024;no amount;n/a
12/04/2024;elevator;-250,00
`)
	result, err := ParseDelimited(raw)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 2, result.Skipped)
	// indexes stay contiguous over the surviving lines
	require.Equal(t, 0, result.Lines[0].Index)
	require.Equal(t, 1, result.Lines[1].Index)
}

func TestParseDelimitedIgnoresFillerRows(t *testing.T) {
	// banks pad exports with separator-only rows; those are noise, not
	// skipped data
	raw := []byte(`05/04/2024;fee;480,50
;;;
;;
12/04/2024;elevator;-250,00
;;;
`)
	result, err := ParseDelimited(raw)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Zero(t, result.Skipped)
	require.Equal(t, 0, result.Lines[0].Index)
	require.Equal(t, 1, result.Lines[1].Index)
}

func TestParseDelimitedAcceptsZeroAmount(t *testing.T) {
	result, err := ParseDelimited([]byte("05/04/2024;fee reversal;0,00\n"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Zero(t, result.Skipped)
	require.True(t, result.Lines[0].Amount.IsZero())
}

func TestParseDelimitedEmptyInput(t *testing.T) {
	_, err := ParseDelimited([]byte("   \n"))
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestParseStatementRoundTripCount(t *testing.T) {
	raw := []byte("01/04/2024;a;10,00\n02/04/2024;b;20,00\n03/04/2024;c;30,00\n")
	svc := NewService(nil, nil)
	result, err := svc.ParseStatement(raw, FormatDelimited)
	require.NoError(t, err)
	require.Len(t, result.Lines, 3)
	require.Equal(t, 3, result.Total)
}

func TestParseStatementUnknownFormat(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.ParseStatement([]byte("x"), Format("xml"))
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestParseOFXStatement(t *testing.T) {
	raw := []byte(`OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240430120000
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>0260
<ACCTID>12345-6
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240401
<DTEND>20240430
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240405
<TRNAMT>480.50
<FITID>2024040501
<MEMO>TAXA CONDOMINIAL
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240412
<TRNAMT>-250.00
<FITID>2024041201
<MEMO>MANUTENCAO ELEVADOR
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>230.50
<DTASOF>20240430
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`)
	result, err := ParseOFX(raw)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Zero(t, result.Skipped)

	first := result.Lines[0]
	require.True(t, first.Amount.Equal(decimal.RequireFromString("480.50")))
	require.Equal(t, "2024040501", first.DocumentID)
	require.Contains(t, first.Description, "TAXA CONDOMINIAL")
	require.Equal(t, 2024, first.Date.Year())
	require.Equal(t, time.April, first.Date.Month())
	require.Equal(t, 5, first.Date.Day())

	require.True(t, result.Lines[1].Amount.Equal(decimal.RequireFromString("-250.00")))
}

func TestParseOFXAcceptsZeroAmount(t *testing.T) {
	raw := []byte(`OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240430120000
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>0260
<ACCTID>12345-6
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240401
<DTEND>20240430
<STMTTRN>
<TRNTYPE>OTHER
<DTPOSTED>20240418
<TRNAMT>0.00
<FITID>2024041801
<MEMO>ESTORNO TARIFA
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>0.00
<DTASOF>20240430
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`)
	// zero-value movements (fee reversals, informational entries) survive
	// parsing in both formats
	result, err := ParseOFX(raw)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Zero(t, result.Skipped)
	require.True(t, result.Lines[0].Amount.IsZero())
	require.Equal(t, "2024041801", result.Lines[0].DocumentID)
}

func TestFoldTextStripsDiacritics(t *testing.T) {
	require.Equal(t, "historico", foldText("Histórico"))
	require.Equal(t, "manutencao", foldText(" MANUTENÇÃO "))
}
