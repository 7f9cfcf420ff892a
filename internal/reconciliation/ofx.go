package reconciliation

import (
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/shared"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRegex  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX repairs the SGML quirks real bank exports ship with before
// handing the blob to the parser: leading whitespace, mixed-case severity
// values, and opening tags missing their closing bracket.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = openTagRegex.ReplaceAllString(content, "$1>")
	return content
}

// ParseOFX extracts statement lines from a bank OFX/QFX export. Transactions
// missing a posted date or amount are skipped and counted, matching the
// delimited parser's tolerance.
func ParseOFX(raw []byte) (ParseResult, error) {
	processed := preprocessOFX(string(raw))
	if processed == "" {
		return ParseResult{}, shared.Validationf("reconciliation: empty statement")
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(processed))
	if err != nil {
		return ParseResult{}, shared.Validationf("reconciliation: malformed bank export: %v", err)
	}

	var result ParseResult
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, txn := range stmt.BankTranList.Transactions {
			line, ok := convertOFXTransaction(txn)
			if !ok {
				result.Skipped++
				continue
			}
			line.Index = len(result.Lines)
			result.Lines = append(result.Lines, line)
		}
	}
	result.Total = len(result.Lines)
	return result, nil
}

func convertOFXTransaction(txn ofxgo.Transaction) (StatementLine, bool) {
	if txn.DtPosted.Time.IsZero() {
		return StatementLine{}, false
	}
	// zero amounts pass through, same as the delimited parser; Skipped only
	// counts lines that could not be read at all
	amount, err := decimal.NewFromString(txn.TrnAmt.Rat.FloatString(2))
	if err != nil {
		return StatementLine{}, false
	}
	description := strings.TrimSpace(string(txn.Name))
	if memo := strings.TrimSpace(string(txn.Memo)); memo != "" {
		if description == "" {
			description = memo
		} else {
			description = description + " " + memo
		}
	}
	return StatementLine{
		Date:        txn.DtPosted.Time,
		Description: description,
		Amount:      amount,
		DocumentID:  strings.TrimSpace(string(txn.FiTID)),
	}, true
}
