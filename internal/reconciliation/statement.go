package reconciliation

import (
	"bytes"
	"encoding/csv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/condoledger/condoledger/internal/shared"
)

// dateLayouts lists the formats banks actually emit, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"20060102",
}

var headerKeywords = map[string][]string{
	"date":        {"date", "data", "dt"},
	"amount":      {"amount", "value", "valor", "vlr"},
	"description": {"description", "descricao", "historico", "memo", "detail"},
	"document":    {"document", "documento", "doc", "id"},
}

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lowercases and strips diacritics so header detection and memo
// comparison survive accented bank exports.
func foldText(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// ParseDelimited reads a delimited-text statement. The delimiter and an
// optional header row are auto-detected; rows whose date or amount cannot be
// parsed are skipped and counted, never fatal.
func ParseDelimited(raw []byte) (ParseResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ParseResult{}, shared.Validationf("reconciliation: empty statement")
	}
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return ParseResult{}, shared.Validationf("reconciliation: malformed statement: %v", err)
	}
	if len(records) == 0 {
		return ParseResult{}, shared.Validationf("reconciliation: empty statement")
	}

	cols := columnLayout{date: 0, description: 1, amount: 2, document: 3}
	start := 0
	if mapped, ok := detectHeader(records[0]); ok {
		cols = mapped
		start = 1
	}

	var result ParseResult
	for _, record := range records[start:] {
		if blankRecord(record) {
			continue
		}
		line, ok := parseRecord(record, cols)
		if !ok {
			result.Skipped++
			continue
		}
		line.Index = len(result.Lines)
		result.Lines = append(result.Lines, line)
	}
	result.Total = len(result.Lines)
	return result, nil
}

// blankRecord reports whether every field is empty. Banks pad exports with
// separator-only filler rows; those are noise, not skipped data.
func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

type columnLayout struct {
	date        int
	description int
	amount      int
	document    int
}

// detectDelimiter picks between semicolon and comma by counting occurrences
// in the first non-empty line. Semicolon wins ties since comma often doubles
// as the decimal separator in those files.
func detectDelimiter(raw []byte) rune {
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if bytes.Count(line, []byte(";")) >= bytes.Count(line, []byte(",")) {
			return ';'
		}
		return ','
	}
	return ';'
}

func detectHeader(record []string) (columnLayout, bool) {
	cols := columnLayout{date: -1, description: -1, amount: -1, document: -1}
	found := 0
	for idx, field := range record {
		folded := foldText(field)
		for kind, keywords := range headerKeywords {
			if !matchesKeyword(folded, keywords) {
				continue
			}
			switch kind {
			case "date":
				if cols.date == -1 {
					cols.date = idx
					found++
				}
			case "amount":
				if cols.amount == -1 {
					cols.amount = idx
					found++
				}
			case "description":
				if cols.description == -1 {
					cols.description = idx
					found++
				}
			case "document":
				if cols.document == -1 {
					cols.document = idx
				}
			}
		}
	}
	if cols.date == -1 || cols.amount == -1 || found < 2 {
		return columnLayout{}, false
	}
	return cols, true
}

func matchesKeyword(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

func parseRecord(record []string, cols columnLayout) (StatementLine, bool) {
	date, ok := fieldDate(record, cols.date)
	if !ok {
		return StatementLine{}, false
	}
	amount, ok := fieldAmount(record, cols.amount)
	if !ok {
		return StatementLine{}, false
	}
	line := StatementLine{Date: date, Amount: amount}
	if cols.description >= 0 && cols.description < len(record) {
		line.Description = strings.TrimSpace(record[cols.description])
	}
	if cols.document >= 0 && cols.document < len(record) {
		line.DocumentID = strings.TrimSpace(record[cols.document])
	}
	return line, true
}

func fieldDate(record []string, idx int) (time.Time, bool) {
	if idx < 0 || idx >= len(record) {
		return time.Time{}, false
	}
	return parseDate(record[idx])
}

func fieldAmount(record []string, idx int) (decimal.Decimal, bool) {
	if idx < 0 || idx >= len(record) {
		return decimal.Decimal{}, false
	}
	return parseAmount(record[idx])
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount handles both "1.234,56" and "1,234.56" conventions plus an
// optional currency prefix, normalising to cents via the decimal package.
func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	cleaned = strings.TrimLeftFunc(cleaned, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '-' && r != '+'
	})
	if cleaned == "" {
		return decimal.Decimal{}, false
	}

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator, dots group thousands
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastDot > lastComma:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount.Round(2), true
}
