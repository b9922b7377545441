package models

import "fmt"

// StatementKind identifies one of the three core financial statements.
// The string value matches the provider path segment.
type StatementKind string

const (
	BalanceSheet    StatementKind = "balance-sheet-statement"
	IncomeStatement StatementKind = "income-statement"
	CashFlow        StatementKind = "cash-flow-statement"
)

// StatementKinds returns the three statement kinds in fetch order.
func StatementKinds() []StatementKind {
	return []StatementKind{BalanceSheet, IncomeStatement, CashFlow}
}

// Title returns the heading used when a statement is embedded in a prompt.
func (k StatementKind) Title() string {
	switch k {
	case BalanceSheet:
		return "Balance Sheet"
	case IncomeStatement:
		return "Income Statement"
	case CashFlow:
		return "Cash Flow"
	default:
		return string(k)
	}
}

// Valid reports whether k is one of the known statement kinds.
func (k StatementKind) Valid() bool {
	switch k {
	case BalanceSheet, IncomeStatement, CashFlow:
		return true
	}
	return false
}

// ParseStatementKind converts a provider path segment into a StatementKind.
func ParseStatementKind(s string) (StatementKind, error) {
	k := StatementKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown statement kind %q", s)
	}
	return k, nil
}

// RawRecord is one fiscal period exactly as the provider returned it.
// Values are whatever the JSON decoder produced (float64, string, bool, nil).
type RawRecord map[string]any

// RawStatementTable holds every period record for one ticker and statement kind.
// Records are kept in provider order and are not assumed sorted.
type RawStatementTable struct {
	Ticker  string        `json:"ticker"`
	Kind    StatementKind `json:"kind"`
	Records []RawRecord   `json:"records"`
}

// Len returns the number of records, treating a nil table as empty.
func (t *RawStatementTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Columns returns the union of field names across all records.
func (t *RawStatementTable) Columns() map[string]struct{} {
	cols := make(map[string]struct{})
	if t == nil {
		return cols
	}
	for _, r := range t.Records {
		for k := range r {
			cols[k] = struct{}{}
		}
	}
	return cols
}
