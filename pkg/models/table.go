package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// PeriodCurrent is the label of the most recent fiscal period in a standardized table.
const PeriodCurrent = "t"

// Ratio is a derived cell. It is undefined (Valid == false) when an input was
// missing or non-numeric, or when the divisor was zero.
type Ratio struct {
	decimal.NullDecimal
}

// NewRatio wraps a computed value.
func NewRatio(d decimal.Decimal) Ratio {
	return Ratio{decimal.NullDecimal{Decimal: d, Valid: true}}
}

// UndefinedRatio returns an empty cell.
func UndefinedRatio() Ratio {
	return Ratio{}
}

// Float64 returns the value and whether it is defined.
func (r Ratio) Float64() (float64, bool) {
	if !r.Valid {
		return math.NaN(), false
	}
	return r.Decimal.InexactFloat64(), true
}

// String renders the ratio rounded to four places, or NaN when undefined.
func (r Ratio) String() string {
	if !r.Valid {
		return "NaN"
	}
	return r.Decimal.Round(4).String()
}

// Row is one period of a standardized statement.
type Row struct {
	Period string           `json:"period"`
	Values map[string]any   `json:"values"`
	Ratios map[string]Ratio `json:"ratios,omitempty"`
}

// Value returns the raw value stored under a canonical column name.
func (r Row) Value(col string) (any, bool) {
	v, ok := r.Values[col]
	return v, ok
}

// Ratio returns a derived cell, undefined if the ratio was never computed.
func (r Row) Ratio(name string) Ratio {
	if rt, ok := r.Ratios[name]; ok {
		return rt
	}
	return UndefinedRatio()
}

// StatementTable is a standardized statement: one row per period, identity
// fields removed, column names canonicalized. Ratio passes return a copy with
// RatioColumns and per-row Ratios filled in; a table is never mutated after it
// has been handed to another component.
type StatementTable struct {
	Ticker       string        `json:"ticker"`
	Kind         StatementKind `json:"kind"`
	Columns      []string      `json:"columns"`
	RatioColumns []string      `json:"ratio_columns,omitempty"`
	Rows         []Row         `json:"rows"`
}

// Len returns the number of rows, treating a nil table as empty.
func (t *StatementTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is part of the table's column set.
func (t *StatementTable) HasColumn(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that can be extended without touching t.
func (t *StatementTable) Clone() *StatementTable {
	if t == nil {
		return nil
	}
	out := &StatementTable{
		Ticker:       t.Ticker,
		Kind:         t.Kind,
		Columns:      append([]string(nil), t.Columns...),
		RatioColumns: append([]string(nil), t.RatioColumns...),
		Rows:         make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		values := make(map[string]any, len(r.Values))
		for k, v := range r.Values {
			values[k] = v
		}
		var ratios map[string]Ratio
		if r.Ratios != nil {
			ratios = make(map[string]Ratio, len(r.Ratios))
			for k, v := range r.Ratios {
				ratios[k] = v
			}
		}
		out.Rows[i] = Row{Period: r.Period, Values: values, Ratios: ratios}
	}
	return out
}
