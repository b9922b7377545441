// Package report renders ratio-augmented statement tables as plain text
// for embedding in an analysis prompt or printing on a terminal.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/earningsai/pkg/models"
)

// Missing is written for empty cells and undefined ratios.
const Missing = "NaN"

// LabelColumn heads the relative period label ("t", "t-1", ...). Provider
// records carry their own "period" field (e.g. "FY"), so the label uses a
// distinct name.
const LabelColumn = "period_label"

// RenderTable writes the table as aligned columns: the period label first,
// then the statement columns in table order, then the ratio columns in
// derivation order. The same table always renders to the same string.
func RenderTable(t *models.StatementTable) string {
	if t.Len() == 0 {
		return "Empty table\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := make([]string, 0, 1+len(t.Columns)+len(t.RatioColumns))
	header = append(header, LabelColumn)
	header = append(header, t.Columns...)
	header = append(header, t.RatioColumns...)
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	for _, row := range t.Rows {
		cells := make([]string, 0, len(header))
		cells = append(cells, row.Period)
		for _, col := range t.Columns {
			v, ok := row.Value(col)
			if !ok {
				cells = append(cells, Missing)
				continue
			}
			cells = append(cells, FormatValue(v))
		}
		for _, col := range t.RatioColumns {
			cells = append(cells, row.Ratio(col).String())
		}
		fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
	}
	w.Flush()
	return b.String()
}

// FormatValue renders one raw cell. Numbers use the shortest exact form.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		if x == "" {
			return Missing
		}
		return strings.ReplaceAll(x, "\t", " ")
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Missing
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.String()
	case models.Ratio:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Statements renders several tables under their prompt headings, one
// "<Title>:\n<table>" block per table separated by blank lines.
func Statements(tables ...*models.StatementTable) string {
	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		title := "Statement"
		if t != nil {
			title = t.Kind.Title()
		}
		b.WriteString(title + ":\n")
		b.WriteString(RenderTable(t))
	}
	return b.String()
}
