package fundamental

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/seenimoa/earningsai/pkg/models"
)

// FieldCalendarYear is the raw field carrying the fiscal year.
const FieldCalendarYear = "calendarYear"

// MinFiscalYear is the sanity floor for the most recent fiscal year.
const MinFiscalYear = 1900

// IdentityFields are provider metadata columns that carry no ratio signal.
// They must all be present and are removed during standardization.
var IdentityFields = []string{"cik", "symbol", "fillingDate", "acceptedDate", "link", "finalLink"}

// Standardize converts a raw provider table into a period-indexed table.
// The most recent fiscal year becomes period "t" and every other record
// "t-k" with k years of distance. Identity fields and the year field are
// dropped and the remaining field names canonicalized. Record order is kept
// and duplicate years are not merged, so ties at the maximum year all map to "t".
func Standardize(raw *models.RawStatementTable) (*models.StatementTable, error) {
	if raw.Len() == 0 {
		var kind models.StatementKind
		if raw != nil {
			kind = raw.Kind
		}
		return nil, &EmptyInputError{Kind: kind}
	}

	cols := raw.Columns()
	if _, ok := cols[FieldCalendarYear]; !ok {
		return nil, &MissingFieldError{Kind: raw.Kind, Fields: []string{FieldCalendarYear}}
	}

	years := make([]int, len(raw.Records))
	var invalid []string
	for i, rec := range raw.Records {
		y, err := parseYear(rec[FieldCalendarYear])
		if err != nil {
			invalid = append(invalid, err.Error())
			continue
		}
		years[i] = y
	}
	if len(invalid) > 0 {
		return nil, &InvalidYearError{Kind: raw.Kind, Values: invalid}
	}

	current := years[0]
	for _, y := range years[1:] {
		if y > current {
			current = y
		}
	}
	if current < MinFiscalYear {
		return nil, &InvalidYearError{Kind: raw.Kind, MaxYear: current}
	}

	var missing []string
	for _, f := range IdentityFields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Kind: raw.Kind, Fields: missing}
	}

	dropped := make(map[string]bool, len(IdentityFields)+1)
	dropped[FieldCalendarYear] = true
	for _, f := range IdentityFields {
		dropped[f] = true
	}

	// Sorted source names make the canonical mapping deterministic when two
	// source names collapse onto the same canonical name: the first one wins.
	sources := make([]string, 0, len(cols))
	for c := range cols {
		if !dropped[c] {
			sources = append(sources, c)
		}
	}
	sort.Strings(sources)

	canonical := make(map[string]string, len(sources))
	seen := make(map[string]bool, len(sources))
	columns := make([]string, 0, len(sources))
	for _, src := range sources {
		name := CanonicalName(src)
		if seen[name] {
			continue
		}
		seen[name] = true
		canonical[src] = name
		columns = append(columns, name)
	}
	sort.Strings(columns)

	rows := make([]models.Row, len(raw.Records))
	for i, rec := range raw.Records {
		values := make(map[string]any, len(canonical))
		for src, name := range canonical {
			if v, ok := rec[src]; ok {
				values[name] = v
			}
		}
		rows[i] = models.Row{Period: PeriodLabel(years[i], current), Values: values}
	}

	return &models.StatementTable{
		Ticker:  raw.Ticker,
		Kind:    raw.Kind,
		Columns: columns,
		Rows:    rows,
	}, nil
}

// PeriodLabel returns "t" for the current year and "t-k" for earlier years.
func PeriodLabel(year, current int) string {
	if year >= current {
		return models.PeriodCurrent
	}
	return fmt.Sprintf("t-%d", current-year)
}

// CanonicalName lower-cases a field name and replaces spaces with underscores.
// Applying it to an already canonical name returns the name unchanged.
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// parseYear converts a raw calendarYear value to an integer year. The error
// text is the offending value so callers can list every bad one. Years must
// fit in an int32 so period distances never overflow.
func parseYear(v any) (int, error) {
	switch y := v.(type) {
	case nil:
		return 0, errors.New("<missing>")
	case int:
		return checkYearRange(int64(y), v)
	case int64:
		return checkYearRange(y, v)
	case float64:
		if math.IsNaN(y) || math.IsInf(y, 0) || y != math.Trunc(y) || !inYearRange(y) {
			return 0, fmt.Errorf("%v", y)
		}
		return int(y), nil
	case json.Number:
		return parseYearString(y.String())
	case string:
		return parseYearString(y)
	default:
		return 0, fmt.Errorf("%v", v)
	}
}

func parseYearString(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	if y, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if _, err := checkYearRange(y, y); err == nil {
			return int(y), nil
		}
		return 0, fmt.Errorf("%q", s)
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || !inYearRange(f) {
		return 0, fmt.Errorf("%q", s)
	}
	return int(f), nil
}

func checkYearRange(y int64, raw any) (int, error) {
	if y < math.MinInt32 || y > math.MaxInt32 {
		return 0, fmt.Errorf("%v", raw)
	}
	return int(y), nil
}

func inYearRange(f float64) bool {
	return f >= math.MinInt32 && f <= math.MaxInt32
}
