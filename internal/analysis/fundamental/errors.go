package fundamental

import (
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/earningsai/pkg/models"
)

// ErrStructural matches every error that makes a whole table unusable:
// empty input, missing fields or columns, and invalid fiscal years.
// Per-cell arithmetic problems never produce an error.
var ErrStructural = errors.New("fundamental: structural input error")

// EmptyInputError is returned when there is no data to standardize.
type EmptyInputError struct {
	Kind models.StatementKind
}

func (e *EmptyInputError) Error() string {
	if e.Kind == "" {
		return "input table is empty or nil"
	}
	return fmt.Sprintf("input %s table is empty or nil", e.Kind)
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrStructural }

// MissingFieldError lists every required raw field that was absent.
type MissingFieldError struct {
	Kind   models.StatementKind
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", kindOrTable(e.Kind), strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrStructural }

// InvalidYearError reports unparsable fiscal years or a maximum year below
// the sanity floor.
type InvalidYearError struct {
	Kind    models.StatementKind
	Values  []string
	MaxYear int
}

func (e *InvalidYearError) Error() string {
	if len(e.Values) > 0 {
		return fmt.Sprintf("%s: invalid or missing values in %s: %s",
			kindOrTable(e.Kind), FieldCalendarYear, strings.Join(e.Values, ", "))
	}
	return fmt.Sprintf("%s: invalid current year %d in %s (must be >= %d)",
		kindOrTable(e.Kind), e.MaxYear, FieldCalendarYear, MinFiscalYear)
}

func (e *InvalidYearError) Is(target error) bool { return target == ErrStructural }

// MissingColumnError lists every ratio input column absent from a standardized table.
type MissingColumnError struct {
	Kind    models.StatementKind
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing necessary columns: %s", kindOrTable(e.Kind), strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrStructural }

func kindOrTable(k models.StatementKind) string {
	if k == "" {
		return "table"
	}
	return string(k)
}
