package fundamental

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/earningsai/pkg/models"
)

func identity(year any) models.RawRecord {
	return models.RawRecord{
		"calendarYear": year,
		"cik":          "0000320193",
		"symbol":       "AAPL",
		"fillingDate":  "2023-11-03",
		"acceptedDate": "2023-11-02 18:08:27",
		"link":         "https://www.sec.gov/Archives/edgar/data/320193/",
		"finalLink":    "https://www.sec.gov/Archives/edgar/data/320193/aapl.htm",
	}
}

func record(year any, fields map[string]any) models.RawRecord {
	r := identity(year)
	for k, v := range fields {
		r[k] = v
	}
	return r
}

func sampleBalanceSheet() *models.RawStatementTable {
	return &models.RawStatementTable{
		Ticker: "AAPL",
		Kind:   models.BalanceSheet,
		Records: []models.RawRecord{
			record("2023", map[string]any{
				"totalCurrentAssets": 200.0, "totalCurrentLiabilities": 100.0,
				"cashAndCashEquivalents": 30.0, "shortTermInvestments": 20.0, "netReceivables": 10.0,
				"totalLiabilities": 300.0, "totalStockholdersEquity": 150.0, "totalDebt": 90.0,
				"totalAssets": 450.0, "date": "2023-09-30",
			}),
			record("2022", map[string]any{
				"totalCurrentAssets": 180.0, "totalCurrentLiabilities": 0.0,
				"cashAndCashEquivalents": 25.0, "shortTermInvestments": 15.0, "netReceivables": 12.0,
				"totalLiabilities": 280.0, "totalStockholdersEquity": 140.0, "totalDebt": 80.0,
				"totalAssets": 420.0, "date": "2022-09-24",
			}),
			record("2021", map[string]any{
				"totalCurrentAssets": 160.0, "totalCurrentLiabilities": 90.0,
				"cashAndCashEquivalents": 20.0, "shortTermInvestments": 10.0, "netReceivables": 8.0,
				"totalLiabilities": 260.0, "totalStockholdersEquity": 0.0, "totalDebt": 70.0,
				"totalAssets": 400.0, "date": "2021-09-25",
			}),
		},
	}
}

func sampleIncomeStatement() *models.RawStatementTable {
	return &models.RawStatementTable{
		Ticker: "AAPL",
		Kind:   models.IncomeStatement,
		Records: []models.RawRecord{
			record("2023", map[string]any{
				"revenue": 1000.0, "grossProfit": 400.0, "operatingIncome": 300.0, "netIncome": 200.0,
				"ebitda": 350.0, "weightedAverageShsOut": 100.0, "weightedAverageShsOutDil": 125.0,
			}),
			record("2022", map[string]any{
				"revenue": 800.0, "grossProfit": 300.0, "operatingIncome": 200.0, "netIncome": 160.0,
				"ebitda": 260.0, "weightedAverageShsOut": 100.0, "weightedAverageShsOutDil": 0.0,
			}),
		},
	}
}

func sampleCashFlow() *models.RawStatementTable {
	return &models.RawStatementTable{
		Ticker: "AAPL",
		Kind:   models.CashFlow,
		Records: []models.RawRecord{
			record(2023.0, map[string]any{
				"netCashProvidedByOperatingActivities": 150.0, "freeCashFlow": 100.0,
				"dividendsPaid": 20.0, "netIncome": 120.0, "investmentsInPropertyPlantAndEquipment": 50.0,
			}),
		},
	}
}

func mustStandardize(t *testing.T, raw *models.RawStatementTable) *models.StatementTable {
	t.Helper()
	st, err := Standardize(raw)
	require.NoError(t, err)
	return st
}

func ratioValue(t *testing.T, r models.Ratio) float64 {
	t.Helper()
	v, ok := r.Float64()
	require.True(t, ok, "expected a defined ratio")
	return v
}

// ── Standardize ──

func TestStandardizePeriods(t *testing.T) {
	st := mustStandardize(t, sampleBalanceSheet())

	require.Len(t, st.Rows, 3)
	assert.Equal(t, "t", st.Rows[0].Period)
	assert.Equal(t, "t-1", st.Rows[1].Period)
	assert.Equal(t, "t-2", st.Rows[2].Period)
	assert.Equal(t, models.BalanceSheet, st.Kind)
	assert.Equal(t, "AAPL", st.Ticker)
}

func TestStandardizeUnsortedInput(t *testing.T) {
	raw := &models.RawStatementTable{Records: []models.RawRecord{
		record("2019", nil),
		record("2023", nil),
		record("2020", nil),
	}}
	st := mustStandardize(t, raw)

	got := []string{st.Rows[0].Period, st.Rows[1].Period, st.Rows[2].Period}
	assert.Equal(t, []string{"t-4", "t", "t-3"}, got)
}

func TestStandardizeDropsIdentityAndYear(t *testing.T) {
	raw := sampleBalanceSheet()
	st := mustStandardize(t, raw)

	assert.Len(t, st.Rows, raw.Len())
	dropped := append([]string{FieldCalendarYear}, IdentityFields...)
	for _, f := range dropped {
		assert.False(t, st.HasColumn(f), "column %s should be removed", f)
		assert.False(t, st.HasColumn(CanonicalName(f)), "column %s should be removed", CanonicalName(f))
		for _, row := range st.Rows {
			_, ok := row.Value(f)
			assert.False(t, ok)
			_, ok = row.Value(CanonicalName(f))
			assert.False(t, ok)
		}
	}
}

func TestStandardizeCanonicalizesColumns(t *testing.T) {
	raw := &models.RawStatementTable{Records: []models.RawRecord{
		record("2023", map[string]any{"Total Assets": 10.0, "netIncome": 5.0, "date": "2023-12-31"}),
	}}
	st := mustStandardize(t, raw)

	assert.Equal(t, []string{"date", "netincome", "total_assets"}, st.Columns)
	v, ok := st.Rows[0].Value("total_assets")
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
	v, _ = st.Rows[0].Value("date")
	assert.Equal(t, "2023-12-31", v)
}

func TestStandardizeDoesNotMutateInput(t *testing.T) {
	raw := sampleIncomeStatement()
	_ = mustStandardize(t, raw)

	assert.Equal(t, "2023", raw.Records[0]["calendarYear"])
	assert.Equal(t, "AAPL", raw.Records[0]["symbol"])
	assert.Contains(t, raw.Records[0], "grossProfit")
}

func TestStandardizeTiedMaximumYear(t *testing.T) {
	raw := &models.RawStatementTable{Records: []models.RawRecord{
		record("2023", nil),
		record("2023", nil),
		record("2022", nil),
	}}
	st := mustStandardize(t, raw)

	assert.Equal(t, "t", st.Rows[0].Period)
	assert.Equal(t, "t", st.Rows[1].Period)
	assert.Equal(t, "t-1", st.Rows[2].Period)
}

func TestStandardizeYearTypes(t *testing.T) {
	tests := []struct {
		name string
		year any
	}{
		{"string", "2023"},
		{"padded string", " 2023 "},
		{"float", 2023.0},
		{"int", 2023},
		{"float string", "2023.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &models.RawStatementTable{Records: []models.RawRecord{record(tt.year, nil), record("2021", nil)}}
			st := mustStandardize(t, raw)
			assert.Equal(t, "t", st.Rows[0].Period)
			assert.Equal(t, "t-2", st.Rows[1].Period)
		})
	}
}

func TestStandardizeErrors(t *testing.T) {
	noYear := identity("2023")
	delete(noYear, "calendarYear")

	noLinks := identity("2023")
	delete(noLinks, "link")
	delete(noLinks, "finalLink")
	delete(noLinks, "cik")

	tests := []struct {
		name  string
		raw   *models.RawStatementTable
		check func(t *testing.T, err error)
	}{
		{
			name: "nil table",
			raw:  nil,
			check: func(t *testing.T, err error) {
				var target *EmptyInputError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name: "no records",
			raw:  &models.RawStatementTable{Kind: models.CashFlow},
			check: func(t *testing.T, err error) {
				var target *EmptyInputError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, models.CashFlow, target.Kind)
			},
		},
		{
			name: "missing calendarYear",
			raw:  &models.RawStatementTable{Records: []models.RawRecord{noYear}},
			check: func(t *testing.T, err error) {
				var target *MissingFieldError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, []string{"calendarYear"}, target.Fields)
			},
		},
		{
			name: "non-numeric year",
			raw:  &models.RawStatementTable{Records: []models.RawRecord{record("2023", nil), record("FY22", nil), record(true, nil)}},
			check: func(t *testing.T, err error) {
				var target *InvalidYearError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, []string{`"FY22"`, "true"}, target.Values)
				assert.Contains(t, err.Error(), "FY22")
			},
		},
		{
			name: "year absent from one record",
			raw:  &models.RawStatementTable{Records: []models.RawRecord{record("2023", nil), noYear}},
			check: func(t *testing.T, err error) {
				var target *InvalidYearError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name: "year out of integer range",
			raw: &models.RawStatementTable{Records: []models.RawRecord{
				record("2023", nil), record(1e20, nil), record("99999999999999999999", nil),
				record(int64(math.MaxInt32)+1, nil), record("3e10", nil),
			}},
			check: func(t *testing.T, err error) {
				var target *InvalidYearError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, []string{"1e+20", `"99999999999999999999"`, "2147483648", `"3e10"`}, target.Values)
			},
		},
		{
			name: "years below floor",
			raw:  &models.RawStatementTable{Records: []models.RawRecord{record("1850", nil), record("1899", nil)}},
			check: func(t *testing.T, err error) {
				var target *InvalidYearError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 1899, target.MaxYear)
			},
		},
		{
			name: "missing identity fields",
			raw:  &models.RawStatementTable{Records: []models.RawRecord{noLinks}},
			check: func(t *testing.T, err error) {
				var target *MissingFieldError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, []string{"cik", "link", "finalLink"}, target.Fields)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Standardize(tt.raw)
			require.Error(t, err)
			assert.Nil(t, st)
			assert.True(t, errors.Is(err, ErrStructural))
			tt.check(t, err)
		})
	}
}

func TestCanonicalNameIdempotent(t *testing.T) {
	names := []string{"totalAssets", "Total Current Assets", "already_canonical", "", "EBITDA"}
	for _, n := range names {
		once := CanonicalName(n)
		assert.Equal(t, once, CanonicalName(once), "CanonicalName(%q)", n)
	}
	assert.Equal(t, "total_current_assets", CanonicalName("Total Current Assets"))
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "t", PeriodLabel(2023, 2023))
	assert.Equal(t, "t-1", PeriodLabel(2022, 2023))
	assert.Equal(t, "t-10", PeriodLabel(2013, 2023))
}

// ── Balance sheet ratios ──

func TestBalanceSheetRatios(t *testing.T) {
	st := mustStandardize(t, sampleBalanceSheet())
	out, err := BalanceSheetRatios(st)
	require.NoError(t, err)

	row := out.Rows[0]
	assert.InDelta(t, 2.0, ratioValue(t, row.Ratio(RatioCurrent)), 1e-9)
	assert.InDelta(t, 0.6, ratioValue(t, row.Ratio(RatioQuick)), 1e-9)
	assert.InDelta(t, 2.0, ratioValue(t, row.Ratio(RatioDebtToEquity)), 1e-9)
	assert.InDelta(t, 300.0/450.0, ratioValue(t, row.Ratio(RatioDebt)), 1e-9)
	assert.InDelta(t, 0.4, ratioValue(t, row.Ratio(RatioNetDebtToEquity)), 1e-9)
	assert.InDelta(t, 150.0/450.0, ratioValue(t, row.Ratio(RatioEquity)), 1e-9)

	assert.Equal(t, []string{
		RatioCurrent, RatioQuick, RatioDebtToEquity, RatioDebt, RatioNetDebtToEquity, RatioEquity,
	}, out.RatioColumns)
}

func TestBalanceSheetRatiosZeroDivisor(t *testing.T) {
	st := mustStandardize(t, sampleBalanceSheet())
	out, err := BalanceSheetRatios(st)
	require.NoError(t, err)

	// t-1 has zero current liabilities.
	row := out.Rows[1]
	_, ok := row.Ratio(RatioCurrent).Float64()
	assert.False(t, ok)
	_, ok = row.Ratio(RatioQuick).Float64()
	assert.False(t, ok)
	assert.Equal(t, "NaN", row.Ratio(RatioCurrent).String())
	assert.InDelta(t, 2.0, ratioValue(t, row.Ratio(RatioDebtToEquity)), 1e-9)
	assert.InDelta(t, 280.0/420.0, ratioValue(t, row.Ratio(RatioDebt)), 1e-9)

	// t-2 has zero equity.
	row = out.Rows[2]
	_, ok = row.Ratio(RatioDebtToEquity).Float64()
	assert.False(t, ok)
	_, ok = row.Ratio(RatioNetDebtToEquity).Float64()
	assert.False(t, ok)
	assert.InDelta(t, 0.0, ratioValue(t, row.Ratio(RatioEquity)), 1e-9)
}

func TestBalanceSheetRatiosMissingCell(t *testing.T) {
	raw := sampleBalanceSheet()
	delete(raw.Records[0], "netReceivables")
	raw.Records[0]["totalDebt"] = "n/a"

	out, err := BalanceSheetRatios(mustStandardize(t, raw))
	require.NoError(t, err)

	row := out.Rows[0]
	_, ok := row.Ratio(RatioQuick).Float64()
	assert.False(t, ok)
	_, ok = row.Ratio(RatioNetDebtToEquity).Float64()
	assert.False(t, ok)
	assert.InDelta(t, 2.0, ratioValue(t, row.Ratio(RatioCurrent)), 1e-9)
}

func TestBalanceSheetRatiosMissingColumns(t *testing.T) {
	raw := sampleBalanceSheet()
	for _, r := range raw.Records {
		delete(r, "totalDebt")
		delete(r, "totalAssets")
	}
	_, err := BalanceSheetRatios(mustStandardize(t, raw))

	var target *MissingColumnError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, []string{ColTotalDebt, ColTotalAssets}, target.Columns)
	assert.ErrorIs(t, err, ErrStructural)
}

func TestBalanceSheetRatiosDoesNotMutateInput(t *testing.T) {
	st := mustStandardize(t, sampleBalanceSheet())
	_, err := BalanceSheetRatios(st)
	require.NoError(t, err)

	assert.Empty(t, st.RatioColumns)
	assert.Nil(t, st.Rows[0].Ratios)
}

// ── Income statement ratios ──

func TestIncomeStatementRatios(t *testing.T) {
	out, err := IncomeStatementRatios(mustStandardize(t, sampleIncomeStatement()))
	require.NoError(t, err)

	row := out.Rows[0]
	assert.InDelta(t, 0.4, ratioValue(t, row.Ratio(RatioGrossProfitMargin)), 1e-9)
	assert.InDelta(t, 0.3, ratioValue(t, row.Ratio(RatioOperatingProfitMargin)), 1e-9)
	assert.InDelta(t, 0.2, ratioValue(t, row.Ratio(RatioNetProfitMargin)), 1e-9)
	assert.InDelta(t, 0.35, ratioValue(t, row.Ratio(RatioEBITDAMargin)), 1e-9)
	assert.InDelta(t, 2.0, ratioValue(t, row.Ratio(RatioEPS)), 1e-9)
	assert.InDelta(t, 1.6, ratioValue(t, row.Ratio(RatioEPSDiluted)), 1e-9)

	row = out.Rows[1]
	_, ok := row.Ratio(RatioEPSDiluted).Float64()
	assert.False(t, ok)
	assert.InDelta(t, 1.6, ratioValue(t, row.Ratio(RatioEPS)), 1e-9)
}

func TestIncomeStatementRatiosMissingColumns(t *testing.T) {
	raw := sampleIncomeStatement()
	for _, r := range raw.Records {
		delete(r, "revenue")
	}
	_, err := IncomeStatementRatios(mustStandardize(t, raw))

	var target *MissingColumnError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, []string{ColRevenue}, target.Columns)
	assert.Equal(t, models.IncomeStatement, target.Kind)
}

// ── Cash flow metrics ──

func TestCashFlowMetricsWithSiblings(t *testing.T) {
	cf := mustStandardize(t, sampleCashFlow())
	bs := mustStandardize(t, sampleBalanceSheet())
	is := mustStandardize(t, sampleIncomeStatement())

	out, err := CashFlowMetrics(cf, is, bs)
	require.NoError(t, err)

	row := out.Rows[0]
	assert.InDelta(t, 0.333, ratioValue(t, row.Ratio(RatioReinvestment)), 1e-3)
	assert.InDelta(t, 0.2, ratioValue(t, row.Ratio(RatioDividendPayout)), 1e-9)
	assert.InDelta(t, 1.25, ratioValue(t, row.Ratio(RatioCashConversion)), 1e-9)
	assert.InDelta(t, 0.5, ratioValue(t, row.Ratio(RatioOperatingCashFlow)), 1e-9)
	assert.InDelta(t, 0.15, ratioValue(t, row.Ratio(RatioCashFlowMargin)), 1e-9)
	assert.InDelta(t, 0.1, ratioValue(t, row.Ratio(RatioFCFToRevenue)), 1e-9)

	assert.Equal(t, []string{
		RatioOperatingCashFlow, RatioCashFlowMargin, RatioReinvestment,
		RatioDividendPayout, RatioFCFToRevenue, RatioCashConversion,
	}, out.RatioColumns)
}

func TestCashFlowMetricsFirstRowBroadcast(t *testing.T) {
	raw := sampleCashFlow()
	raw.Records = append(raw.Records, record("2022", map[string]any{
		"netCashProvidedByOperatingActivities": 60.0, "freeCashFlow": 40.0,
		"dividendsPaid": 10.0, "netIncome": 50.0, "investmentsInPropertyPlantAndEquipment": 20.0,
	}))
	cf := mustStandardize(t, raw)
	bs := mustStandardize(t, sampleBalanceSheet())

	out, err := CashFlowMetrics(cf, nil, bs)
	require.NoError(t, err)

	// Both periods divide by the balance sheet's first-row liabilities (300).
	assert.InDelta(t, 0.5, ratioValue(t, out.Rows[0].Ratio(RatioOperatingCashFlow)), 1e-9)
	assert.InDelta(t, 0.2, ratioValue(t, out.Rows[1].Ratio(RatioOperatingCashFlow)), 1e-9)
	assert.NotContains(t, out.RatioColumns, RatioCashFlowMargin)
	assert.NotContains(t, out.RatioColumns, RatioFCFToRevenue)
}

func TestCashFlowMetricsWithoutSiblings(t *testing.T) {
	out, err := CashFlowMetrics(mustStandardize(t, sampleCashFlow()), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{RatioReinvestment, RatioDividendPayout, RatioCashConversion}, out.RatioColumns)
	_, present := out.Rows[0].Ratios[RatioOperatingCashFlow]
	assert.False(t, present)
}

func TestCashFlowMetricsSiblingWithoutColumn(t *testing.T) {
	bs := &models.StatementTable{Kind: models.BalanceSheet, Columns: []string{"totalassets"},
		Rows: []models.Row{{Period: "t", Values: map[string]any{"totalassets": 10.0}}}}

	out, err := CashFlowMetrics(mustStandardize(t, sampleCashFlow()), nil, bs)
	require.NoError(t, err)

	_, ok := out.Rows[0].Ratio(RatioOperatingCashFlow).Float64()
	assert.False(t, ok)
	assert.InDelta(t, 0.2, ratioValue(t, out.Rows[0].Ratio(RatioDividendPayout)), 1e-9)
}

func TestCashFlowMetricsMissingColumns(t *testing.T) {
	raw := sampleCashFlow()
	delete(raw.Records[0], "freeCashFlow")
	delete(raw.Records[0], "dividendsPaid")
	cf := mustStandardize(t, raw)

	_, err := CashFlowMetrics(cf, mustStandardize(t, sampleIncomeStatement()), mustStandardize(t, sampleBalanceSheet()))

	var target *MissingColumnError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, []string{ColFreeCashFlow, ColDividendsPaid}, target.Columns)
	assert.Contains(t, err.Error(), "freecashflow")
	assert.Contains(t, err.Error(), "dividendspaid")
}

func TestCashFlowMetricsNilTable(t *testing.T) {
	_, err := CashFlowMetrics(nil, nil, nil)
	var target *EmptyInputError
	assert.ErrorAs(t, err, &target)
}
