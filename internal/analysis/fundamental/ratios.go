package fundamental

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/earningsai/pkg/models"
)

// Canonical column names used as ratio inputs.
const (
	ColTotalCurrentAssets       = "totalcurrentassets"
	ColTotalCurrentLiabilities  = "totalcurrentliabilities"
	ColCashAndCashEquivalents   = "cashandcashequivalents"
	ColShortTermInvestments     = "shortterminvestments"
	ColNetReceivables           = "netreceivables"
	ColTotalLiabilities         = "totalliabilities"
	ColTotalStockholdersEquity  = "totalstockholdersequity"
	ColTotalDebt                = "totaldebt"
	ColTotalAssets              = "totalassets"
	ColGrossProfit              = "grossprofit"
	ColOperatingIncome          = "operatingincome"
	ColNetIncome                = "netincome"
	ColEBITDA                   = "ebitda"
	ColRevenue                  = "revenue"
	ColWeightedAverageShsOut    = "weightedaverageshsout"
	ColWeightedAverageShsOutDil = "weightedaverageshsoutdil"
	ColOperatingCashFlow        = "netcashprovidedbyoperatingactivities"
	ColFreeCashFlow             = "freecashflow"
	ColDividendsPaid            = "dividendspaid"
	ColCapex                    = "investmentsinpropertyplantandequipment"
)

// Derived column names.
const (
	RatioCurrent               = "current_ratio"
	RatioQuick                 = "quick_ratio"
	RatioDebtToEquity          = "debt_to_equity_ratio"
	RatioDebt                  = "debt_ratio"
	RatioNetDebtToEquity       = "net_debt_to_equity_ratio"
	RatioEquity                = "equity_ratio"
	RatioGrossProfitMargin     = "gross_profit_margin"
	RatioOperatingProfitMargin = "operating_profit_margin"
	RatioNetProfitMargin       = "net_profit_margin"
	RatioEBITDAMargin          = "ebitda_margin"
	RatioEPS                   = "eps"
	RatioEPSDiluted            = "eps_diluted"
	RatioOperatingCashFlow     = "operating_cash_flow_ratio"
	RatioCashFlowMargin        = "cash_flow_margin"
	RatioReinvestment          = "reinvestment_ratio"
	RatioDividendPayout        = "dividend_payout_ratio"
	RatioFCFToRevenue          = "fcf_to_revenue"
	RatioCashConversion        = "cash_conversion_efficiency"
)

// BalanceSheetColumns are the inputs required by BalanceSheetRatios.
var BalanceSheetColumns = []string{
	ColTotalCurrentAssets, ColTotalCurrentLiabilities, ColCashAndCashEquivalents,
	ColShortTermInvestments, ColNetReceivables, ColTotalLiabilities,
	ColTotalStockholdersEquity, ColTotalDebt, ColTotalAssets,
}

// IncomeStatementColumns are the inputs required by IncomeStatementRatios.
var IncomeStatementColumns = []string{
	ColGrossProfit, ColOperatingIncome, ColNetIncome, ColEBITDA, ColRevenue,
	ColWeightedAverageShsOut, ColWeightedAverageShsOutDil,
}

// CashFlowColumns are the inputs required by CashFlowMetrics.
var CashFlowColumns = []string{
	ColOperatingCashFlow, ColFreeCashFlow, ColDividendsPaid, ColNetIncome, ColCapex,
}

// BalanceSheetRatios derives liquidity and leverage ratios per period.
func BalanceSheetRatios(bs *models.StatementTable) (*models.StatementTable, error) {
	out, err := prepare(bs, models.BalanceSheet, BalanceSheetColumns)
	if err != nil {
		return nil, err
	}
	for i := range out.Rows {
		c := cells(out.Rows[i])
		cash := c.get(ColCashAndCashEquivalents)
		equity := c.get(ColTotalStockholdersEquity)
		liabilities := c.get(ColTotalLiabilities)
		assets := c.get(ColTotalAssets)
		currentLiabilities := c.get(ColTotalCurrentLiabilities)

		set(&out.Rows[i], RatioCurrent, divide(c.get(ColTotalCurrentAssets), currentLiabilities))
		set(&out.Rows[i], RatioQuick, divide(sum(cash, c.get(ColShortTermInvestments), c.get(ColNetReceivables)), currentLiabilities))
		set(&out.Rows[i], RatioDebtToEquity, divide(liabilities, equity))
		set(&out.Rows[i], RatioDebt, divide(liabilities, assets))
		set(&out.Rows[i], RatioNetDebtToEquity, divide(difference(c.get(ColTotalDebt), cash), equity))
		set(&out.Rows[i], RatioEquity, divide(equity, assets))
	}
	out.RatioColumns = append(out.RatioColumns,
		RatioCurrent, RatioQuick, RatioDebtToEquity, RatioDebt, RatioNetDebtToEquity, RatioEquity)
	return out, nil
}

// IncomeStatementRatios derives margins and per-share earnings per period.
func IncomeStatementRatios(is *models.StatementTable) (*models.StatementTable, error) {
	out, err := prepare(is, models.IncomeStatement, IncomeStatementColumns)
	if err != nil {
		return nil, err
	}
	for i := range out.Rows {
		c := cells(out.Rows[i])
		revenue := c.get(ColRevenue)
		netIncome := c.get(ColNetIncome)

		set(&out.Rows[i], RatioGrossProfitMargin, divide(c.get(ColGrossProfit), revenue))
		set(&out.Rows[i], RatioOperatingProfitMargin, divide(c.get(ColOperatingIncome), revenue))
		set(&out.Rows[i], RatioNetProfitMargin, divide(netIncome, revenue))
		set(&out.Rows[i], RatioEBITDAMargin, divide(c.get(ColEBITDA), revenue))
		set(&out.Rows[i], RatioEPS, divide(netIncome, c.get(ColWeightedAverageShsOut)))
		set(&out.Rows[i], RatioEPSDiluted, divide(netIncome, c.get(ColWeightedAverageShsOutDil)))
	}
	out.RatioColumns = append(out.RatioColumns,
		RatioGrossProfitMargin, RatioOperatingProfitMargin, RatioNetProfitMargin,
		RatioEBITDAMargin, RatioEPS, RatioEPSDiluted)
	return out, nil
}

// CashFlowMetrics derives cash-flow ratios per period. The income and balance
// tables are optional; when given, total liabilities and revenue are taken
// from their FIRST row and applied to every cash-flow period alike. This
// assumes all three tables list periods in the same order and is kept as a
// known simplification rather than a period-keyed join.
func CashFlowMetrics(cf, income, balance *models.StatementTable) (*models.StatementTable, error) {
	out, err := prepare(cf, models.CashFlow, CashFlowColumns)
	if err != nil {
		return nil, err
	}

	var liabilities, revenue operand
	if balance != nil {
		liabilities = firstRowValue(balance, ColTotalLiabilities)
		out.RatioColumns = append(out.RatioColumns, RatioOperatingCashFlow)
	}
	if income != nil {
		revenue = firstRowValue(income, ColRevenue)
		out.RatioColumns = append(out.RatioColumns, RatioCashFlowMargin)
	}
	out.RatioColumns = append(out.RatioColumns, RatioReinvestment, RatioDividendPayout)
	if income != nil {
		out.RatioColumns = append(out.RatioColumns, RatioFCFToRevenue)
	}
	out.RatioColumns = append(out.RatioColumns, RatioCashConversion)

	for i := range out.Rows {
		c := cells(out.Rows[i])
		ocf := c.get(ColOperatingCashFlow)
		fcf := c.get(ColFreeCashFlow)

		if balance != nil {
			set(&out.Rows[i], RatioOperatingCashFlow, divide(ocf, liabilities))
		}
		if income != nil {
			set(&out.Rows[i], RatioCashFlowMargin, divide(ocf, revenue))
			set(&out.Rows[i], RatioFCFToRevenue, divide(fcf, revenue))
		}
		set(&out.Rows[i], RatioReinvestment, divide(c.get(ColCapex), ocf))
		set(&out.Rows[i], RatioDividendPayout, divide(c.get(ColDividendsPaid), fcf))
		set(&out.Rows[i], RatioCashConversion, divide(ocf, c.get(ColNetIncome)))
	}
	return out, nil
}

// prepare checks required columns and returns a copy ready for new ratios.
func prepare(t *models.StatementTable, kind models.StatementKind, required []string) (*models.StatementTable, error) {
	if t == nil {
		return nil, &EmptyInputError{Kind: kind}
	}
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		k := t.Kind
		if k == "" {
			k = kind
		}
		return nil, &MissingColumnError{Kind: k, Columns: missing}
	}
	return t.Clone(), nil
}

// operand is a numeric cell that may be undefined.
type operand struct {
	value decimal.Decimal
	ok    bool
}

type cells models.Row

func (c cells) get(col string) operand {
	v, ok := c.Values[col]
	if !ok {
		return operand{}
	}
	return toOperand(v)
}

func firstRowValue(t *models.StatementTable, col string) operand {
	if t.Len() == 0 {
		return operand{}
	}
	return cells(t.Rows[0]).get(col)
}

func toOperand(v any) operand {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return operand{}
		}
		return operand{decimal.NewFromFloat(n), true}
	case float32:
		return toOperand(float64(n))
	case int:
		return operand{decimal.NewFromInt(int64(n)), true}
	case int64:
		return operand{decimal.NewFromInt(n), true}
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return operand{}
		}
		return operand{d, true}
	case decimal.Decimal:
		return operand{n, true}
	default:
		return operand{}
	}
}

func divide(num, den operand) models.Ratio {
	if !num.ok || !den.ok || den.value.IsZero() {
		return models.UndefinedRatio()
	}
	return models.NewRatio(num.value.Div(den.value))
}

func sum(ops ...operand) operand {
	total := decimal.Zero
	for _, o := range ops {
		if !o.ok {
			return operand{}
		}
		total = total.Add(o.value)
	}
	return operand{total, true}
}

func difference(a, b operand) operand {
	if !a.ok || !b.ok {
		return operand{}
	}
	return operand{a.value.Sub(b.value), true}
}

func set(row *models.Row, name string, r models.Ratio) {
	if row.Ratios == nil {
		row.Ratios = make(map[string]models.Ratio)
	}
	row.Ratios[name] = r
}
