// Package prompts holds the instruction templates sent to the LLM.
package prompts

import (
	"fmt"
	"strings"
)

// earningsSteps is the fixed chain-of-thought procedure for an earnings call.
var earningsSteps = []string{
	"Identify key trends in the financial line items provided.",
	"Compute key financial ratios, including profitability, liquidity, leverage, and efficiency ratios.",
	"Provide a narrative interpretation of the computed ratios, focusing on their implications for financial performance.",
	"Based on the trends and ratio analysis, predict whether earnings will increase or decrease in the next period, and explain your reasoning clearly.",
}

// EarningsCoT builds the user prompt asking whether earnings will rise or
// fall next period. The three arguments are rendered statement tables.
func EarningsCoT(balanceSheet, incomeStatement, cashFlow string) string {
	var b strings.Builder
	b.WriteString("You are a financial analyst. Analyze the following financial data step-by-step ")
	b.WriteString("to predict whether earnings will increase or decrease in the next period. Follow these steps:\n")
	for i, step := range earningsSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "Balance Sheet:\n%s\n\n", balanceSheet)
	fmt.Fprintf(&b, "Income Statement:\n%s\n\n", incomeStatement)
	fmt.Fprintf(&b, "Cash Flow:\n%s\n\n", cashFlow)
	return b.String()
}
