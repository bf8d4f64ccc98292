package ledger

import "github.com/shopspring/decimal"

// calculateReturnAndAdditional fills TotalAmount, ReturnAmount and
// AdditionalPayment on the report.
//
// TotalAmount derives from the line items when not set manually. Manual
// return/additional amounts always win over computed ones; in the automatic
// path the two are mutually exclusive (spending less than issued yields a
// return, spending more yields a top-up). Manual overrides may set both at
// once and the engine posts both as-is.
func calculateReturnAndAdditional(report *AdvanceReport, advanceAmount, additionalIssued decimal.Decimal) {
	totalIssued := advanceAmount.Add(additionalIssued)

	if report.TotalAmount.IsZero() {
		sum := decimal.Zero
		for _, item := range report.Items {
			sum = sum.Add(item.Amount)
		}
		report.TotalAmount = sum
	}

	switch {
	case report.ManualReturnAmount.IsPositive():
		report.ReturnAmount = report.ManualReturnAmount
	case report.TotalAmount.LessThan(totalIssued):
		report.ReturnAmount = totalIssued.Sub(report.TotalAmount)
	default:
		report.ReturnAmount = decimal.Zero
	}

	switch {
	case report.ManualAdditionalPayment.IsPositive():
		report.AdditionalPayment = report.ManualAdditionalPayment
	case report.TotalAmount.GreaterThan(totalIssued):
		report.AdditionalPayment = report.TotalAmount.Sub(totalIssued)
	default:
		report.AdditionalPayment = decimal.Zero
	}
}
