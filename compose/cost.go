package compose

import (
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/money"
	"github.com/shopspring/decimal"
)

// LineTotal is unit cost times the number of selected serial numbers.
func LineTotal(line messages.SelectionLine) decimal.Decimal {
	return line.UnitCost.Decimal().Mul(decimal.NewFromInt(int64(len(line.SerialNumbers))))
}

// Recompute sums every line total plus the ancillary cost (logistics), which
// counts as zero when blank.
func Recompute(lines []messages.SelectionLine, ancillary string) decimal.Decimal {
	total := money.ToSafeNumber(ancillary)
	for _, line := range lines {
		total = total.Add(LineTotal(line))
	}
	return total
}
