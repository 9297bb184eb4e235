package statistics

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatCurrency renders whole dollars with thousands separators, e.g.
// "$1,250" or "-$40".
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	s := "$" + humanize.Comma(rounded.Abs().IntPart())
	if rounded.IsNegative() {
		return "-" + s
	}
	return s
}

// FormatPercentage renders value with the given number of decimals.
func FormatPercentage(value float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", max(decimals, 0), value)
}
