package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// KgPerTonne is the switch-over point between kg and MT display.
const KgPerTonne = 1000

// FormatWeight renders a kilogram value for display.
// 1000 kg and above is shown in metric tonnes, both with two decimals.
func FormatWeight(kg float64) string {
	if kg >= KgPerTonne {
		return fmt.Sprintf("%.2f MT", kg/KgPerTonne)
	}
	return fmt.Sprintf("%.2f kg", kg)
}

// FormatWeightPtr is FormatWeight for optional values; nil renders as "-".
func FormatWeightPtr(kg *float64) string {
	if kg == nil {
		return "-"
	}
	return FormatWeight(*kg)
}

// FormatCurrency renders an amount in rupees with Indian digit grouping
// (12,34,567) and between zero and two fraction digits.
func FormatCurrency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	whole := d.Truncate(0)
	frac := d.Sub(whole)

	out := "₹" + groupIndian(whole.String())
	if !frac.IsZero() {
		// "0.5" -> ".5", "0.25" -> ".25"
		out += strings.TrimPrefix(frac.String(), "0")
	}
	return sign + out
}

// groupIndian inserts separators after the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// FormatPercent renders a percentage with up to two decimals, "-" for nil.
func FormatPercent(p *float64) string {
	if p == nil {
		return "-"
	}
	return decimal.NewFromFloat(*p).Round(2).String() + "%"
}
