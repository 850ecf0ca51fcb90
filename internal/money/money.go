package money

import (
	"fmt"
	"math"
)

// Cents is an amount in integer minor units. All money arithmetic inside the
// service happens on this type; float decimals exist only in wire payloads.
type Cents int64

// FromDecimal converts a wire-format decimal amount to minor units, rounding
// half away from zero so 47.295 and 47.305 land on different cents.
func FromDecimal(amount float64) Cents {
	return Cents(math.Round(amount * 100))
}

func (c Cents) Decimal() float64 {
	return float64(c) / 100
}

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
