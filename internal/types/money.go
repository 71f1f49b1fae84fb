// README: Common money value object used across modules.
package types

import (
	"fmt"
	"strings"
)

// Money is an amount in integer cents (BRL).
type Money int64

// BRL renders the amount as a Brazilian currency string, e.g. "R$ 1.234,56".
func (m Money) BRL() string {
	cents := int64(m)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	return fmt.Sprintf("%sR$ %s,%02d", sign, strings.Join(groups, "."), frac)
}
