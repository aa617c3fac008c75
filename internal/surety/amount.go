package surety

import (
	"fmt"
	"math/big"
	"strings"
)

var units = map[string]*big.Int{
	"wei":   big.NewInt(1),
	"gwei":  big.NewInt(1_000_000_000),
	"ether": big.NewInt(1_000_000_000_000_000_000),
}

// Ether returns n ether expressed in wei.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), units["ether"])
}

// ParseAmount parses "1.5 ether", "2 gwei", "1000 wei" or a bare wei integer.
func ParseAmount(s string) (*big.Int, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	unit := units["wei"]
	if len(fields) == 2 {
		u, ok := units[strings.ToLower(fields[1])]
		if !ok {
			return nil, fmt.Errorf("unknown unit %q in amount %q", fields[1], s)
		}
		unit = u
	}

	r, ok := new(big.Rat).SetString(fields[0])
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt(unit))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q is not a whole number of wei", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatEther renders a wei amount in ether, trimming trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0 ether"
	}
	r := new(big.Rat).SetFrac(wei, units["ether"])
	s := strings.TrimRight(r.FloatString(18), "0")
	return strings.TrimSuffix(s, ".") + " ether"
}

// RefundFor is the credit owed on an airline-caused delay: 1.5x the premium,
// rounded down to whole wei. An odd premium loses half a wei.
func RefundFor(paid *big.Int) *big.Int {
	refund := new(big.Int).Mul(paid, big.NewInt(3))
	return refund.Quo(refund, big.NewInt(2))
}
