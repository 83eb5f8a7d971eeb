// Package stats aggregates enriched records and daily event sets.
package stats

import (
	"math/big"
	"sort"
)

// DefaultDecimals is the fixed-point scale of the token and of native fees.
const DefaultDecimals = 18

func scale(decimals uint8) *big.Rat {
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetInt(denom)
}

// descale divides value by 10^decimals.
func descale(value *big.Rat, decimals uint8) float64 {
	if value == nil {
		return 0
	}
	out, _ := new(big.Rat).Quo(value, scale(decimals)).Float64()
	return out
}

func ratOf(value *big.Int) *big.Rat {
	if value == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetInt(value)
}

func sum(values []*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

func mean(values []*big.Int) *big.Rat {
	if len(values) == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(sum(values), big.NewInt(int64(len(values))))
}

// median averages the two middle values when the count is even.
func median(values []*big.Int) *big.Rat {
	if len(values) == 0 {
		return new(big.Rat)
	}
	sorted := make([]*big.Int, len(values))
	for i, v := range values {
		if v == nil {
			v = new(big.Int)
		}
		sorted[i] = v
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return ratOf(sorted[mid])
	}
	pair := new(big.Int).Add(sorted[mid-1], sorted[mid])
	return new(big.Rat).SetFrac(pair, big.NewInt(2))
}
