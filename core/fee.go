// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"math/big"

	"github.com/luxfi/stableswap/wad"
)

// Default high-coverage fee band. Swaps pushing the sending asset's
// coverage ratio into [start, end] pay a fee rising linearly to 100% at
// end; above end the swap is rejected outright.
var (
	DefaultCovRatioFeeStart = big.NewInt(1_500_000_000_000_000_000) // 1.5
	DefaultCovRatioFeeEnd   = big.NewInt(1_800_000_000_000_000_000) // 1.8
)

// HighCovRatioFeeRate returns the extra fee rate (WAD fraction of the swap
// output) charged when the sending asset's post-swap coverage ratio rAfter
// lands inside the band [start, end]:
//
//	rate = (rAfter - start) / (end - start)
//
// Zero below start, WAD (100%) at end, ErrCovRatioLimitExceeded above end.
// The rate is non-decreasing in rAfter, which makes the reverse quote
// solvable by bisection.
func HighCovRatioFeeRate(rAfter, start, end *big.Int) (*big.Int, error) {
	if rAfter.Cmp(end) > 0 {
		return nil, ErrCovRatioLimitExceeded
	}
	if rAfter.Cmp(start) <= 0 {
		return big.NewInt(0), nil
	}
	num := new(big.Int).Sub(rAfter, start)
	return wad.Div(num, new(big.Int).Sub(end, start)), nil
}
