// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package core implements the invariant-curve pricing math shared by all
// pools: the closed-form invariant D, the quadratic coverage-ratio solver
// for swaps, equilibrium-preserving deposit/withdrawal amounts, credit
// conversion, and the high-coverage-ratio fee curve.
//
// Every quantity is WAD (1e18) fixed point on *big.Int. Cash and liability
// are per-asset; the coverage ratio r = cash/liability measures how well an
// asset backs its LP claims. The invariant for a set of assets is
//
//	D = sum_i L_i * (r_i - amp/r_i)
//
// which swaps must hold constant.
package core

import (
	"errors"
	"math/big"

	"github.com/luxfi/stableswap/wad"
)

// Errors - invariant solver
var (
	ErrZeroLiability         = errors.New("zero liability")
	ErrNoValidRoot           = errors.New("no valid coverage ratio root")
	ErrCovRatioLimitExceeded = errors.New("coverage ratio limit exceeded")
)

var two = big.NewInt(2)

// AssetValue returns L*(r - amp/r), the asset's contribution to the
// invariant D. Algebraically equal to cash - amp*liability^2/cash.
// An asset with zero cash contributes nothing.
func AssetValue(cash, liability, amp *big.Int) *big.Int {
	if cash.Sign() == 0 {
		return big.NewInt(0)
	}
	l2 := wad.Mul(liability, liability)
	return new(big.Int).Sub(cash, wad.Mul(amp, wad.Div(l2, cash)))
}

// Invariant computes D for a two-asset system.
//
// Invariant(10000, 1000, 10000, 1000, 0.05) = 10450 (all WAD).
func Invariant(ax, ay, lx, ly, amp *big.Int) *big.Int {
	d := AssetValue(ax, lx, amp)
	return d.Add(d, AssetValue(ay, ly, amp))
}

// CoverageX returns the sending asset's coverage ratio after applying the
// input delta dx: (ax + dx) / lx.
func CoverageX(ax, lx, dx *big.Int) (*big.Int, error) {
	if lx.Sign() == 0 {
		return nil, ErrZeroLiability
	}
	return wad.Div(new(big.Int).Add(ax, dx), lx), nil
}

// Coefficient returns the linear coefficient b of the quadratic
// ry^2 + b*ry - amp = 0 solved for the receiving asset's post-swap
// coverage ratio:
//
//	b = (lx*(rx - amp/rx) - D) / ly
func Coefficient(lx, ly, rx, d, amp *big.Int) *big.Int {
	v := new(big.Int).Sub(rx, wad.Div(amp, rx))
	b := wad.Div(wad.Mul(lx, v), ly)
	return b.Sub(b, wad.Div(d, ly))
}

// CoverageY solves ry^2 + b*ry - amp = 0 for the receiving asset's
// post-swap coverage ratio. The discriminant b^2 + 4*amp is non-negative
// for any amp >= 0 and the larger root (-b + sqrt(disc))/2 is the unique
// non-negative one; a non-positive root means the curve has no valid
// post-swap state for these inputs.
func CoverageY(b, amp *big.Int) (*big.Int, error) {
	disc := wad.Mul(b, b)
	disc.Add(disc, new(big.Int).Mul(amp, big.NewInt(4)))
	if disc.Sign() < 0 {
		return nil, ErrNoValidRoot
	}
	ry := wad.Sqrt(disc)
	ry.Sub(ry, b)
	ry.Quo(ry, two)
	if ry.Sign() <= 0 {
		return nil, ErrNoValidRoot
	}
	return ry, nil
}

// DeltaY converts the receiving asset's ratio change into a cash delta:
// ly*ry - ay. Negative for a normal swap (tokens leave the pool).
func DeltaY(ay, ly, ry *big.Int) *big.Int {
	return new(big.Int).Sub(wad.Mul(ly, ry), ay)
}

// SwapQuote prices a swap of dx units of asset x into asset y, holding the
// invariant constant. Returns the gross output amount before any haircut.
//
// SwapQuote(10000, 1000, 10000, 1000, 100, 0.05) = 99.430096462356289000.
func SwapQuote(ax, ay, lx, ly, dx, amp *big.Int) (*big.Int, error) {
	if lx.Sign() == 0 || ly.Sign() == 0 {
		return nil, ErrZeroLiability
	}
	d := Invariant(ax, ay, lx, ly, amp)
	rx, err := CoverageX(ax, lx, dx)
	if err != nil {
		return nil, err
	}
	b := Coefficient(lx, ly, rx, d, amp)
	ry, err := CoverageY(b, amp)
	if err != nil {
		return nil, err
	}
	out := DeltaY(ay, ly, ry)
	out.Neg(out)
	if out.Sign() < 0 {
		return nil, ErrNoValidRoot
	}
	return out, nil
}
