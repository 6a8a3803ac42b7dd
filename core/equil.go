// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"math/big"

	"github.com/luxfi/stableswap/wad"
)

// EquilCovRatio returns the system-wide equilibrium coverage ratio r*, the
// uniform ratio every asset would sit at if the pool held the same invariant
// D with all assets balanced. Solves r - amp/r = D/sumLiability:
//
//	r* = (e + sqrt(e^2 + 4*amp)) / 2,  e = D / sumLiability
//
// r* = 1 exactly when every asset is fully covered.
func EquilCovRatio(d, sumLiability, amp *big.Int) (*big.Int, error) {
	if sumLiability.Sign() == 0 {
		return nil, ErrZeroLiability
	}
	e := wad.Div(d, sumLiability)
	disc := wad.Mul(e, e)
	disc.Add(disc, new(big.Int).Mul(amp, big.NewInt(4)))
	r := wad.Sqrt(disc)
	r.Add(r, e)
	return r.Quo(r, two), nil
}

// ExactDepositLiquidity returns the LP amount to mint for a deposit of
// amount into an asset with the given cash and liability, choosing the new
// liability L' so that the asset's contribution to the invariant grows in
// proportion to the global equilibrium ratio e = D/sumLiability. Solving
//
//	(cash+amount) - amp*L'^2/(cash+amount) = e*L'
//
// for L' gives the quadratic below. At global equilibrium the deposit mints
// exactly amount; below equilibrium it earns a small bonus, above it pays a
// small penalty, so deposits that restore balance are rewarded.
func ExactDepositLiquidity(amount, cash, liability, d, sumLiability, amp *big.Int) (*big.Int, error) {
	if liability.Sign() == 0 || sumLiability.Sign() == 0 {
		// First deposit defines the scale: 1 LP per token.
		return wad.Clone(amount), nil
	}
	k := new(big.Int).Add(cash, amount)
	if k.Sign() <= 0 {
		return nil, ErrNoValidRoot
	}
	e := wad.Div(d, sumLiability)
	f := AssetValue(cash, liability, amp)

	// c = k - f + e*L; quadratic amp*L'^2 + e*k*L' - k*c = 0 rearranged to
	// L' = k * (sqrt(e^2 + 4*amp*c/k) - e) / (2*amp).
	c := new(big.Int).Sub(k, f)
	c.Add(c, wad.Mul(e, liability))
	disc := wad.Mul(e, e)
	disc.Add(disc, new(big.Int).Lsh(wad.Mul(amp, wad.Div(c, k)), 2))
	if disc.Sign() < 0 {
		return nil, ErrNoValidRoot
	}
	s := wad.Sqrt(disc)
	s.Sub(s, e)
	lNew := wad.Div(wad.Mul(k, s), new(big.Int).Mul(amp, two))
	minted := lNew.Sub(lNew, liability)
	if minted.Sign() < 0 {
		return nil, ErrNoValidRoot
	}
	return minted, nil
}

// WithdrawalAmount is the inverse of ExactDepositLiquidity: the cash paid
// out for burning liquidity LP of an asset, again preserving the global
// equilibrium ratio. When the asset's coverage ratio is at or above 1 the
// payout is capped at 1:1; the withdrawal fee only applies below full
// coverage.
func WithdrawalAmount(liquidity, cash, liability, d, sumLiability, amp *big.Int) (*big.Int, error) {
	if liability.Sign() == 0 || sumLiability.Sign() == 0 {
		return nil, ErrZeroLiability
	}
	if liquidity.Cmp(liability) > 0 {
		return nil, ErrNoValidRoot
	}
	e := wad.Div(d, sumLiability)
	f := AssetValue(cash, liability, amp)
	lNew := new(big.Int).Sub(liability, liquidity)

	// New cash A' solves A' - amp*L'^2/A' = f - e*dL, the larger root of
	// A'^2 - F*A' - amp*L'^2 = 0.
	ff := new(big.Int).Sub(f, wad.Mul(e, liquidity))
	disc := wad.Mul(ff, ff)
	disc.Add(disc, new(big.Int).Lsh(wad.Mul(amp, wad.Mul(lNew, lNew)), 2))
	aNew := wad.Sqrt(disc)
	aNew.Add(aNew, ff)
	aNew.Quo(aNew, two)

	amount := new(big.Int).Sub(cash, aNew)
	if amount.Sign() < 0 {
		return nil, ErrNoValidRoot
	}
	if wad.Div(cash, liability).Cmp(wad.One) >= 0 && amount.Cmp(liquidity) > 0 {
		amount.Set(liquidity)
	}
	return amount, nil
}

// SwapToCreditQuote converts a token amount paid into an asset to credit,
// the chain-agnostic settlement unit. Credit is the invariant value the
// deposit adds, discounted by 1+amp so that a later redemption at
// equilibrium returns slightly less than par and the round trip can never
// mint value:
//
//	credit = L * ((r' - amp/r') - (r - amp/r)) / (1 + amp)
func SwapToCreditQuote(cash, liability, amount, amp *big.Int) (*big.Int, error) {
	if liability.Sign() == 0 {
		return nil, ErrZeroLiability
	}
	r := wad.Div(cash, liability)
	r2 := wad.Div(new(big.Int).Add(cash, amount), liability)
	v := new(big.Int).Sub(r2, wad.Div(amp, r2))
	v.Sub(v, new(big.Int).Sub(r, wad.Div(amp, r)))
	credit := wad.Div(wad.Mul(liability, v), new(big.Int).Add(wad.WAD, amp))
	if credit.Sign() <= 0 {
		return nil, ErrNoValidRoot
	}
	return credit, nil
}

// SwapFromCreditQuote is the inverse of SwapToCreditQuote: the token amount
// released when burning credit against an asset. Solves the quadratic for
// the asset's post-redemption coverage ratio.
func SwapFromCreditQuote(cash, liability, credit, amp *big.Int) (*big.Int, error) {
	if liability.Sign() == 0 {
		return nil, ErrZeroLiability
	}
	r := wad.Div(cash, liability)
	v := new(big.Int).Sub(r, wad.Div(amp, r))
	v.Sub(v, wad.Div(wad.Mul(credit, new(big.Int).Add(wad.WAD, amp)), liability))
	disc := wad.Mul(v, v)
	disc.Add(disc, new(big.Int).Mul(amp, big.NewInt(4)))
	if disc.Sign() < 0 {
		return nil, ErrNoValidRoot
	}
	r2 := wad.Sqrt(disc)
	r2.Add(r2, v)
	r2.Quo(r2, two)
	out := new(big.Int).Sub(cash, wad.Mul(liability, r2))
	if out.Sign() <= 0 {
		return nil, ErrNoValidRoot
	}
	return out, nil
}
