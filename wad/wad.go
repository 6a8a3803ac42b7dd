// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wad implements signed 18-decimal fixed-point arithmetic on
// math/big integers. All pool accounting uses WAD units regardless of the
// underlying token's decimals.
package wad

import (
	"errors"
	"math/big"
)

// One WAD = 1e18, the fixed-point scale.
var (
	WAD     = big.NewInt(1_000_000_000_000_000_000)
	HalfWAD = big.NewInt(500_000_000_000_000_000)
	Zero    = big.NewInt(0)
	One     = new(big.Int).Set(WAD)
)

var ErrDecimalsTooLarge = errors.New("token decimals exceed 18")

// pow10 lookup for decimal scaling, 10^0 .. 10^18.
var pow10 = func() []*big.Int {
	p := make([]*big.Int, 19)
	p[0] = big.NewInt(1)
	for i := 1; i <= 18; i++ {
		p[i] = new(big.Int).Mul(p[i-1], big.NewInt(10))
	}
	return p
}()

// Mul returns a*b/WAD with half-up rounding: (a*b + WAD/2) quo WAD.
// The quo step truncates toward zero, matching the reference arithmetic.
func Mul(a, b *big.Int) *big.Int {
	t := new(big.Int).Mul(a, b)
	t.Add(t, HalfWAD)
	return t.Quo(t, WAD)
}

// Div returns a*WAD/b with half-up rounding: (a*WAD + b/2) quo b.
// b must be positive.
func Div(a, b *big.Int) *big.Int {
	t := new(big.Int).Mul(a, WAD)
	half := new(big.Int).Quo(b, big.NewInt(2))
	t.Add(t, half)
	return t.Quo(t, b)
}

// Sqrt returns floor(sqrt(v*WAD)) so that the result is again WAD-scaled.
// v must be non-negative.
func Sqrt(v *big.Int) *big.Int {
	t := new(big.Int).Mul(v, WAD)
	return t.Sqrt(t)
}

// FromNative converts an amount in native token units to WAD.
// Exact: native units always divide WAD for decimals <= 18.
func FromNative(amount *big.Int, decimals uint8) (*big.Int, error) {
	if decimals > 18 {
		return nil, ErrDecimalsTooLarge
	}
	return new(big.Int).Mul(amount, pow10[18-decimals]), nil
}

// ToNative converts a WAD amount to native token units, truncating toward
// zero so the pool never pays out a fraction it cannot represent.
func ToNative(amount *big.Int, decimals uint8) (*big.Int, error) {
	if decimals > 18 {
		return nil, ErrDecimalsTooLarge
	}
	return new(big.Int).Quo(amount, pow10[18-decimals]), nil
}

// Clone returns a defensive copy.
func Clone(v *big.Int) *big.Int {
	return new(big.Int).Set(v)
}
