// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the stableswap liquidity pool: per-asset
// cash/liability ledgers joined by the invariant curve in package core,
// with deposits, withdrawals, swaps, haircut fee accounting and
// admin-capability gated configuration.
package pool

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/stableswap/core"
)

// Default pool parameters
var (
	DefaultAmpFactor   = big.NewInt(50_000_000_000_000_000) // 0.05
	DefaultHaircutRate = big.NewInt(400_000_000_000_000)    // 0.04%

	// Haircut rates above 1% are configuration mistakes, not fees.
	MaxHaircutRate = big.NewInt(10_000_000_000_000_000)
)

// Errors - validation
var (
	ErrZeroAddress   = errors.New("zero address")
	ErrZeroAmount    = errors.New("zero amount")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrSameToken     = errors.New("same token")
	ErrExpired       = errors.New("expired")
)

// Errors - state
var (
	ErrAssetExists    = errors.New("asset already exists")
	ErrAssetNotFound  = errors.New("asset not found")
	ErrAssetNotEmpty  = errors.New("asset not empty")
	ErrAlreadyBound   = errors.New("asset already bound")
	ErrPoolPaused     = errors.New("pool paused")
	ErrPoolNotPaused  = errors.New("pool not paused")
	ErrAssetPaused    = errors.New("asset paused")
	ErrAssetNotPaused = errors.New("asset not paused")
)

// Errors - economic limits
var (
	ErrInsufficientCash      = errors.New("insufficient cash")
	ErrInsufficientLiability = errors.New("insufficient liability")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrAmountTooLow          = errors.New("amount too low")
	ErrCovRatioTooLow        = errors.New("coverage ratio too low")
	ErrInterpoolSwap         = errors.New("interpool swap not supported")
)

// Errors - authorization and configuration
var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidFeeConfig   = errors.New("invalid fee configuration")
	ErrInvalidAmpFactor   = errors.New("invalid amplification factor")
	ErrInvalidHaircutRate = errors.New("invalid haircut rate")
	ErrInvalidFeeBand     = errors.New("invalid coverage fee band")
)

// AdminCap is the pool administration capability. It is created once with
// its pool and grants asset registration, configuration changes and
// pausing. Authorization is by identity: a capability only administers the
// pool it was created with.
type AdminCap struct {
	pool *Pool
}

// Config holds the pool's curve and fee parameters. Validated on every
// write; a pool never holds an invalid configuration.
type Config struct {
	AmpFactor        *big.Int // curve amplification, (0, 1]
	HaircutRate      *big.Int // base swap fee, <= MaxHaircutRate
	RetentionRatio   *big.Int // haircut share compounded into liability
	LPDividendRatio  *big.Int // haircut share minted as LP to FeeTo
	CovRatioFeeStart *big.Int // high-coverage fee band lower bound
	CovRatioFeeEnd   *big.Int // high-coverage fee band upper bound
	FeeTo            common.Address
	StakingVault     common.Address // receives LP for shouldStake deposits
}

// DefaultConfig returns the reference parameters: amp 0.05, haircut 0.04%
// fully retained, fee band 1.5-1.8.
func DefaultConfig() *Config {
	return &Config{
		AmpFactor:        new(big.Int).Set(DefaultAmpFactor),
		HaircutRate:      new(big.Int).Set(DefaultHaircutRate),
		RetentionRatio:   big.NewInt(1e18),
		LPDividendRatio:  big.NewInt(0),
		CovRatioFeeStart: new(big.Int).Set(core.DefaultCovRatioFeeStart),
		CovRatioFeeEnd:   new(big.Int).Set(core.DefaultCovRatioFeeEnd),
	}
}

// Validate checks the parameter bounds.
func (c *Config) Validate() error {
	one := big.NewInt(1e18)
	if c.AmpFactor == nil || c.AmpFactor.Sign() <= 0 || c.AmpFactor.Cmp(one) > 0 {
		return ErrInvalidAmpFactor
	}
	if c.HaircutRate == nil || c.HaircutRate.Sign() < 0 || c.HaircutRate.Cmp(MaxHaircutRate) > 0 {
		return ErrInvalidHaircutRate
	}
	if c.RetentionRatio == nil || c.LPDividendRatio == nil ||
		c.RetentionRatio.Sign() < 0 || c.LPDividendRatio.Sign() < 0 {
		return ErrInvalidFeeConfig
	}
	sum := new(big.Int).Add(c.RetentionRatio, c.LPDividendRatio)
	if sum.Cmp(one) > 0 {
		return ErrInvalidFeeConfig
	}
	if c.CovRatioFeeStart == nil || c.CovRatioFeeEnd == nil ||
		c.CovRatioFeeStart.Cmp(one) < 0 || c.CovRatioFeeStart.Cmp(c.CovRatioFeeEnd) >= 0 {
		return ErrInvalidFeeBand
	}
	return nil
}

func (c *Config) clone() *Config {
	cp := *c
	cp.AmpFactor = new(big.Int).Set(c.AmpFactor)
	cp.HaircutRate = new(big.Int).Set(c.HaircutRate)
	cp.RetentionRatio = new(big.Int).Set(c.RetentionRatio)
	cp.LPDividendRatio = new(big.Int).Set(c.LPDividendRatio)
	cp.CovRatioFeeStart = new(big.Int).Set(c.CovRatioFeeStart)
	cp.CovRatioFeeEnd = new(big.Int).Set(c.CovRatioFeeEnd)
	return &cp
}

// Event is implemented by the typed operation records a pool emits.
type Event interface {
	Name() string
}

// DepositEvent records a completed deposit.
type DepositEvent struct {
	Sender          common.Address
	Token           common.Address
	AmountIn        *big.Int // native units
	LiquidityMinted *big.Int // WAD
	To              common.Address
}

func (DepositEvent) Name() string { return "Deposit" }

// WithdrawEvent records a completed withdrawal.
type WithdrawEvent struct {
	Sender          common.Address
	Token           common.Address
	AmountOut       *big.Int // native units
	LiquidityBurned *big.Int // WAD
	To              common.Address
}

func (WithdrawEvent) Name() string { return "Withdraw" }

// SwapEvent records a completed same-chain swap.
type SwapEvent struct {
	Sender    common.Address
	FromToken common.Address
	ToToken   common.Address
	AmountIn  *big.Int // native units of FromToken
	AmountOut *big.Int // native units of ToToken
	To        common.Address
}

func (SwapEvent) Name() string { return "Swap" }
