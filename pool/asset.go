// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/stableswap/wad"
)

// Asset is the per-token ledger: cash actually held, liability owed to LP
// holders, and the LP book itself. Cash and liability are WAD regardless of
// the token's decimals; the underlying balance mirrors cash in native
// units and the two never diverge.
//
// Mutation is capability-gated: an asset is bound to its owning pool
// exactly once, and every mutator requires presenting that pool handle.
// Holding the handle is the authorization.
type Asset struct {
	Token    common.Address
	Decimals uint8
	Group    uint32 // aggregate group; only same-group assets swap directly

	cash       *big.Int     // WAD
	liability  *big.Int     // WAD
	underlying *uint256.Int // native token units, always == ToNative(cash)

	lpSupply   *big.Int // WAD
	lpBalances map[common.Address]*big.Int

	feeCollected *big.Int // WAD haircut awaiting MintFee

	paused bool
	owner  *Pool

	mu sync.RWMutex
}

// NewAsset creates an unbound asset ledger for a token with the given
// decimals (at most 18) and aggregate group.
func NewAsset(token common.Address, decimals uint8, group uint32) (*Asset, error) {
	if token == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if decimals > 18 {
		return nil, wad.ErrDecimalsTooLarge
	}
	return &Asset{
		Token:        token,
		Decimals:     decimals,
		Group:        group,
		cash:         big.NewInt(0),
		liability:    big.NewInt(0),
		underlying:   uint256.NewInt(0),
		lpSupply:     big.NewInt(0),
		lpBalances:   make(map[common.Address]*big.Int),
		feeCollected: big.NewInt(0),
	}, nil
}

// Bind attaches the asset to its owning pool. Settable exactly once.
func (a *Asset) Bind(p *Pool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner != nil {
		return ErrAlreadyBound
	}
	a.owner = p
	return nil
}

func (a *Asset) checkOwner(p *Pool) error {
	if a.owner == nil || a.owner != p {
		return ErrForbidden
	}
	return nil
}

// Cash returns the asset's WAD cash.
func (a *Asset) Cash() *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return wad.Clone(a.cash)
}

// Liability returns the asset's WAD liability.
func (a *Asset) Liability() *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return wad.Clone(a.liability)
}

// UnderlyingBalance returns the native token units backing the cash.
func (a *Asset) UnderlyingBalance() *uint256.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return new(uint256.Int).Set(a.underlying)
}

// LPSupply returns the total LP issued against this asset.
func (a *Asset) LPSupply() *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return wad.Clone(a.lpSupply)
}

// LPBalanceOf returns addr's LP balance.
func (a *Asset) LPBalanceOf(addr common.Address) *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if b, ok := a.lpBalances[addr]; ok {
		return wad.Clone(b)
	}
	return big.NewInt(0)
}

// FeeCollected returns the WAD haircut accrued since the last MintFee.
func (a *Asset) FeeCollected() *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return wad.Clone(a.feeCollected)
}

// Paused reports whether the asset is individually paused.
func (a *Asset) Paused() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paused
}

// CovRatio returns cash/liability, or an error while the asset has no
// liability.
func (a *Asset) CovRatio() (*big.Int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.liability.Sign() == 0 {
		return nil, ErrInsufficientLiability
	}
	return wad.Div(a.cash, a.liability), nil
}

// AddCash credits amount (WAD, exactly representable in native units) and
// the matching native units. Only the owning pool may call.
func (a *Asset) AddCash(p *Pool, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	native, err := a.nativeExact(amount)
	if err != nil {
		return err
	}
	a.cash.Add(a.cash, amount)
	a.underlying.Add(a.underlying, native)
	return nil
}

// RemoveCash debits amount and the matching native units. Fails with
// ErrInsufficientCash rather than going negative.
func (a *Asset) RemoveCash(p *Pool, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	if a.cash.Cmp(amount) < 0 {
		return ErrInsufficientCash
	}
	native, err := a.nativeExact(amount)
	if err != nil {
		return err
	}
	a.cash.Sub(a.cash, amount)
	a.underlying.Sub(a.underlying, native)
	return nil
}

// AddLiability grows the LP claim basis. Only the owning pool may call.
func (a *Asset) AddLiability(p *Pool, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	a.liability.Add(a.liability, amount)
	return nil
}

// RemoveLiability shrinks the LP claim basis. Fails with
// ErrInsufficientLiability rather than going negative.
func (a *Asset) RemoveLiability(p *Pool, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	if a.liability.Cmp(amount) < 0 {
		return ErrInsufficientLiability
	}
	a.liability.Sub(a.liability, amount)
	return nil
}

// nativeExact converts a WAD delta to native units, rejecting sub-native
// dust so underlying and cash stay in lockstep. Caller holds a.mu.
func (a *Asset) nativeExact(amount *big.Int) (*uint256.Int, error) {
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	n, err := wad.ToNative(amount, a.Decimals)
	if err != nil {
		return nil, err
	}
	back, err := wad.FromNative(n, a.Decimals)
	if err != nil {
		return nil, err
	}
	if back.Cmp(amount) != 0 {
		return nil, ErrInvalidAmount
	}
	u, overflow := uint256.FromBig(n)
	if overflow {
		return nil, ErrInvalidAmount
	}
	return u, nil
}

func (a *Asset) mintLP(p *Pool, to common.Address, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	bal, ok := a.lpBalances[to]
	if !ok {
		bal = big.NewInt(0)
		a.lpBalances[to] = bal
	}
	bal.Add(bal, amount)
	a.lpSupply.Add(a.lpSupply, amount)
	return nil
}

func (a *Asset) burnLP(p *Pool, from common.Address, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	bal, ok := a.lpBalances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		delete(a.lpBalances, from)
	}
	a.lpSupply.Sub(a.lpSupply, amount)
	return nil
}

func (a *Asset) addFee(p *Pool, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	a.feeCollected.Add(a.feeCollected, amount)
	return nil
}

func (a *Asset) takeFee(p *Pool) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return nil, err
	}
	fee := a.feeCollected
	a.feeCollected = big.NewInt(0)
	return fee, nil
}

func (a *Asset) setPaused(p *Pool, paused bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkOwner(p); err != nil {
		return err
	}
	if a.paused == paused {
		if paused {
			return ErrAssetPaused
		}
		return ErrAssetNotPaused
	}
	a.paused = paused
	return nil
}
