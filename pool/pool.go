// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/stableswap/core"
	"github.com/luxfi/stableswap/wad"
)

// Pool orchestrates deposits, withdrawals and swaps across its registered
// assets using the invariant curve. All amounts crossing the public API are
// native token units; LP amounts are WAD. Every operation applies atomically
// under the pool lock or not at all.
type Pool struct {
	cfg    *Config
	assets map[common.Address]*Asset
	admin  *AdminCap
	paused bool
	events []Event

	log log.Logger
	mu  sync.RWMutex
}

// NewPool creates a pool with the given configuration (nil for defaults)
// and returns it together with its administration capability.
func NewPool(cfg *Config) (*Pool, *AdminCap, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	p := &Pool{
		cfg:    cfg.clone(),
		assets: make(map[common.Address]*Asset),
		log:    log.NewTestLogger(log.InfoLevel),
	}
	p.admin = &AdminCap{pool: p}
	return p, p.admin, nil
}

// IsAdmin reports whether cap administers this pool.
func (p *Pool) IsAdmin(cap *AdminCap) bool {
	return cap != nil && cap.pool == p
}

func (p *Pool) checkAdmin(cap *AdminCap) error {
	if !p.IsAdmin(cap) {
		return ErrForbidden
	}
	return nil
}

// AddAsset registers and binds an asset ledger. Admin only.
func (p *Pool) AddAsset(cap *AdminCap, a *Asset) error {
	if err := p.checkAdmin(cap); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.assets[a.Token]; ok {
		return ErrAssetExists
	}
	if err := a.Bind(p); err != nil {
		return err
	}
	p.assets[a.Token] = a
	return nil
}

// RemoveAsset de-registers an empty asset. Admin only; an asset holding
// cash, liability or outstanding LP cannot be removed.
func (p *Pool) RemoveAsset(cap *AdminCap, token common.Address) error {
	if err := p.checkAdmin(cap); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.assets[token]
	if !ok {
		return ErrAssetNotFound
	}
	if a.Cash().Sign() != 0 || a.Liability().Sign() != 0 || a.LPSupply().Sign() != 0 {
		return ErrAssetNotEmpty
	}
	delete(p.assets, token)
	return nil
}

// Asset returns the registered ledger for token.
func (p *Pool) Asset(token common.Address) (*Asset, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.assets[token]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return a, nil
}

// Paused reports whether the whole pool is paused.
func (p *Pool) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// AmpFactor returns the curve amplification parameter.
func (p *Pool) AmpFactor() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return wad.Clone(p.cfg.AmpFactor)
}

// CovRatioFeeBand returns the high-coverage fee band bounds.
func (p *Pool) CovRatioFeeBand() (start, end *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return wad.Clone(p.cfg.CovRatioFeeStart), wad.Clone(p.cfg.CovRatioFeeEnd)
}

// Events returns the operation records emitted so far.
func (p *Pool) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// InvariantStats returns the current invariant D and the summed liability
// across all registered assets.
func (p *Pool) InvariantStats() (d, sumLiability *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.invariantStats()
}

func (p *Pool) invariantStats() (d, sumLiability *big.Int) {
	d = big.NewInt(0)
	sumLiability = big.NewInt(0)
	for _, a := range p.assets {
		d.Add(d, core.AssetValue(a.Cash(), a.Liability(), p.cfg.AmpFactor))
		sumLiability.Add(sumLiability, a.Liability())
	}
	return d, sumLiability
}

// GlobalEquilCovRatio returns the system-wide equilibrium coverage ratio.
func (p *Pool) GlobalEquilCovRatio() (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, sumL := p.invariantStats()
	return core.EquilCovRatio(d, sumL, p.cfg.AmpFactor)
}

// Deposit adds amount (native units) of token to the pool and mints LP to
// `to`, or to the staking vault when shouldStake is set. Deposits that
// restore global balance mint a small bonus; deposits that worsen it pay a
// small penalty.
func (p *Pool) Deposit(sender, token common.Address, amount, minLiquidity *big.Int, to common.Address, deadline uint64, shouldStake bool) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.checkMutable(sender, token, to, amount, deadline)
	if err != nil {
		return nil, err
	}
	wadIn, err := wad.FromNative(amount, a.Decimals)
	if err != nil {
		return nil, err
	}

	d, sumL := p.invariantStats()
	liabDelta, err := core.ExactDepositLiquidity(wadIn, a.Cash(), a.Liability(), d, sumL, p.cfg.AmpFactor)
	if err != nil {
		return nil, err
	}
	lp := p.lpForLiability(a, liabDelta)
	if minLiquidity != nil && lp.Cmp(minLiquidity) < 0 {
		return nil, ErrAmountTooLow
	}

	recipient := to
	if shouldStake && p.cfg.StakingVault != (common.Address{}) {
		recipient = p.cfg.StakingVault
	}

	if err := a.AddCash(p, wadIn); err != nil {
		return nil, err
	}
	if err := a.AddLiability(p, liabDelta); err != nil {
		return nil, err
	}
	if err := a.mintLP(p, recipient, lp); err != nil {
		return nil, err
	}

	p.events = append(p.events, DepositEvent{
		Sender: sender, Token: token, AmountIn: wad.Clone(amount),
		LiquidityMinted: wad.Clone(lp), To: recipient,
	})
	p.log.Debug("deposit", "token", token, "amount", amount, "minted", lp)
	return lp, nil
}

// Withdraw burns liquidity (WAD LP) of token from sender and pays out
// native token units to `to`. The payout is capped at par above full
// coverage; a withdrawal fee applies below it.
func (p *Pool) Withdraw(sender, token common.Address, liquidity, minAmount *big.Int, to common.Address, deadline uint64) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.checkMutable(sender, token, to, liquidity, deadline)
	if err != nil {
		return nil, err
	}
	liabToBurn := p.liabilityForLP(a, liquidity)
	if liabToBurn.Sign() == 0 {
		return nil, ErrZeroAmount
	}

	d, sumL := p.invariantStats()
	amountWad, err := core.WithdrawalAmount(liabToBurn, a.Cash(), a.Liability(), d, sumL, p.cfg.AmpFactor)
	if err != nil {
		return nil, err
	}
	native, wadOut, err := p.quantize(a, amountWad)
	if err != nil {
		return nil, err
	}
	if minAmount != nil && native.Cmp(minAmount) < 0 {
		return nil, ErrAmountTooLow
	}

	if err := a.burnLP(p, sender, liquidity); err != nil {
		return nil, err
	}
	if err := a.RemoveLiability(p, liabToBurn); err != nil {
		return nil, err
	}
	if err := a.RemoveCash(p, wadOut); err != nil {
		return nil, err
	}

	p.events = append(p.events, WithdrawEvent{
		Sender: sender, Token: token, AmountOut: wad.Clone(native),
		LiquidityBurned: wad.Clone(liquidity), To: to,
	})
	p.log.Debug("withdraw", "token", token, "liquidity", liquidity, "amount", native)
	return native, nil
}

// WithdrawFromOtherAsset burns fromToken LP and pays out toToken, a
// withdrawal chained into a swap inside the same aggregate group. Only
// permitted while the receiving asset is at or above full coverage.
func (p *Pool) WithdrawFromOtherAsset(sender, fromToken, toToken common.Address, liquidity, minAmount *big.Int, to common.Address, deadline uint64) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	from, err := p.checkMutable(sender, fromToken, to, liquidity, deadline)
	if err != nil {
		return nil, err
	}
	target, ok := p.assets[toToken]
	if !ok {
		return nil, ErrAssetNotFound
	}
	if target.Paused() {
		return nil, ErrAssetPaused
	}
	if from.Group != target.Group {
		return nil, ErrInterpoolSwap
	}
	r, err := target.CovRatio()
	if err != nil {
		return nil, err
	}
	if r.Cmp(wad.One) < 0 {
		return nil, ErrCovRatioTooLow
	}

	liabToBurn := p.liabilityForLP(from, liquidity)
	if liabToBurn.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	d, sumL := p.invariantStats()
	withdrawn, err := core.WithdrawalAmount(liabToBurn, from.Cash(), from.Liability(), d, sumL, p.cfg.AmpFactor)
	if err != nil {
		return nil, err
	}

	// The withdrawn cash immediately re-enters as swap input, so the from
	// asset's cash is net unchanged; only its liability shrinks.
	fromCash := new(big.Int).Sub(from.Cash(), withdrawn)
	fromLiab := new(big.Int).Sub(from.Liability(), liabToBurn)
	netWad, native, haircut, err := p.quoteBetween(fromCash, fromLiab, target, withdrawn)
	if err != nil {
		return nil, err
	}
	if minAmount != nil && native.Cmp(minAmount) < 0 {
		return nil, ErrAmountTooLow
	}

	if err := from.burnLP(p, sender, liquidity); err != nil {
		return nil, err
	}
	if err := from.RemoveLiability(p, liabToBurn); err != nil {
		return nil, err
	}
	if err := target.RemoveCash(p, netWad); err != nil {
		return nil, err
	}
	if err := target.addFee(p, haircut); err != nil {
		return nil, err
	}

	p.events = append(p.events, WithdrawEvent{
		Sender: sender, Token: toToken, AmountOut: wad.Clone(native),
		LiquidityBurned: wad.Clone(liquidity), To: to,
	})
	return native, nil
}

// Swap trades amountIn native units of fromToken for toToken. The haircut
// and any high-coverage fee are charged on the output side and accrue to
// the receiving asset until MintFee realizes them.
func (p *Pool) Swap(sender, fromToken, toToken common.Address, amountIn, minAmountOut *big.Int, to common.Address, deadline uint64) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	from, target, err := p.checkSwapPair(sender, fromToken, toToken, to, amountIn, deadline)
	if err != nil {
		return nil, err
	}
	wadIn, err := wad.FromNative(amountIn, from.Decimals)
	if err != nil {
		return nil, err
	}
	netWad, native, haircut, err := p.quoteBetween(from.Cash(), from.Liability(), target, wadIn)
	if err != nil {
		return nil, err
	}
	if minAmountOut != nil && native.Cmp(minAmountOut) < 0 {
		return nil, ErrAmountTooLow
	}

	if err := from.AddCash(p, wadIn); err != nil {
		return nil, err
	}
	if err := target.RemoveCash(p, netWad); err != nil {
		return nil, err
	}
	if err := target.addFee(p, haircut); err != nil {
		return nil, err
	}

	p.events = append(p.events, SwapEvent{
		Sender: sender, FromToken: fromToken, ToToken: toToken,
		AmountIn: wad.Clone(amountIn), AmountOut: wad.Clone(native), To: to,
	})
	p.log.Debug("swap", "from", fromToken, "to", toToken, "amountIn", amountIn, "amountOut", native)
	return native, nil
}

// QuotePotentialSwap prices a swap without mutating state. The returned
// amount and haircut are bit-identical to what Swap would produce on the
// same state.
func (p *Pool) QuotePotentialSwap(fromToken, toToken common.Address, amountIn *big.Int) (amountOut, haircut *big.Int, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	from, target, err := p.swapPair(fromToken, toToken)
	if err != nil {
		return nil, nil, err
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, ErrZeroAmount
	}
	wadIn, err := wad.FromNative(amountIn, from.Decimals)
	if err != nil {
		return nil, nil, err
	}
	_, native, hc, err := p.quoteBetween(from.Cash(), from.Liability(), target, wadIn)
	if err != nil {
		return nil, nil, err
	}
	return native, hc, nil
}

// QuotePotentialDeposit returns the LP a deposit would mint.
func (p *Pool) QuotePotentialDeposit(token common.Address, amount *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	a, ok := p.assets[token]
	if !ok {
		return nil, ErrAssetNotFound
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	wadIn, err := wad.FromNative(amount, a.Decimals)
	if err != nil {
		return nil, err
	}
	d, sumL := p.invariantStats()
	liabDelta, err := core.ExactDepositLiquidity(wadIn, a.Cash(), a.Liability(), d, sumL, p.cfg.AmpFactor)
	if err != nil {
		return nil, err
	}
	return p.lpForLiability(a, liabDelta), nil
}

// QuotePotentialWithdraw returns the native payout burning liquidity would
// produce.
func (p *Pool) QuotePotentialWithdraw(token common.Address, liquidity *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	a, ok := p.assets[token]
	if !ok {
		return nil, ErrAssetNotFound
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	liabToBurn := p.liabilityForLP(a, liquidity)
	if liabToBurn.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	d, sumL := p.invariantStats()
	amountWad, err := core.WithdrawalAmount(liabToBurn, a.Cash(), a.Liability(), d, sumL, p.cfg.AmpFactor)
	if err != nil {
		return nil, err
	}
	native, _, err := p.quantize(a, amountWad)
	if err != nil {
		return nil, err
	}
	return native, nil
}

// QuoteAmountIn is the reverse swap quote: the smallest native input of
// fromToken whose forward quote reaches amountOut. Solved by bisection;
// the forward quote is monotonic in its input so the search is exact.
func (p *Pool) QuoteAmountIn(fromToken, toToken common.Address, amountOut *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	from, target, err := p.swapPair(fromToken, toToken)
	if err != nil {
		return nil, err
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	quote := func(in *big.Int) (*big.Int, error) {
		wadIn, err := wad.FromNative(in, from.Decimals)
		if err != nil {
			return nil, err
		}
		_, native, _, err := p.quoteBetween(from.Cash(), from.Liability(), target, wadIn)
		return native, err
	}

	// Grow hi until it reaches amountOut or leaves the legal coverage band.
	hi := big.NewInt(1)
	for i := 0; ; i++ {
		if i > 200 {
			return nil, ErrInvalidAmount
		}
		out, err := quote(hi)
		if err != nil {
			if err == core.ErrCovRatioLimitExceeded {
				break
			}
			return nil, err
		}
		if out.Cmp(amountOut) >= 0 {
			break
		}
		hi.Lsh(hi, 1)
	}

	// Smallest in that reaches amountOut or exits the band.
	lo := big.NewInt(1)
	for lo.Cmp(hi) < 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		out, err := quote(mid)
		switch {
		case err == core.ErrCovRatioLimitExceeded:
			hi.Set(mid)
		case err != nil:
			return nil, err
		case out.Cmp(amountOut) >= 0:
			hi.Set(mid)
		default:
			lo.Add(mid, big.NewInt(1))
		}
	}
	out, err := quote(lo)
	if err != nil {
		return nil, err
	}
	if out.Cmp(amountOut) < 0 {
		return nil, core.ErrCovRatioLimitExceeded
	}
	return lo, nil
}

// MintFee realizes the haircut accrued on an asset: the retained share
// compounds into liability for all LP holders, the dividend share is
// minted as LP to the fee recipient. Permissionless; calling twice in a
// row is a no-op.
func (p *Pool) MintFee(token common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.assets[token]
	if !ok {
		return nil, ErrAssetNotFound
	}
	fee, err := a.takeFee(p)
	if err != nil {
		return nil, err
	}
	if fee.Sign() == 0 {
		return big.NewInt(0), nil
	}

	retained := wad.Mul(fee, p.cfg.RetentionRatio)
	dividend := wad.Mul(fee, p.cfg.LPDividendRatio)
	if dividend.Sign() > 0 && p.cfg.FeeTo != (common.Address{}) {
		lp := p.lpForLiability(a, dividend)
		if err := a.AddLiability(p, dividend); err != nil {
			return nil, err
		}
		if err := a.mintLP(p, p.cfg.FeeTo, lp); err != nil {
			return nil, err
		}
	}
	if retained.Sign() > 0 {
		if err := a.AddLiability(p, retained); err != nil {
			return nil, err
		}
	}
	p.log.Debug("mint fee", "token", token, "fee", fee)
	return fee, nil
}

// Pause halts all mutating operations. Admin only.
func (p *Pool) Pause(cap *AdminCap) error {
	if err := p.checkAdmin(cap); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return ErrPoolPaused
	}
	p.paused = true
	return nil
}

// Unpause resumes operations. Admin only.
func (p *Pool) Unpause(cap *AdminCap) error {
	if err := p.checkAdmin(cap); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return ErrPoolNotPaused
	}
	p.paused = false
	return nil
}

// PauseAsset halts operations touching one asset. Admin only.
func (p *Pool) PauseAsset(cap *AdminCap, token common.Address) error {
	if err := p.checkAdmin(cap); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.assets[token]
	if !ok {
		return ErrAssetNotFound
	}
	return a.setPaused(p, true)
}

// UnpauseAsset resumes operations on one asset. Admin only.
func (p *Pool) UnpauseAsset(cap *AdminCap, token common.Address) error {
	if err := p.checkAdmin(cap); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.assets[token]
	if !ok {
		return ErrAssetNotFound
	}
	return a.setPaused(p, false)
}

// SetHaircutRate changes the base swap fee. Admin only.
func (p *Pool) SetHaircutRate(cap *AdminCap, rate *big.Int) error {
	return p.updateConfig(cap, func(c *Config) { c.HaircutRate = wad.Clone(rate) })
}

// SetFeeConfig changes the haircut retention/dividend split. Admin only.
func (p *Pool) SetFeeConfig(cap *AdminCap, retention, dividend *big.Int) error {
	return p.updateConfig(cap, func(c *Config) {
		c.RetentionRatio = wad.Clone(retention)
		c.LPDividendRatio = wad.Clone(dividend)
	})
}

// SetAmpFactor changes the curve amplification. Admin only.
func (p *Pool) SetAmpFactor(cap *AdminCap, amp *big.Int) error {
	return p.updateConfig(cap, func(c *Config) { c.AmpFactor = wad.Clone(amp) })
}

// SetCovRatioFeeBand changes the high-coverage fee band. Admin only.
func (p *Pool) SetCovRatioFeeBand(cap *AdminCap, start, end *big.Int) error {
	return p.updateConfig(cap, func(c *Config) {
		c.CovRatioFeeStart = wad.Clone(start)
		c.CovRatioFeeEnd = wad.Clone(end)
	})
}

// SetFeeTo changes the dividend LP recipient. Admin only.
func (p *Pool) SetFeeTo(cap *AdminCap, feeTo common.Address) error {
	return p.updateConfig(cap, func(c *Config) { c.FeeTo = feeTo })
}

// SetStakingVault changes the shouldStake LP recipient. Admin only.
func (p *Pool) SetStakingVault(cap *AdminCap, vault common.Address) error {
	return p.updateConfig(cap, func(c *Config) { c.StakingVault = vault })
}

func (p *Pool) updateConfig(cap *AdminCap, mutate func(*Config)) error {
	if err := p.checkAdmin(cap); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.cfg.clone()
	mutate(next)
	if err := next.Validate(); err != nil {
		return err
	}
	p.cfg = next
	return nil
}

// quoteBetween prices a swap of wadIn from an asset in state (fromCash,
// fromLiab) into target: invariant quote, then haircut, then the
// high-coverage fee on the sending side. Returns the WAD amount leaving
// target's cash, the native payout, and the total fee accrued to target.
func (p *Pool) quoteBetween(fromCash, fromLiab *big.Int, target *Asset, wadIn *big.Int) (netWad, native, haircut *big.Int, err error) {
	ideal, err := core.SwapQuote(fromCash, target.Cash(), fromLiab, target.Liability(), wadIn, p.cfg.AmpFactor)
	if err != nil {
		return nil, nil, nil, err
	}
	hc := wad.Mul(ideal, p.cfg.HaircutRate)

	rAfter, err := core.CoverageX(fromCash, fromLiab, wadIn)
	if err != nil {
		return nil, nil, nil, err
	}
	rate, err := core.HighCovRatioFeeRate(rAfter, p.cfg.CovRatioFeeStart, p.cfg.CovRatioFeeEnd)
	if err != nil {
		return nil, nil, nil, err
	}
	high := wad.Mul(new(big.Int).Sub(ideal, hc), rate)

	net := new(big.Int).Sub(ideal, hc)
	net.Sub(net, high)
	n, w, err := p.quantize(target, net)
	if err != nil {
		return nil, nil, nil, err
	}
	return w, n, hc.Add(hc, high), nil
}

// quantize truncates a WAD amount to the asset's native precision and
// returns both representations; the sub-native dust stays in the pool.
func (p *Pool) quantize(a *Asset, amount *big.Int) (native, wadOut *big.Int, err error) {
	n, err := wad.ToNative(amount, a.Decimals)
	if err != nil {
		return nil, nil, err
	}
	w, err := wad.FromNative(n, a.Decimals)
	if err != nil {
		return nil, nil, err
	}
	return n, w, nil
}

// lpForLiability converts a liability delta into LP at the asset's current
// LP-per-liability rate, 1:1 on an empty book. Rounds down.
func (p *Pool) lpForLiability(a *Asset, liabDelta *big.Int) *big.Int {
	supply := a.LPSupply()
	if supply.Sign() == 0 {
		return wad.Clone(liabDelta)
	}
	lp := new(big.Int).Mul(liabDelta, supply)
	return lp.Quo(lp, a.Liability())
}

// liabilityForLP is the inverse conversion, also rounding down.
func (p *Pool) liabilityForLP(a *Asset, lp *big.Int) *big.Int {
	supply := a.LPSupply()
	if supply.Sign() == 0 {
		return big.NewInt(0)
	}
	liab := new(big.Int).Mul(lp, a.Liability())
	return liab.Quo(liab, supply)
}

// checkMutable runs the shared validations for single-asset mutating
// operations and returns the asset.
func (p *Pool) checkMutable(sender, token, to common.Address, amount *big.Int, deadline uint64) (*Asset, error) {
	if p.paused {
		return nil, ErrPoolPaused
	}
	if deadline > 0 && uint64(time.Now().Unix()) > deadline {
		return nil, ErrExpired
	}
	if sender == (common.Address{}) || to == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	a, ok := p.assets[token]
	if !ok {
		return nil, ErrAssetNotFound
	}
	if a.Paused() {
		return nil, ErrAssetPaused
	}
	return a, nil
}

func (p *Pool) checkSwapPair(sender, fromToken, toToken, to common.Address, amountIn *big.Int, deadline uint64) (*Asset, *Asset, error) {
	from, err := p.checkMutable(sender, fromToken, to, amountIn, deadline)
	if err != nil {
		return nil, nil, err
	}
	if fromToken == toToken {
		return nil, nil, ErrSameToken
	}
	target, ok := p.assets[toToken]
	if !ok {
		return nil, nil, ErrAssetNotFound
	}
	if target.Paused() {
		return nil, nil, ErrAssetPaused
	}
	if from.Group != target.Group {
		return nil, nil, ErrInterpoolSwap
	}
	return from, target, nil
}

// swapPair is the view-side pair lookup (no pause or deadline checks).
func (p *Pool) swapPair(fromToken, toToken common.Address) (*Asset, *Asset, error) {
	if fromToken == toToken {
		return nil, nil, ErrSameToken
	}
	from, ok := p.assets[fromToken]
	if !ok {
		return nil, nil, ErrAssetNotFound
	}
	target, ok := p.assets[toToken]
	if !ok {
		return nil, nil, ErrAssetNotFound
	}
	if from.Group != target.Group {
		return nil, nil, ErrInterpoolSwap
	}
	return from, target, nil
}
