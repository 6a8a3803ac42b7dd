// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"
	"testing"

	"github.com/luxfi/stableswap/core"
	"github.com/luxfi/stableswap/wad"
)

// newTestPool builds the reference two-asset pool: BUSD with 18 decimals
// holding 10000, vUSDC with 8 decimals holding 1000, both fully covered.
func newTestPool(t *testing.T) (*Pool, *AdminCap) {
	t.Helper()
	p, cap, err := NewPool(nil)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	busd, err := NewAsset(testBUSD, 18, 0)
	if err != nil {
		t.Fatalf("NewAsset failed: %v", err)
	}
	vusdc, err := NewAsset(testVUSDC, 8, 0)
	if err != nil {
		t.Fatalf("NewAsset failed: %v", err)
	}
	if err := p.AddAsset(cap, busd); err != nil {
		t.Fatalf("AddAsset failed: %v", err)
	}
	if err := p.AddAsset(cap, vusdc); err != nil {
		t.Fatalf("AddAsset failed: %v", err)
	}
	if _, err := p.Deposit(testAlice, testBUSD, toWAD(10000), nil, testAlice, 0, false); err != nil {
		t.Fatalf("seed deposit failed: %v", err)
	}
	if _, err := p.Deposit(testAlice, testVUSDC, big.NewInt(1000_0000_0000), nil, testAlice, 0, false); err != nil {
		t.Fatalf("seed deposit failed: %v", err)
	}
	return p, cap
}

func TestPoolFirstDeposit(t *testing.T) {
	p, cap, _ := NewPool(nil)
	busd, _ := NewAsset(testBUSD, 18, 0)
	if err := p.AddAsset(cap, busd); err != nil {
		t.Fatalf("AddAsset failed: %v", err)
	}

	lp, err := p.Deposit(testAlice, testBUSD, toWAD(100), nil, testAlice, 0, false)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if lp.Cmp(toWAD(100)) != 0 {
		t.Fatalf("first deposit minted %s LP, want 100e18", lp)
	}
	if busd.Cash().Cmp(toWAD(100)) != 0 || busd.Liability().Cmp(toWAD(100)) != 0 {
		t.Fatalf("cash=%s liability=%s, want both 100e18", busd.Cash(), busd.Liability())
	}
	if busd.LPBalanceOf(testAlice).Cmp(toWAD(100)) != 0 {
		t.Fatalf("alice LP = %s, want 100e18", busd.LPBalanceOf(testAlice))
	}
}

func TestPoolDepositValidation(t *testing.T) {
	p, _ := newTestPool(t)

	if _, err := p.Deposit(testAlice, testBUSD, big.NewInt(0), nil, testAlice, 0, false); err != ErrZeroAmount {
		t.Fatalf("zero amount: got %v, want ErrZeroAmount", err)
	}
	if _, err := p.Deposit(testAlice, testUSDT, toWAD(1), nil, testAlice, 0, false); err != ErrAssetNotFound {
		t.Fatalf("unknown token: got %v, want ErrAssetNotFound", err)
	}
	// a deadline in the past
	if _, err := p.Deposit(testAlice, testBUSD, toWAD(1), nil, testAlice, 1, false); err != ErrExpired {
		t.Fatalf("expired deadline: got %v, want ErrExpired", err)
	}
	// slippage guard
	if _, err := p.Deposit(testAlice, testBUSD, toWAD(1), toWAD(2), testAlice, 0, false); err != ErrAmountTooLow {
		t.Fatalf("min liquidity: got %v, want ErrAmountTooLow", err)
	}
}

func TestPoolDepositShouldStake(t *testing.T) {
	p, cap := newTestPool(t)
	if err := p.SetStakingVault(cap, testVault); err != nil {
		t.Fatalf("SetStakingVault failed: %v", err)
	}
	lp, err := p.Deposit(testBob, testBUSD, toWAD(100), nil, testBob, 0, true)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	busd, _ := p.Asset(testBUSD)
	if busd.LPBalanceOf(testVault).Cmp(lp) != 0 {
		t.Fatalf("vault LP = %s, want %s", busd.LPBalanceOf(testVault), lp)
	}
	if busd.LPBalanceOf(testBob).Sign() != 0 {
		t.Fatal("staked deposit must not credit the sender")
	}
}

func TestPoolWithdrawRoundTrip(t *testing.T) {
	p, cap, _ := NewPool(nil)
	busd, _ := NewAsset(testBUSD, 18, 0)
	p.AddAsset(cap, busd)
	lp, err := p.Deposit(testAlice, testBUSD, toWAD(100), nil, testAlice, 0, false)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	out, err := p.Withdraw(testAlice, testBUSD, lp, nil, testAlice, 0)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if out.Cmp(toWAD(100)) != 0 {
		t.Fatalf("round trip returned %s, want 100e18", out)
	}
	if busd.Cash().Sign() != 0 || busd.Liability().Sign() != 0 || busd.LPSupply().Sign() != 0 {
		t.Fatal("asset should be empty after full withdrawal")
	}
}

func TestPoolWithdrawPartial(t *testing.T) {
	p, cap, _ := NewPool(nil)
	busd, _ := NewAsset(testBUSD, 18, 0)
	p.AddAsset(cap, busd)
	p.Deposit(testAlice, testBUSD, toWAD(100), nil, testAlice, 0, false)

	out, err := p.Withdraw(testAlice, testBUSD, toWAD(40), nil, testAlice, 0)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if out.Cmp(toWAD(40)) != 0 {
		t.Fatalf("partial withdraw returned %s, want 40e18", out)
	}
}

func TestPoolWithdrawSlippage(t *testing.T) {
	p, _ := newTestPool(t)
	if _, err := p.Withdraw(testAlice, testBUSD, toWAD(10), toWAD(11), testAlice, 0); err != ErrAmountTooLow {
		t.Fatalf("got %v, want ErrAmountTooLow", err)
	}
	if _, err := p.Withdraw(testBob, testBUSD, toWAD(10), nil, testBob, 0); err != ErrInsufficientLiquidity {
		t.Fatalf("got %v, want ErrInsufficientLiquidity", err)
	}
}

func TestPoolSwap(t *testing.T) {
	p, _ := newTestPool(t)
	busd, _ := p.Asset(testBUSD)
	vusdc, _ := p.Asset(testVUSDC)

	fromCashBefore := busd.Cash()
	toCashBefore := vusdc.Cash()

	out, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(100), nil, testBob, 0)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	// 100 BUSD into the 10000/1000 pool at haircut 0.04% pays 99.39032442
	// vUSDC, expressed in its 8 decimals
	if out.Cmp(big.NewInt(9939032442)) != 0 {
		t.Fatalf("out = %s, want 9939032442", out)
	}

	// conservation: cash moves exactly by what crossed the boundary
	gotFrom := new(big.Int).Sub(busd.Cash(), fromCashBefore)
	if gotFrom.Cmp(toWAD(100)) != 0 {
		t.Fatalf("from cash moved %s, want +100e18", gotFrom)
	}
	sentTo := new(big.Int).Sub(toCashBefore, vusdc.Cash())
	wantSent, _ := wad.FromNative(out, 8)
	if sentTo.Cmp(wantSent) != 0 {
		t.Fatalf("to cash moved %s, want %s", sentTo, wantSent)
	}
	if vusdc.FeeCollected().Cmp(bigInt("39772038584942516")) != 0 {
		t.Fatalf("fee collected = %s, want 39772038584942516", vusdc.FeeCollected())
	}
}

func TestPoolSwapValidation(t *testing.T) {
	p, _ := newTestPool(t)

	if _, err := p.Swap(testBob, testBUSD, testBUSD, toWAD(1), nil, testBob, 0); err != ErrSameToken {
		t.Fatalf("same token: got %v, want ErrSameToken", err)
	}
	if _, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(100), big.NewInt(10000000000), testBob, 0); err != ErrAmountTooLow {
		t.Fatalf("slippage: got %v, want ErrAmountTooLow", err)
	}
}

func TestPoolSwapDifferentGroups(t *testing.T) {
	p, cap := newTestPool(t)
	usdt, _ := NewAsset(testUSDT, 18, 1) // different aggregate group
	if err := p.AddAsset(cap, usdt); err != nil {
		t.Fatalf("AddAsset failed: %v", err)
	}
	p.Deposit(testAlice, testUSDT, toWAD(1000), nil, testAlice, 0, false)

	if _, err := p.Swap(testBob, testBUSD, testUSDT, toWAD(1), nil, testBob, 0); err != ErrInterpoolSwap {
		t.Fatalf("got %v, want ErrInterpoolSwap", err)
	}
}

func TestPoolSwapHighCovRatioFee(t *testing.T) {
	p, cap, _ := NewPool(nil)
	busd, _ := NewAsset(testBUSD, 18, 0)
	usdt, _ := NewAsset(testUSDT, 18, 0)
	p.AddAsset(cap, busd)
	p.AddAsset(cap, usdt)
	p.Deposit(testAlice, testBUSD, toWAD(10000), nil, testAlice, 0, false)
	p.Deposit(testAlice, testUSDT, toWAD(10000), nil, testAlice, 0, false)
	// push BUSD coverage to 1.5 with donated cash
	if err := busd.AddCash(p, toWAD(5000)); err != nil {
		t.Fatalf("AddCash failed: %v", err)
	}

	// post-swap coverage 1.6 sits a third into the 1.5-1.8 band
	out, err := p.Swap(testBob, testBUSD, testUSDT, toWAD(1000), nil, testBob, 0)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if out.Cmp(bigInt("644601805910809840002")) != 0 {
		t.Fatalf("out = %s, want 644601805910809840002", out)
	}

	// pushing coverage past 1.8 is rejected outright
	if _, err := p.Swap(testBob, testBUSD, testUSDT, toWAD(3000), nil, testBob, 0); err != core.ErrCovRatioLimitExceeded {
		t.Fatalf("got %v, want ErrCovRatioLimitExceeded", err)
	}
}

func TestPoolQuotePotentialSwapMatchesSwap(t *testing.T) {
	p, _ := newTestPool(t)

	quoted, haircut, err := p.QuotePotentialSwap(testBUSD, testVUSDC, toWAD(100))
	if err != nil {
		t.Fatalf("QuotePotentialSwap failed: %v", err)
	}
	out, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(100), nil, testBob, 0)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if quoted.Cmp(out) != 0 {
		t.Fatalf("quote %s != swap %s", quoted, out)
	}
	if haircut.Cmp(bigInt("39772038584942516")) != 0 {
		t.Fatalf("haircut = %s, want 39772038584942516", haircut)
	}
}

func TestPoolQuotePotentialDepositWithdraw(t *testing.T) {
	p, _ := newTestPool(t)

	q, err := p.QuotePotentialDeposit(testBUSD, toWAD(100))
	if err != nil {
		t.Fatalf("QuotePotentialDeposit failed: %v", err)
	}
	got, err := p.Deposit(testBob, testBUSD, toWAD(100), nil, testBob, 0, false)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if q.Cmp(got) != 0 {
		t.Fatalf("deposit quote %s != deposit %s", q, got)
	}

	q, err = p.QuotePotentialWithdraw(testBUSD, got)
	if err != nil {
		t.Fatalf("QuotePotentialWithdraw failed: %v", err)
	}
	out, err := p.Withdraw(testBob, testBUSD, got, nil, testBob, 0)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if q.Cmp(out) != 0 {
		t.Fatalf("withdraw quote %s != withdraw %s", q, out)
	}
}

func TestPoolQuoteAmountIn(t *testing.T) {
	p, _ := newTestPool(t)

	want := big.NewInt(9939032442)
	in, err := p.QuoteAmountIn(testBUSD, testVUSDC, want)
	if err != nil {
		t.Fatalf("QuoteAmountIn failed: %v", err)
	}
	if in.Cmp(bigInt("99999999996181695000")) != 0 {
		t.Fatalf("in = %s, want 99999999996181695000", in)
	}
	// forward and reverse quotes agree
	out, _, err := p.QuotePotentialSwap(testBUSD, testVUSDC, in)
	if err != nil {
		t.Fatalf("QuotePotentialSwap failed: %v", err)
	}
	if out.Cmp(want) < 0 {
		t.Fatalf("forward quote %s below requested %s", out, want)
	}
	under, _, err := p.QuotePotentialSwap(testBUSD, testVUSDC, new(big.Int).Sub(in, big.NewInt(1)))
	if err != nil {
		t.Fatalf("QuotePotentialSwap failed: %v", err)
	}
	if under.Cmp(want) >= 0 {
		t.Fatal("one wei less input should fall short of the requested output")
	}
}

func TestPoolWithdrawFromOtherAsset(t *testing.T) {
	p, _ := newTestPool(t)

	out, err := p.WithdrawFromOtherAsset(testAlice, testBUSD, testVUSDC, toWAD(100), nil, testAlice, 0)
	if err != nil {
		t.Fatalf("WithdrawFromOtherAsset failed: %v", err)
	}
	if out.Cmp(big.NewInt(9938985830)) != 0 {
		t.Fatalf("out = %s, want 9938985830", out)
	}

	busd, _ := p.Asset(testBUSD)
	// the withdrawn cash re-entered as swap input: cash unchanged,
	// liability reduced by the burn
	if busd.Cash().Cmp(toWAD(10000)) != 0 {
		t.Fatalf("from cash = %s, want 10000e18", busd.Cash())
	}
	if busd.Liability().Cmp(toWAD(9900)) != 0 {
		t.Fatalf("from liability = %s, want 9900e18", busd.Liability())
	}
}

func TestPoolWithdrawFromOtherAssetCovRatioTooLow(t *testing.T) {
	p, _ := newTestPool(t)
	// drain vUSDC below full coverage
	if _, err := p.Swap(testBob, testVUSDC, testBUSD, big.NewInt(100_0000_0000), nil, testBob, 0); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	vusdc, _ := p.Asset(testVUSDC)
	if _, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(300), nil, testBob, 0); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	r, err := vusdc.CovRatio()
	if err != nil {
		t.Fatalf("CovRatio failed: %v", err)
	}
	if r.Cmp(wad.One) >= 0 {
		t.Fatalf("setup: vUSDC coverage %s should be below 1", r)
	}

	if _, err := p.WithdrawFromOtherAsset(testAlice, testBUSD, testVUSDC, toWAD(100), nil, testAlice, 0); err != ErrCovRatioTooLow {
		t.Fatalf("got %v, want ErrCovRatioTooLow", err)
	}
}

func TestPoolMintFee(t *testing.T) {
	p, cap := newTestPool(t)
	if err := p.SetFeeConfig(cap, bigInt("500000000000000000"), bigInt("500000000000000000")); err != nil {
		t.Fatalf("SetFeeConfig failed: %v", err)
	}
	if err := p.SetFeeTo(cap, testFeeTo); err != nil {
		t.Fatalf("SetFeeTo failed: %v", err)
	}
	if _, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(100), nil, testBob, 0); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	vusdc, _ := p.Asset(testVUSDC)
	liabBefore := vusdc.Liability()

	fee, err := p.MintFee(testVUSDC)
	if err != nil {
		t.Fatalf("MintFee failed: %v", err)
	}
	if fee.Cmp(bigInt("39772038584942516")) != 0 {
		t.Fatalf("fee = %s, want 39772038584942516", fee)
	}
	// retained and dividend halves both compound into liability
	liabGrowth := new(big.Int).Sub(vusdc.Liability(), liabBefore)
	if liabGrowth.Cmp(bigInt("39772038584942516")) != 0 {
		t.Fatalf("liability grew %s, want 39772038584942516", liabGrowth)
	}
	// the dividend half mints LP to the fee recipient
	if vusdc.LPBalanceOf(testFeeTo).Cmp(bigInt("19886019292471258")) != 0 {
		t.Fatalf("feeTo LP = %s, want 19886019292471258", vusdc.LPBalanceOf(testFeeTo))
	}

	// idempotent: a second call realizes nothing
	fee, err = p.MintFee(testVUSDC)
	if err != nil {
		t.Fatalf("MintFee failed: %v", err)
	}
	if fee.Sign() != 0 {
		t.Fatalf("second MintFee realized %s, want 0", fee)
	}
}

func TestPoolPause(t *testing.T) {
	p, cap := newTestPool(t)

	if err := p.Pause(nil); err != ErrForbidden {
		t.Fatalf("pause without capability: got %v, want ErrForbidden", err)
	}
	if err := p.Pause(cap); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := p.Pause(cap); err != ErrPoolPaused {
		t.Fatalf("double pause: got %v, want ErrPoolPaused", err)
	}

	if _, err := p.Deposit(testBob, testBUSD, toWAD(1), nil, testBob, 0, false); err != ErrPoolPaused {
		t.Fatalf("deposit while paused: got %v, want ErrPoolPaused", err)
	}
	if _, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(1), nil, testBob, 0); err != ErrPoolPaused {
		t.Fatalf("swap while paused: got %v, want ErrPoolPaused", err)
	}

	if err := p.Unpause(cap); err != nil {
		t.Fatalf("Unpause failed: %v", err)
	}
	if err := p.Unpause(cap); err != ErrPoolNotPaused {
		t.Fatalf("double unpause: got %v, want ErrPoolNotPaused", err)
	}
	if _, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(1), nil, testBob, 0); err != nil {
		t.Fatalf("swap after unpause failed: %v", err)
	}
}

func TestPoolPauseAsset(t *testing.T) {
	p, cap := newTestPool(t)
	if err := p.PauseAsset(cap, testBUSD); err != nil {
		t.Fatalf("PauseAsset failed: %v", err)
	}
	if err := p.PauseAsset(cap, testBUSD); err != ErrAssetPaused {
		t.Fatalf("double pause: got %v, want ErrAssetPaused", err)
	}

	if _, err := p.Deposit(testBob, testBUSD, toWAD(1), nil, testBob, 0, false); err != ErrAssetPaused {
		t.Fatalf("deposit on paused asset: got %v, want ErrAssetPaused", err)
	}
	// the other asset keeps working
	if _, err := p.Deposit(testBob, testVUSDC, big.NewInt(1_0000_0000), nil, testBob, 0, false); err != nil {
		t.Fatalf("deposit on live asset failed: %v", err)
	}

	if err := p.UnpauseAsset(cap, testBUSD); err != nil {
		t.Fatalf("UnpauseAsset failed: %v", err)
	}
	if err := p.UnpauseAsset(cap, testBUSD); err != ErrAssetNotPaused {
		t.Fatalf("double unpause: got %v, want ErrAssetNotPaused", err)
	}
}

func TestPoolAdminSetters(t *testing.T) {
	p, cap := newTestPool(t)
	other, otherCap, _ := NewPool(nil)
	_ = other

	// a foreign capability administers nothing here
	if err := p.SetHaircutRate(otherCap, big.NewInt(1)); err != ErrForbidden {
		t.Fatalf("foreign capability: got %v, want ErrForbidden", err)
	}

	if err := p.SetHaircutRate(cap, new(big.Int).Add(MaxHaircutRate, big.NewInt(1))); err != ErrInvalidHaircutRate {
		t.Fatalf("got %v, want ErrInvalidHaircutRate", err)
	}
	if err := p.SetAmpFactor(cap, big.NewInt(0)); err != ErrInvalidAmpFactor {
		t.Fatalf("got %v, want ErrInvalidAmpFactor", err)
	}
	if err := p.SetFeeConfig(cap, toWAD(1), toWAD(1)); err != ErrInvalidFeeConfig {
		t.Fatalf("retention+dividend > 1: got %v, want ErrInvalidFeeConfig", err)
	}
	if err := p.SetCovRatioFeeBand(cap, toWAD(2), toWAD(1)); err != ErrInvalidFeeBand {
		t.Fatalf("inverted band: got %v, want ErrInvalidFeeBand", err)
	}

	if err := p.SetHaircutRate(cap, big.NewInt(1e15)); err != nil {
		t.Fatalf("SetHaircutRate failed: %v", err)
	}
}

func TestPoolRemoveAsset(t *testing.T) {
	p, cap := newTestPool(t)

	if err := p.RemoveAsset(cap, testBUSD); err != ErrAssetNotEmpty {
		t.Fatalf("got %v, want ErrAssetNotEmpty", err)
	}

	busd, _ := p.Asset(testBUSD)
	lp := busd.LPBalanceOf(testAlice)
	if _, err := p.Withdraw(testAlice, testBUSD, lp, nil, testAlice, 0); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if err := p.RemoveAsset(cap, testBUSD); err != nil {
		t.Fatalf("RemoveAsset failed: %v", err)
	}
	if _, err := p.Asset(testBUSD); err != ErrAssetNotFound {
		t.Fatalf("got %v, want ErrAssetNotFound", err)
	}
}

func TestPoolGlobalEquilCovRatio(t *testing.T) {
	p, cap, _ := NewPool(nil)
	busd, _ := NewAsset(testBUSD, 18, 0)
	usdt, _ := NewAsset(testUSDT, 18, 0)
	p.AddAsset(cap, busd)
	p.AddAsset(cap, usdt)
	p.Deposit(testAlice, testBUSD, toWAD(10000), nil, testAlice, 0, false)
	p.Deposit(testAlice, testUSDT, toWAD(10000), nil, testAlice, 0, false)

	r, err := p.GlobalEquilCovRatio()
	if err != nil {
		t.Fatalf("GlobalEquilCovRatio failed: %v", err)
	}
	if r.Cmp(toWAD(1)) != 0 {
		t.Fatalf("balanced r* = %s, want 1e18", r)
	}

	if err := busd.AddCash(p, toWAD(2000)); err != nil {
		t.Fatalf("AddCash failed: %v", err)
	}
	r, err = p.GlobalEquilCovRatio()
	if err != nil {
		t.Fatalf("GlobalEquilCovRatio failed: %v", err)
	}
	if r.Cmp(bigInt("1099636248161105193")) != 0 {
		t.Fatalf("r* = %s, want 1099636248161105193", r)
	}
}

func TestPoolEvents(t *testing.T) {
	p, _ := newTestPool(t)
	if _, err := p.Swap(testBob, testBUSD, testVUSDC, toWAD(100), nil, testBob, 0); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	events := p.Events()
	// two seed deposits plus the swap
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	swap, ok := events[2].(SwapEvent)
	if !ok {
		t.Fatalf("last event is %T, want SwapEvent", events[2])
	}
	if swap.AmountOut.Cmp(big.NewInt(9939032442)) != 0 {
		t.Fatalf("event amountOut = %s, want 9939032442", swap.AmountOut)
	}
	if swap.Name() != "Swap" {
		t.Fatalf("event name = %q, want Swap", swap.Name())
	}
}
