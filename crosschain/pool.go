// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crosschain

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/stableswap/core"
	"github.com/luxfi/stableswap/pool"
	"github.com/luxfi/stableswap/wad"
)

// CrossChainPool composes a pool with per-channel credit ledgers and a
// relay adaptor. Outbound swaps burn tokens into the local pool and mint
// credit; inbound messages burn credit against the local pool or fall back
// to a redeemable credit balance. The source-chain debit is final the
// moment the message is sent, so the destination never rejects a relay for
// economic reasons: it settles or it credits.
type CrossChainPool struct {
	*pool.Pool
	ChainID uint32

	adaptor    Adaptor
	adaptorCap *AdaptorCap

	ledgers   map[uint32]*CreditLedger
	records   map[[32]byte]*SwapRecord
	outNonce  map[uint32]uint64
	nextNonce map[uint32]uint64 // minimum acceptable inbound nonce per channel
	delivered map[[32]byte]bool
	events    []pool.Event

	log log.Logger
	mu  sync.RWMutex
}

// NewCrossChainPool creates a pool on the given chain id together with its
// administration capability.
func NewCrossChainPool(chainID uint32, cfg *pool.Config) (*CrossChainPool, *pool.AdminCap, error) {
	inner, admin, err := pool.NewPool(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &CrossChainPool{
		Pool:      inner,
		ChainID:   chainID,
		ledgers:   make(map[uint32]*CreditLedger),
		records:   make(map[[32]byte]*SwapRecord),
		outNonce:  make(map[uint32]uint64),
		nextNonce: make(map[uint32]uint64),
		delivered: make(map[[32]byte]bool),
		log:       log.NewTestLogger(log.InfoLevel),
	}, admin, nil
}

// BindAdaptor attaches the relay. Admin only, settable exactly once; the
// adaptor receives the delivery capability for this pool.
func (p *CrossChainPool) BindAdaptor(cap *pool.AdminCap, a Adaptor) error {
	if !p.IsAdmin(cap) {
		return pool.ErrForbidden
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adaptor != nil {
		return ErrAdaptorAlreadyBound
	}
	acap := &AdaptorCap{pool: p}
	if err := a.Bind(p, acap); err != nil {
		return err
	}
	p.adaptor = a
	p.adaptorCap = acap
	return nil
}

// OpenChannel opens a credit channel to a remote chain with the given
// net-exposure caps. Admin only.
func (p *CrossChainPool) OpenChannel(cap *pool.AdminCap, channel uint32, maxOutbound, maxInbound *big.Int) error {
	if !p.IsAdmin(cap) {
		return pool.ErrForbidden
	}
	if maxOutbound == nil || maxOutbound.Sign() < 0 || maxInbound == nil || maxInbound.Sign() < 0 {
		return pool.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.ledgers[channel]; ok {
		return ErrChannelExists
	}
	p.ledgers[channel] = newCreditLedger(channel, maxOutbound, maxInbound)
	return nil
}

// Ledger returns the credit ledger for a channel.
func (p *CrossChainPool) Ledger(channel uint32) (*CreditLedger, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l, ok := p.ledgers[channel]
	if !ok {
		return nil, ErrChannelNotFound
	}
	return l, nil
}

// CreditBalanceOf returns addr's redeemable credit on a channel.
func (p *CrossChainPool) CreditBalanceOf(channel uint32, addr common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l, ok := p.ledgers[channel]
	if !ok {
		return big.NewInt(0)
	}
	return l.BalanceOf(addr)
}

// Record returns the source-side record of a cross-chain operation.
func (p *CrossChainPool) Record(msgID [32]byte) (*SwapRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.records[msgID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := *r
	cp.CreditAmount = wad.Clone(r.CreditAmount)
	return &cp, nil
}

// Events returns the pool's operation records including cross-chain ones.
func (p *CrossChainPool) Events() []pool.Event {
	base := p.Pool.Events()
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append(base, p.events...)
}

// GlobalEquilCovRatioWithCredit returns the equilibrium coverage ratio
// counting outstanding credit as part of the invariant, so outbound flows
// already in flight throttle further minting.
func (p *CrossChainPool) GlobalEquilCovRatioWithCredit() (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, sumL := p.InvariantStats()
	d.Add(d, p.netCreditLocked())
	return core.EquilCovRatio(d, sumL, p.AmpFactor())
}

func (p *CrossChainPool) netCreditLocked() *big.Int {
	net := big.NewInt(0)
	for _, l := range p.ledgers {
		net.Add(net, l.NetCredit())
	}
	return net
}

// QuoteSwapTokensForCredit prices an outbound swap: the credit minted for
// amountIn native units of fromToken and the credit haircut charged by the
// with-credit coverage fee curve.
func (p *CrossChainPool) QuoteSwapTokensForCredit(fromToken common.Address, amountIn *big.Int) (credit, haircut *big.Int, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.quoteTokensForCredit(fromToken, amountIn)
}

func (p *CrossChainPool) quoteTokensForCredit(fromToken common.Address, amountIn *big.Int) (credit, haircut *big.Int, err error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, pool.ErrZeroAmount
	}
	a, err := p.Asset(fromToken)
	if err != nil {
		return nil, nil, err
	}
	wadIn, err := wad.FromNative(amountIn, a.Decimals)
	if err != nil {
		return nil, nil, err
	}
	amp := p.AmpFactor()
	cash, liab := a.Cash(), a.Liability()
	gross, err := core.SwapToCreditQuote(cash, liab, wadIn, amp)
	if err != nil {
		return nil, nil, err
	}

	// The haircut scales with the post-swap equilibrium ratio including
	// all outstanding credit plus this mint. Zero at equilibrium.
	d, sumL := p.InvariantStats()
	d.Sub(d, core.AssetValue(cash, liab, amp))
	d.Add(d, core.AssetValue(new(big.Int).Add(cash, wadIn), liab, amp))
	d.Add(d, p.netCreditLocked())
	d.Add(d, gross)
	rStar, err := core.EquilCovRatio(d, sumL, amp)
	if err != nil {
		return nil, nil, err
	}
	start, end := p.CovRatioFeeBand()
	rate, err := core.HighCovRatioFeeRate(rStar, start, end)
	if err != nil {
		return nil, nil, err
	}
	hc := wad.Mul(gross, rate)
	return new(big.Int).Sub(gross, hc), hc, nil
}

// QuoteSwapCreditForTokens prices a credit redemption into native units of
// toToken.
func (p *CrossChainPool) QuoteSwapCreditForTokens(toToken common.Address, credit *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, native, err := p.quoteCreditForTokens(toToken, credit)
	return native, err
}

func (p *CrossChainPool) quoteCreditForTokens(toToken common.Address, credit *big.Int) (wadOut, native *big.Int, err error) {
	if credit == nil || credit.Sign() <= 0 {
		return nil, nil, ErrZeroCreditAmount
	}
	a, err := p.Asset(toToken)
	if err != nil {
		return nil, nil, err
	}
	out, err := core.SwapFromCreditQuote(a.Cash(), a.Liability(), credit, p.AmpFactor())
	if err != nil {
		return nil, nil, err
	}
	n, err := wad.ToNative(out, a.Decimals)
	if err != nil {
		return nil, nil, err
	}
	w, err := wad.FromNative(n, a.Decimals)
	if err != nil {
		return nil, nil, err
	}
	return w, n, nil
}

// SwapTokensForTokensCrossChain initiates a cross-chain swap: burns
// amountIn of fromToken into the local pool, mints credit on the target
// channel's ledger and sends a settlement message naming toToken for the
// destination pool. Returns the credit minted and the credit haircut.
func (p *CrossChainPool) SwapTokensForTokensCrossChain(
	sender common.Address,
	fromToken common.Address,
	toToken common.Address,
	targetChannel uint32,
	amountIn *big.Int,
	minCreditAmount *big.Int,
	minFinalAmount *big.Int,
	to common.Address,
) (credit, haircut *big.Int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Paused() {
		return nil, nil, pool.ErrPoolPaused
	}
	if sender == (common.Address{}) || to == (common.Address{}) {
		return nil, nil, pool.ErrZeroAddress
	}
	if p.adaptor == nil {
		return nil, nil, ErrAdaptorNotBound
	}
	ledger, ok := p.ledgers[targetChannel]
	if !ok {
		return nil, nil, ErrChannelNotFound
	}
	a, err := p.Asset(fromToken)
	if err != nil {
		return nil, nil, err
	}
	if a.Paused() {
		return nil, nil, pool.ErrAssetPaused
	}

	credit, haircut, err = p.quoteTokensForCredit(fromToken, amountIn)
	if err != nil {
		return nil, nil, err
	}
	if credit.Sign() <= 0 {
		return nil, nil, ErrZeroCreditAmount
	}
	if minCreditAmount != nil && credit.Cmp(minCreditAmount) < 0 {
		return nil, nil, pool.ErrAmountTooLow
	}
	if err := ledger.mint(credit); err != nil {
		return nil, nil, err
	}

	wadIn, err := wad.FromNative(amountIn, a.Decimals)
	if err != nil {
		return nil, nil, err
	}
	if err := a.AddCash(p.Pool, wadIn); err != nil {
		return nil, nil, err
	}

	nonce := p.outNonce[targetChannel]
	p.outNonce[targetChannel] = nonce + 1
	payload := MessagePayload{
		ToToken:      toToken,
		Credit:       wad.Clone(credit),
		MinAmountOut: cloneOrNil(minFinalAmount),
		Recipient:    to,
	}
	msg := &Message{
		ID:          messageID(p.ChainID, targetChannel, nonce, payload),
		Nonce:       nonce,
		SourceChain: p.ChainID,
		TargetChain: targetChannel,
		Payload:     payload,
	}
	p.records[msg.ID] = &SwapRecord{
		MessageID:    msg.ID,
		TargetChain:  targetChannel,
		Sender:       sender,
		Recipient:    to,
		CreditAmount: wad.Clone(credit),
		Status:       StatusInitiated,
	}
	if err := p.adaptor.Send(msg); err != nil {
		return nil, nil, err
	}

	p.events = append(p.events, SwapTokensForCreditEvent{
		Sender: sender, FromToken: fromToken, TargetChain: targetChannel,
		AmountIn: wad.Clone(amountIn), CreditAmount: wad.Clone(credit),
		Haircut: wad.Clone(haircut), To: to,
	})
	p.log.Info("cross-chain swap initiated",
		"fromToken", fromToken, "targetChain", targetChannel,
		"amountIn", amountIn, "credit", credit, "nonce", nonce)
	return credit, haircut, nil
}

// ReceiveMessage applies one relay message. Adaptor only. Redelivery fails
// with "message delivered"; nonce regression within a channel fails with
// ErrMessageOutOfOrder; neither marks the message applied, so the relay
// may retry after fixing its ordering. Once accepted the message settles
// exactly once: tokens on success, recipient credit on fallback.
func (p *CrossChainPool) ReceiveMessage(cap *AdaptorCap, msg *Message) (SwapStatus, error) {
	if err := p.checkAdaptor(cap); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.TargetChain != p.ChainID {
		return 0, ErrWrongChain
	}
	if p.delivered[msg.ID] || msg.Delivered {
		return 0, ErrMessageDelivered
	}
	channel := msg.SourceChain
	ledger, ok := p.ledgers[channel]
	if !ok {
		return 0, ErrChannelNotFound
	}
	if msg.Nonce < p.nextNonce[channel] {
		return 0, ErrMessageOutOfOrder
	}

	// Accepted: the single false -> true transition. Whatever happens next
	// the message settles now, one way.
	p.delivered[msg.ID] = true
	p.nextNonce[channel] = msg.Nonce + 1
	msg.Delivered = true

	out, err := p.completeLocked(ledger, msg.Payload)
	if err != nil {
		// The source-chain burn is final; credit the recipient instead of
		// failing the relay.
		ledger.credit(msg.Payload.Recipient, msg.Payload.Credit)
		p.log.Info("cross-chain swap fell back to credit",
			"channel", channel, "nonce", msg.Nonce,
			"recipient", msg.Payload.Recipient, "credit", msg.Payload.Credit, "cause", err)
		return StatusDeliveredFallback, nil
	}
	p.events = append(p.events, SwapCreditForTokensEvent{
		Sender: msg.Payload.Recipient, ToToken: msg.Payload.ToToken,
		CreditAmount: wad.Clone(msg.Payload.Credit), AmountOut: out,
		To: msg.Payload.Recipient,
	})
	return StatusDeliveredSuccess, nil
}

// completeLocked burns credit against the local pool and releases tokens.
func (p *CrossChainPool) completeLocked(ledger *CreditLedger, payload MessagePayload) (*big.Int, error) {
	a, err := p.Asset(payload.ToToken)
	if err != nil {
		return nil, err
	}
	if p.Paused() {
		return nil, pool.ErrPoolPaused
	}
	if a.Paused() {
		return nil, pool.ErrAssetPaused
	}
	wadOut, native, err := p.quoteCreditForTokens(payload.ToToken, payload.Credit)
	if err != nil {
		return nil, err
	}
	if payload.MinAmountOut != nil && native.Cmp(payload.MinAmountOut) < 0 {
		return nil, pool.ErrAmountTooLow
	}
	if err := ledger.burn(payload.Credit); err != nil {
		return nil, err
	}
	if err := a.RemoveCash(p.Pool, wadOut); err != nil {
		// Roll the burn back; the caller will fall back to credit.
		ledger.TotalCreditBurned.Sub(ledger.TotalCreditBurned, payload.Credit)
		return nil, err
	}
	return native, nil
}

// CompleteSwapCreditForTokens settles credit arriving from a channel into
// tokens. Adaptor only; ReceiveMessage is the usual entry, this is the
// direct form for relays that unbundle their own messages.
func (p *CrossChainPool) CompleteSwapCreditForTokens(cap *AdaptorCap, channel uint32, toToken common.Address, creditAmount, minAmountOut *big.Int, to common.Address) (*big.Int, error) {
	if err := p.checkAdaptor(cap); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ledger, ok := p.ledgers[channel]
	if !ok {
		return nil, ErrChannelNotFound
	}
	return p.completeLocked(ledger, MessagePayload{
		ToToken:      toToken,
		Credit:       creditAmount,
		MinAmountOut: minAmountOut,
		Recipient:    to,
	})
}

// MintCredit credits a recipient directly, the fallback settlement.
// Adaptor only.
func (p *CrossChainPool) MintCredit(cap *AdaptorCap, channel uint32, to common.Address, creditAmount *big.Int) error {
	if err := p.checkAdaptor(cap); err != nil {
		return err
	}
	if creditAmount == nil || creditAmount.Sign() <= 0 {
		return ErrZeroCreditAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ledger, ok := p.ledgers[channel]
	if !ok {
		return ErrChannelNotFound
	}
	ledger.credit(to, creditAmount)
	return nil
}

// SwapCreditForTokens redeems credit held on a channel (typically from a
// fallback) into toToken locally.
func (p *CrossChainPool) SwapCreditForTokens(sender common.Address, channel uint32, toToken common.Address, creditAmount, minAmountOut *big.Int, to common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Paused() {
		return nil, pool.ErrPoolPaused
	}
	if sender == (common.Address{}) || to == (common.Address{}) {
		return nil, pool.ErrZeroAddress
	}
	ledger, ok := p.ledgers[channel]
	if !ok {
		return nil, ErrChannelNotFound
	}
	if creditAmount == nil || creditAmount.Sign() <= 0 {
		return nil, ErrZeroCreditAmount
	}
	if ledger.BalanceOf(sender).Cmp(creditAmount) < 0 {
		return nil, ErrCreditNotEnough
	}

	wadOut, native, err := p.quoteCreditForTokens(toToken, creditAmount)
	if err != nil {
		return nil, err
	}
	if minAmountOut != nil && native.Cmp(minAmountOut) < 0 {
		return nil, pool.ErrAmountTooLow
	}
	if err := ledger.burn(creditAmount); err != nil {
		return nil, err
	}
	a, err := p.Asset(toToken)
	if err != nil {
		return nil, err
	}
	if err := a.RemoveCash(p.Pool, wadOut); err != nil {
		ledger.TotalCreditBurned.Sub(ledger.TotalCreditBurned, creditAmount)
		return nil, err
	}
	if err := ledger.debit(sender, creditAmount); err != nil {
		return nil, err
	}

	p.events = append(p.events, SwapCreditForTokensEvent{
		Sender: sender, ToToken: toToken,
		CreditAmount: wad.Clone(creditAmount), AmountOut: native, To: to,
	})
	return native, nil
}

// SwapCreditForTokensCrossChain forwards credit held on fromChannel to a
// destination chain for settlement there.
func (p *CrossChainPool) SwapCreditForTokensCrossChain(
	sender common.Address,
	fromChannel uint32,
	targetChannel uint32,
	toToken common.Address,
	creditAmount *big.Int,
	minAmountOut *big.Int,
	to common.Address,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Paused() {
		return pool.ErrPoolPaused
	}
	if sender == (common.Address{}) || to == (common.Address{}) {
		return pool.ErrZeroAddress
	}
	if p.adaptor == nil {
		return ErrAdaptorNotBound
	}
	if creditAmount == nil || creditAmount.Sign() <= 0 {
		return ErrZeroCreditAmount
	}
	ledger, ok := p.ledgers[fromChannel]
	if !ok {
		return ErrChannelNotFound
	}
	if _, ok := p.ledgers[targetChannel]; !ok {
		return ErrChannelNotFound
	}
	if err := ledger.debit(sender, creditAmount); err != nil {
		return err
	}

	nonce := p.outNonce[targetChannel]
	p.outNonce[targetChannel] = nonce + 1
	payload := MessagePayload{
		ToToken:      toToken,
		Credit:       wad.Clone(creditAmount),
		MinAmountOut: cloneOrNil(minAmountOut),
		Recipient:    to,
	}
	msg := &Message{
		ID:          messageID(p.ChainID, targetChannel, nonce, payload),
		Nonce:       nonce,
		SourceChain: p.ChainID,
		TargetChain: targetChannel,
		Payload:     payload,
	}
	p.records[msg.ID] = &SwapRecord{
		MessageID:    msg.ID,
		TargetChain:  targetChannel,
		Sender:       sender,
		Recipient:    to,
		CreditAmount: wad.Clone(creditAmount),
		Status:       StatusInitiated,
	}
	if err := p.adaptor.Send(msg); err != nil {
		return err
	}
	return nil
}

// SettleRecord marks an initiated operation terminal with the delivery
// outcome. Adaptor only; a settled record never changes again.
func (p *CrossChainPool) SettleRecord(cap *AdaptorCap, msgID [32]byte, status SwapStatus) error {
	if err := p.checkAdaptor(cap); err != nil {
		return err
	}
	if status != StatusDeliveredSuccess && status != StatusDeliveredFallback {
		return ErrRecordSettled
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[msgID]
	if !ok {
		return ErrMessageNotFound
	}
	if r.Status != StatusInitiated {
		return ErrRecordSettled
	}
	r.Status = status
	return nil
}

func (p *CrossChainPool) checkAdaptor(cap *AdaptorCap) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.adaptorCap == nil || cap != p.adaptorCap {
		return ErrOnlyAdaptor
	}
	return nil
}

func cloneOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return wad.Clone(v)
}
