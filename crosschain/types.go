// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package crosschain extends a pool with asynchronous cross-chain
// settlement. A swap initiated on one chain burns tokens into the source
// pool and mints "credit", a chain-agnostic unit of value; a relay adaptor
// carries the credit to the destination chain where it is burned against
// the destination pool, or falls back to a redeemable credit balance when
// settlement cannot complete. Net exposure per channel is capped on both
// the minting and the burning side.
package crosschain

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/stableswap/wad"
)

// Errors - adaptor binding and channels
var (
	ErrAdaptorAlreadyBound = errors.New("adaptor already bound")
	ErrAdaptorNotBound     = errors.New("adaptor not bound")
	ErrOnlyAdaptor         = errors.New("only adaptor")
	ErrChannelExists       = errors.New("channel already open")
	ErrChannelNotFound     = errors.New("channel not open")
	ErrWrongChain          = errors.New("wrong target chain")
)

// Errors - credit accounting
var (
	ErrZeroCreditAmount = errors.New("zero credit amount")
	ErrCreditNotEnough  = errors.New("credit not enough")
	ErrMaxMintedCredit  = errors.New("maximum minted credit reached")
	ErrMaxBurnedCredit  = errors.New("maximum burned credit reached")
)

// Errors - message delivery
var (
	ErrMessageDelivered  = errors.New("message delivered")
	ErrMessageNotFound   = errors.New("message not found")
	ErrMessageOutOfOrder = errors.New("message out of order")
	ErrRecordSettled     = errors.New("swap record already settled")
)

// SwapStatus tracks a cross-chain operation. INITIATED transitions to
// exactly one of the delivered states and never back.
type SwapStatus uint8

const (
	StatusInitiated SwapStatus = iota
	StatusDeliveredSuccess
	StatusDeliveredFallback
)

func (s SwapStatus) String() string {
	switch s {
	case StatusInitiated:
		return "INITIATED"
	case StatusDeliveredSuccess:
		return "DELIVERED_SUCCESS"
	case StatusDeliveredFallback:
		return "DELIVERED_FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// CreditLedger tracks one channel's credit flow: total minted against
// outbound swaps, total burned by completions and redemptions, the
// net-exposure caps, and per-address redeemable balances from fallbacks.
// After every operation minted - burned <= MaxOutboundCredit and
// burned - minted <= MaxInboundCredit.
type CreditLedger struct {
	Channel uint32 // remote chain id

	TotalCreditMinted *big.Int
	TotalCreditBurned *big.Int
	MaxOutboundCredit *big.Int
	MaxInboundCredit  *big.Int

	balances map[common.Address]*big.Int
}

func newCreditLedger(channel uint32, maxOutbound, maxInbound *big.Int) *CreditLedger {
	return &CreditLedger{
		Channel:           channel,
		TotalCreditMinted: big.NewInt(0),
		TotalCreditBurned: big.NewInt(0),
		MaxOutboundCredit: wad.Clone(maxOutbound),
		MaxInboundCredit:  wad.Clone(maxInbound),
		balances:          make(map[common.Address]*big.Int),
	}
}

// NetCredit returns minted - burned, the channel's outstanding exposure.
func (l *CreditLedger) NetCredit() *big.Int {
	return new(big.Int).Sub(l.TotalCreditMinted, l.TotalCreditBurned)
}

// BalanceOf returns addr's redeemable credit on this channel.
func (l *CreditLedger) BalanceOf(addr common.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return wad.Clone(b)
	}
	return big.NewInt(0)
}

// mint records newly issued credit, enforcing the outbound cap.
func (l *CreditLedger) mint(amount *big.Int) error {
	next := new(big.Int).Add(l.TotalCreditMinted, amount)
	if new(big.Int).Sub(next, l.TotalCreditBurned).Cmp(l.MaxOutboundCredit) > 0 {
		return ErrMaxMintedCredit
	}
	l.TotalCreditMinted = next
	return nil
}

// burn records consumed credit, enforcing the inbound cap.
func (l *CreditLedger) burn(amount *big.Int) error {
	next := new(big.Int).Add(l.TotalCreditBurned, amount)
	if new(big.Int).Sub(next, l.TotalCreditMinted).Cmp(l.MaxInboundCredit) > 0 {
		return ErrMaxBurnedCredit
	}
	l.TotalCreditBurned = next
	return nil
}

func (l *CreditLedger) credit(addr common.Address, amount *big.Int) {
	b, ok := l.balances[addr]
	if !ok {
		b = big.NewInt(0)
		l.balances[addr] = b
	}
	b.Add(b, amount)
}

func (l *CreditLedger) debit(addr common.Address, amount *big.Int) error {
	b, ok := l.balances[addr]
	if !ok || b.Cmp(amount) < 0 {
		return ErrCreditNotEnough
	}
	b.Sub(b, amount)
	if b.Sign() == 0 {
		delete(l.balances, addr)
	}
	return nil
}

// MessagePayload is the settlement instruction carried across chains.
type MessagePayload struct {
	ToToken      common.Address
	Credit       *big.Int // WAD
	MinAmountOut *big.Int // native units on the destination, nil for none
	Recipient    common.Address
}

// Message is one relay unit. Nonces are monotonic per channel and a
// message is delivered at most once: Delivered transitions false to true
// exactly once on the destination chain.
type Message struct {
	ID          [32]byte
	Nonce       uint64
	SourceChain uint32
	TargetChain uint32
	Payload     MessagePayload
	Delivered   bool
}

// messageID derives the relay id from the channel pair, nonce and payload.
func messageID(sourceChain, targetChain uint32, nonce uint64, payload MessagePayload) [32]byte {
	h := blake3.New()

	var chains [8]byte
	binary.BigEndian.PutUint32(chains[0:4], sourceChain)
	binary.BigEndian.PutUint32(chains[4:8], targetChain)
	h.Write(chains[:])

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(n[:])

	h.Write(payload.ToToken.Bytes())
	h.Write(payload.Credit.Bytes())
	h.Write(payload.Recipient.Bytes())

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// SwapRecord is the source-chain view of one cross-chain operation.
type SwapRecord struct {
	MessageID    [32]byte
	TargetChain  uint32
	Sender       common.Address
	Recipient    common.Address
	CreditAmount *big.Int
	Status       SwapStatus
}

// SwapTokensForCreditEvent records an initiated cross-chain swap.
type SwapTokensForCreditEvent struct {
	Sender       common.Address
	FromToken    common.Address
	TargetChain  uint32
	AmountIn     *big.Int // native units
	CreditAmount *big.Int // WAD, after haircut
	Haircut      *big.Int // WAD credit units
	To           common.Address
}

func (SwapTokensForCreditEvent) Name() string { return "SwapTokensForCredit" }

// SwapCreditForTokensEvent records credit redeemed into tokens.
type SwapCreditForTokensEvent struct {
	Sender       common.Address
	ToToken      common.Address
	CreditAmount *big.Int // WAD
	AmountOut    *big.Int // native units
	To           common.Address
}

func (SwapCreditForTokensEvent) Name() string { return "SwapCreditForTokens" }
