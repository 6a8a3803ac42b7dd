// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crosschain

import (
	"errors"
	"sync"
)

// Adaptor is the message relay boundary. A production adaptor wraps a real
// cross-chain messaging layer; tests use MockAdaptor. The adaptor promises
// at-least-once attempted delivery; the pool enforces at-most-once
// application per message id.
type Adaptor interface {
	// Bind hands the adaptor its delivery capability for one endpoint.
	// Called by CrossChainPool.BindAdaptor.
	Bind(endpoint *CrossChainPool, cap *AdaptorCap) error

	// Send accepts an outbound message for relay.
	Send(msg *Message) error
}

// AdaptorCap authorizes delivery into one pool. Only the adaptor the pool
// was bound to holds it.
type AdaptorCap struct {
	pool *CrossChainPool
}

// MockAdaptor is a deterministic in-memory relay connecting pools by chain
// id. Messages queue on Send and move only when the test calls Deliver or
// DeliverAll, so partial delivery and redelivery are easy to stage.
type MockAdaptor struct {
	endpoints map[uint32]*CrossChainPool
	caps      map[uint32]*AdaptorCap
	sent      map[[32]byte]*Message
	queue     [][32]byte

	mu sync.Mutex
}

// NewMockAdaptor creates an empty relay.
func NewMockAdaptor() *MockAdaptor {
	return &MockAdaptor{
		endpoints: make(map[uint32]*CrossChainPool),
		caps:      make(map[uint32]*AdaptorCap),
		sent:      make(map[[32]byte]*Message),
	}
}

// Bind registers an endpoint and its delivery capability.
func (m *MockAdaptor) Bind(endpoint *CrossChainPool, cap *AdaptorCap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[endpoint.ChainID]; ok {
		return errors.New("endpoint already registered")
	}
	m.endpoints[endpoint.ChainID] = endpoint
	m.caps[endpoint.ChainID] = cap
	return nil
}

// Send queues a message for later delivery.
func (m *MockAdaptor) Send(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sent[msg.ID]; ok {
		return ErrMessageDelivered
	}
	m.sent[msg.ID] = msg
	m.queue = append(m.queue, msg.ID)
	return nil
}

// Pending returns the ids of queued, not yet delivered messages in send
// order.
func (m *MockAdaptor) Pending() [][32]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][32]byte, len(m.queue))
	copy(out, m.queue)
	return out
}

// Deliver drives one message into its destination pool and settles the
// source-side record with the outcome. Redelivering an already-applied
// message returns the destination pool's "message delivered" error.
func (m *MockAdaptor) Deliver(msgID [32]byte) (SwapStatus, error) {
	m.mu.Lock()
	msg, ok := m.sent[msgID]
	if !ok {
		m.mu.Unlock()
		return 0, ErrMessageNotFound
	}
	dst := m.endpoints[msg.TargetChain]
	dstCap := m.caps[msg.TargetChain]
	src := m.endpoints[msg.SourceChain]
	srcCap := m.caps[msg.SourceChain]
	m.mu.Unlock()

	if dst == nil {
		return 0, ErrChannelNotFound
	}
	status, err := dst.ReceiveMessage(dstCap, msg)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	for i, id := range m.queue {
		if id == msgID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	// The source pool may not be wired in single-chain tests.
	if src != nil {
		if err := src.SettleRecord(srcCap, msgID, status); err != nil {
			return status, err
		}
	}
	return status, nil
}

// DeliverAll drains the queue in send order.
func (m *MockAdaptor) DeliverAll() error {
	for {
		pending := m.Pending()
		if len(pending) == 0 {
			return nil
		}
		if _, err := m.Deliver(pending[0]); err != nil {
			return err
		}
	}
}
