// SPDX-License-Identifier: GPL-3.0

// Package macif defines the external interfaces the CSMA/CA core consumes
// from the PHY and MAC, and exposes back to the MAC (spec.md §6). No
// on-disk format, wire protocol, or CLI lives here: these are pure Go
// interfaces an external driver (a real MAC/PHY stack, or an example
// harness like cmd/wpansim) implements.
package macif

import "github.com/csma-noba/wpancsma/slotclock"

// CCAStatus is the PHY's answer to a clear-channel-assessment request.
type CCAStatus int

const (
	CCAIdle CCAStatus = iota
	CCABusy
	CCATRXOff
)

func (s CCAStatus) String() string {
	switch s {
	case CCAIdle:
		return "IDLE"
	case CCABusy:
		return "BUSY"
	case CCATRXOff:
		return "TRX_OFF"
	default:
		return "UNKNOWN"
	}
}

// PHY is what the core consumes from the physical layer: an asynchronous
// CCA request/confirm pair and the band's symbol rate.
type PHY interface {
	// RequestCCA asks the PHY to sense the channel. The result arrives
	// later via StateMachine.PlmeCCAConfirm.
	RequestCCA()
	// CancelCCA synchronously aborts any outstanding CCA request.
	CancelCCA()
	// SymbolRate returns the chosen band's symbols per second.
	SymbolRate() slotclock.SymbolRate
}

// MAC is what the core consumes from the MAC layer: beacon timing anchors
// and the facts needed to decide whether there's enough time left in the
// CAP for this transaction.
type MAC interface {
	IsCoordDestination() bool
	IsTxAckRequired() bool
	TxPacketSymbols() uint32
	AckWaitSymbols() uint32
	IfsSymbols() uint32
	BeaconTxTime() slotclock.Clock
	BeaconRxTime() slotclock.Clock
	RxBeaconSymbols() uint32
	SuperframeDuration() uint32
	IncomingSuperframeDuration() uint32
	FinalCapSlot() uint8
	IncomingFinalCapSlot() uint8
}

// MACState is the state the core reports back to the MAC via
// Callbacks.MACState.
type MACState int

const (
	ChannelIdle MACState = iota
	CSMADeferred
)

func (s MACState) String() string {
	switch s {
	case ChannelIdle:
		return "CHANNEL_IDLE"
	case CSMADeferred:
		return "MAC_CSMA_DEFERRED"
	default:
		return "UNKNOWN"
	}
}

// Callbacks is what the core exposes back to the MAC: the state-transition
// callback and the two trace-only signals of spec.md §7 (collision count
// and (m,k) violation). Neither trace call is an error condition.
type Callbacks interface {
	MACState(state MACState)
	CollisionTrace(priority int, count int)
	MKViolationTrace(priority int)
}

// TransCostNotifier is the optional trans_cost_callback hook: invoked
// before the final REQ_CCA of an attempt with the estimated total
// transaction cost in symbols. A Callbacks implementation may additionally
// implement this; callers check for it via a type assertion since it is
// optional per spec.md §6.
type TransCostNotifier interface {
	TransCost(symbols uint32)
}
