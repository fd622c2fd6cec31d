package session

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventType identifies a session state change
type EventType int

const (
	EventConnected EventType = iota
	EventDisconnected
	EventAccountChanged
	EventChainChanged
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventAccountChanged:
		return "account_changed"
	case EventChainChanged:
		return "chain_changed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the session state has changed
type Event struct {
	Type    EventType
	Account common.Address // connected account, or the new primary account for EventAccountChanged
	ChainID *big.Int       // set for EventChainChanged
	Reason  string
}
