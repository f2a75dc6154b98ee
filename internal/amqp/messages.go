package amqp

import (
	"encoding/json"
	"time"
)

// EventType names a committed ledger change.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventTransferCreated    EventType = "transfer.created"
)

// LedgerEvent is published after a mutation commits. Amount is a decimal
// string so consumers never see a float.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	UserID        string    `json:"user_id"`
	WalletID      string    `json:"wallet_id"`
	TransactionID string    `json:"transaction_id"`
	Kind          string    `json:"kind"`
	Title         string    `json:"title,omitempty"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Amount        string    `json:"amount"`
	Date          time.Time `json:"date"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps the event with the current time.
func NewLedgerEvent(typ EventType, userID, walletID, transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Type:          typ,
		UserID:        userID,
		WalletID:      walletID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// RoutingKey is the event type, so consumers can bind to a subset.
func (e *LedgerEvent) RoutingKey() string {
	return string(e.Type)
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event delivered by the broker.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
