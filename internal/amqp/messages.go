package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds carried on the ledger sync queue. The worker resolves the ID
// against the matching table.
const (
	KindPersonalExpense = "personal_expense"
	KindGroupExpense    = "group_expense"
	KindSettlement      = "settlement"
)

// LedgerEventMessage is a lightweight pointer to a ledger row that needs
// exporting. Only kind and ID travel on the wire; the worker fetches the full
// row from the database.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(kind, id string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		ID:        id,
		Version:   1,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindPersonalExpense, KindGroupExpense, KindSettlement:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
