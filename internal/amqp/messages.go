package amqp

import (
	"encoding/json"
	"slices"
	"time"

	"salvadanaio/internal/core"
)

// LedgerEntryMessage carries a committed transaction to the ledger worker.
// Category names are resolved at publish time since categories may later be
// renamed or deleted.
type LedgerEntryMessage struct {
	Transaction   core.Transaction `json:"transaction"`
	CategoryNames []string         `json:"categoryNames,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

func NewLedgerEntryMessage(tx core.Transaction, categoryNames []string) *LedgerEntryMessage {
	return &LedgerEntryMessage{
		Transaction:   tx,
		CategoryNames: slices.Clone(categoryNames),
		Timestamp:     time.Now(),
	}
}

func (m *LedgerEntryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEntryMessageFromJSON parses a message body.
func LedgerEntryMessageFromJSON(data []byte) (*LedgerEntryMessage, error) {
	var msg LedgerEntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
