package amqp

import (
	"encoding/json"
	"time"
)

// Record kinds carried by sync messages.
const (
	KindInvoice         = "invoice"
	KindBankTransaction = "bank_transaction"
	KindSalaryRemainder = "salary_remainder"
)

// RecordSyncMessage is a lightweight message for exporting a record to the
// journal spreadsheet. It carries only the kind, ID and version; the worker
// fetches the full record from the database.
type RecordSyncMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordSyncMessage creates a new sync message for a record
func NewRecordSyncMessage(kind string, id, version int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		Kind:      kind,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON creates a message from JSON bytes
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
