package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sync actions carried by RecordSyncMessage.
const (
	// ActionUpsert mirrors a single record identified by RecordID.
	ActionUpsert = "upsert"
	// ActionResync rebuilds the whole mirror from storage.
	ActionResync = "resync"
)

// RecordSyncMessage asks the worker to mirror stored records. It carries only
// identifiers; the worker reads the current rows from the database.
type RecordSyncMessage struct {
	MessageID string    `json:"message_id"`
	Action    string    `json:"action"`
	RecordID  int64     `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordSyncMessage creates a message with a fresh ID.
func NewRecordSyncMessage(action string, recordID int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		MessageID: uuid.NewString(),
		Action:    action,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

// Validate checks the action and its required record ID.
func (m *RecordSyncMessage) Validate() error {
	switch m.Action {
	case ActionUpsert:
		if m.RecordID <= 0 {
			return fmt.Errorf("upsert message %s without record id", m.MessageID)
		}
	case ActionResync:
	default:
		return fmt.Errorf("unknown sync action %q", m.Action)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON decodes and validates a message.
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
