package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Type is the routing class of a message.
type Type string

const (
	TypeDM    Type = "dm"
	TypeGroup Type = "group"
)

// Event kinds that mark a direct/private message on the transport.
const (
	KindEncryptedDM = 4
	KindGiftWrap    = 1059
)

// TimestampLayout is the ISO-8601 form emitted for message timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Message is the unit delivered to hooks. Field order is the canonical JSON order.
type Message struct {
	Type      Type   `json:"type"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
	Priority  bool   `json:"priority"`
	Read      bool   `json:"read"`
}

// JSON returns the canonical payload written to hook stdin. Bodies are not
// HTML-escaped.
func (m Message) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Raw is a message as the retrieval source returns it. Both the decoded
// relay-event shape (kind/pubkey/content/created_at) and the pre-normalized
// shape (type/from/body/timestamp) are accepted.
type Raw struct {
	Kind      int             `json:"kind,omitempty"`
	Type      string          `json:"type,omitempty"`
	From      string          `json:"from,omitempty"`
	Pubkey    string          `json:"pubkey,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	CreatedAt int64           `json:"created_at,omitempty"`
	GroupID   string          `json:"group_id,omitempty"`
}
