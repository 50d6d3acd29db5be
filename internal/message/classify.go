package message

import (
	"encoding/json"
	"strings"
	"time"
)

// Classifier turns raw source messages into Messages, tagging priority for
// the configured owner.
type Classifier struct {
	owner string
}

// NewClassifier returns a classifier for owner. An empty owner never matches.
func NewClassifier(owner string) Classifier {
	return Classifier{owner: owner}
}

// Classify normalizes raw. ok is false when the sender or body cannot be
// extracted; such messages must not be dispatched.
func (c Classifier) Classify(raw Raw) (Message, bool) {
	from := firstNonEmpty(raw.From, raw.Pubkey, raw.Sender)
	if from == "" {
		return Message{}, false
	}
	body, ok := extractText(raw.Body)
	if !ok {
		body, ok = extractText(raw.Content)
	}
	if !ok {
		return Message{}, false
	}
	return Message{
		Type:      classifyType(raw),
		From:      from,
		Body:      body,
		Timestamp: timestamp(raw),
		Priority:  c.owner != "" && from == c.owner,
		Read:      false,
	}, true
}

func classifyType(raw Raw) Type {
	if raw.Kind == KindEncryptedDM || raw.Kind == KindGiftWrap {
		return TypeDM
	}
	if Type(strings.ToLower(strings.TrimSpace(raw.Type))) == TypeDM {
		return TypeDM
	}
	return TypeGroup
}

func extractText(value json.RawMessage) (string, bool) {
	if len(value) == 0 || string(value) == "null" {
		return "", false
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return "", false
	}
	return text, true
}

func timestamp(raw Raw) string {
	if ts := strings.TrimSpace(raw.Timestamp); ts != "" {
		return ts
	}
	if raw.CreatedAt > 0 {
		return time.Unix(raw.CreatedAt, 0).UTC().Format(TimestampLayout)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
