package message_test

import (
	"encoding/json"
	"testing"

	"sphered/internal/message"
)

func rawFromJSON(t *testing.T, data string) message.Raw {
	t.Helper()
	var raw message.Raw
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	return raw
}

func TestClassifyType(t *testing.T) {
	classifier := message.NewClassifier("")
	cases := []struct {
		name string
		raw  string
		want message.Type
	}{
		{"kind4", `{"kind": 4, "pubkey": "a", "content": "x"}`, message.TypeDM},
		{"giftwrap", `{"kind": 1059, "pubkey": "a", "content": "x"}`, message.TypeDM},
		{"explicit dm", `{"type": "dm", "from": "a", "body": "x"}`, message.TypeDM},
		{"group kind", `{"kind": 9, "pubkey": "a", "content": "x"}`, message.TypeGroup},
		{"explicit group", `{"type": "group", "from": "a", "body": "x"}`, message.TypeGroup},
		{"unknown", `{"from": "a", "body": "x"}`, message.TypeGroup},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := classifier.Classify(rawFromJSON(t, tc.raw))
			if !ok {
				t.Fatal("expected message to classify")
			}
			if msg.Type != tc.want {
				t.Fatalf("unexpected type: got %q want %q", msg.Type, tc.want)
			}
		})
	}
}

func TestClassifyPriorityIsExactOwnerMatch(t *testing.T) {
	classifier := message.NewClassifier("npub1Owner")
	cases := []struct {
		from string
		want bool
	}{
		{"npub1Owner", true},
		{"npub1owner", false},
		{"npub1Owner ", false},
		{"someone", false},
	}
	for _, tc := range cases {
		msg, ok := classifier.Classify(message.Raw{From: tc.from, Body: json.RawMessage(`"hi"`)})
		if !ok {
			t.Fatalf("expected %q to classify", tc.from)
		}
		if msg.Priority != tc.want {
			t.Fatalf("priority for %q: got %v want %v", tc.from, msg.Priority, tc.want)
		}
		if msg.Read {
			t.Fatalf("read must always be false")
		}
	}

	noOwner := message.NewClassifier("")
	if msg, _ := noOwner.Classify(message.Raw{From: "x", Body: json.RawMessage(`"hi"`)}); msg.Priority {
		t.Fatal("empty owner must never match")
	}
}

func TestClassifyFieldFallbacks(t *testing.T) {
	classifier := message.NewClassifier("")
	msg, ok := classifier.Classify(rawFromJSON(t, `{"kind": 4, "pubkey": "pk", "sender": "s", "content": "hello", "created_at": 1700000000}`))
	if !ok {
		t.Fatal("expected message to classify")
	}
	if msg.From != "pk" {
		t.Fatalf("expected pubkey sender, got %q", msg.From)
	}
	if msg.Body != "hello" {
		t.Fatalf("expected content body, got %q", msg.Body)
	}
	if msg.Timestamp != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("unexpected timestamp: %q", msg.Timestamp)
	}

	msg, ok = classifier.Classify(rawFromJSON(t, `{"sender": "s", "body": "b", "timestamp": "2024-01-01T00:00:00.000Z"}`))
	if !ok || msg.From != "s" || msg.Timestamp != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("unexpected fallback result: %+v ok=%v", msg, ok)
	}
}

func TestClassifyDropsUnextractable(t *testing.T) {
	classifier := message.NewClassifier("")
	for _, raw := range []string{
		`{"kind": 4, "content": "no sender"}`,
		`{"kind": 4, "pubkey": "a"}`,
		`{"kind": 4, "pubkey": "a", "content": null}`,
		`{"kind": 4, "pubkey": "a", "content": {"ciphertext": "..."}}`,
		`{"kind": 4, "pubkey": "a", "content": [1, 2]}`,
	} {
		if _, ok := classifier.Classify(rawFromJSON(t, raw)); ok {
			t.Fatalf("expected %s to be dropped", raw)
		}
	}

	if msg, ok := classifier.Classify(rawFromJSON(t, `{"from": "a", "body": ""}`)); !ok || msg.Body != "" {
		t.Fatalf("empty string body is still extractable, got %+v ok=%v", msg, ok)
	}
}

func TestMessageJSONIsCanonical(t *testing.T) {
	msg := message.Message{
		Type:      message.TypeDM,
		From:      "abc",
		Body:      "hi",
		Timestamp: "2024-05-01T10:00:00.000Z",
		Priority:  true,
	}
	data, err := msg.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	want := `{"type":"dm","from":"abc","body":"hi","timestamp":"2024-05-01T10:00:00.000Z","priority":true,"read":false}`
	if string(data) != want {
		t.Fatalf("unexpected payload\n got: %s\nwant: %s", data, want)
	}
}

func TestMessageJSONKeepsMarkup(t *testing.T) {
	msg := message.Message{Type: message.TypeGroup, From: "a", Body: "<b>&</b>"}
	data, err := msg.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	want := `{"type":"group","from":"a","body":"<b>&</b>","timestamp":"","priority":false,"read":false}`
	if string(data) != want {
		t.Fatalf("unexpected payload\n got: %s\nwant: %s", data, want)
	}
}
