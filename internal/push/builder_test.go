package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Defaults(t *testing.T) {
	b := NewBuilder("Nuova sfida completata", "Un utente ha completato una sfida giornaliera")
	recipient := Recipient{ID: "u1", Token: "tok-1"}

	msg := b.Build(Event{ID: "n1"}, recipient)

	assert.Equal(t, "Nuova sfida completata", msg.Title)
	assert.Equal(t, "Un utente ha completato una sfida giornaliera", msg.Body)
	assert.Equal(t, "tok-1", msg.Token)

	msg = b.Build(Event{ID: "n1", Title: "Custom", Body: "Body"}, recipient)
	assert.Equal(t, "Custom", msg.Title)
	assert.Equal(t, "Body", msg.Body)
}

func TestBuilder_StandardDataKeys(t *testing.T) {
	b := NewBuilder("t", "b")
	event := Event{
		ID:        "n1",
		CreatedAt: "2026-08-30T10:00:00Z",
		Data: map[string]any{
			"challenge_id": "c1",
			"league_id":    "l1",
		},
	}

	msg := b.Build(event, Recipient{ID: "u1", Token: "tok"})

	assert.Equal(t, "daily_challenge", msg.Data["type"])
	assert.Equal(t, "n1", msg.Data["notification_id"])
	assert.Equal(t, "2026-08-30T10:00:00Z", msg.Data["created_at"])
	assert.Equal(t, "c1", msg.Data["challenge_id"])
	assert.Equal(t, "l1", msg.Data["league_id"])
}

// The FCM data channel only carries strings: every value type must come out
// stringified, never as its native JSON type.
func TestBuilder_StringifiesAllValueTypes(t *testing.T) {
	b := NewBuilder("t", "b")
	event := Event{
		ID: "n1",
		Data: map[string]any{
			"points":    float64(30),
			"ratio":     2.5,
			"completed": true,
			"tags":      []any{"a", "b", float64(3)},
			"ids":       []string{"x", "y"},
			"missing":   nil,
		},
	}

	msg := b.Build(event, Recipient{ID: "u1", Token: "tok"})

	assert.Equal(t, "30", msg.Data["points"])
	assert.Equal(t, "2.5", msg.Data["ratio"])
	assert.Equal(t, "true", msg.Data["completed"])
	assert.Equal(t, "a,b,3", msg.Data["tags"])
	assert.Equal(t, "x,y", msg.Data["ids"])
	assert.Equal(t, "", msg.Data["missing"])
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "s", "s"},
		{"bool false", false, "false"},
		{"integral float", float64(100), "100"},
		{"fractional float", 0.5, "0.5"},
		{"int", 7, "7"},
		{"int64", int64(-3), "-3"},
		{"empty array", []any{}, ""},
		{"nested array", []any{true, float64(1)}, "true,1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stringify(tt.in))
		})
	}
}
