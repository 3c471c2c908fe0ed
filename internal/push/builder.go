package push

import (
	"fmt"
	"strconv"
	"strings"
)

// Builder maps an event plus a recipient into an FCM message payload.
// Title and body fall back to the configured defaults when the event leaves
// them empty.
type Builder struct {
	defaultTitle string
	defaultBody  string
}

// NewBuilder creates a message builder with the given fallback strings.
func NewBuilder(defaultTitle, defaultBody string) *Builder {
	return &Builder{
		defaultTitle: defaultTitle,
		defaultBody:  defaultBody,
	}
}

// Build produces the message for one recipient. It never fails: malformed
// event fields degrade to empty strings.
func (b *Builder) Build(event Event, recipient Recipient) Message {
	title := event.Title
	if title == "" {
		title = b.defaultTitle
	}
	body := event.Body
	if body == "" {
		body = b.defaultBody
	}

	data := map[string]string{
		"type":            "daily_challenge",
		"notification_id": event.ID,
		"created_at":      event.CreatedAt,
	}
	for k, v := range event.Data {
		data[k] = stringify(v)
	}

	return Message{
		Token: recipient.Token,
		Title: title,
		Body:  body,
		Data:  data,
	}
}

// stringify converts a decoded JSON value into the string form required by
// the FCM data channel. Arrays are joined with commas; nested values fall
// back to fmt formatting.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing ".0" to match the wire format of the data channel.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, stringify(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", t)
	}
}
