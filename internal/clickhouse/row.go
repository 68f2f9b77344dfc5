package clickhouse

import (
	"time"

	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// Row is the card_events shape of one event
type Row struct {
	EventID    string
	EventType  string
	UserID     string
	CardCode   string
	Experience int32
	Rank       string
	Level      int32
	TS         time.Time
}

// rowFromEvent flattens an event payload. Payload numbers may be ints when
// published in-process or float64 after a JSON round trip through NATS.
func rowFromEvent(e pubsub.Event) Row {
	ts := time.UnixMilli(e.TS)
	if e.TS == 0 {
		ts = time.Now()
	}
	return Row{
		EventID:    e.ID,
		EventType:  e.Type,
		UserID:     stringField(e.Payload, "userId"),
		CardCode:   stringField(e.Payload, "cardCode"),
		Experience: intField(e.Payload, "experience"),
		Rank:       stringField(e.Payload, "rank"),
		Level:      intField(e.Payload, "level"),
		TS:         ts,
	}
}

func stringField(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

func intField(payload map[string]interface{}, key string) int32 {
	switch v := payload[key].(type) {
	case int:
		return int32(v)
	case int32:
		return v
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	default:
		return 0
	}
}
