package lumberpg

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/nilpntr/lumber/lumbertype"
)

// EventRow is a persisted log event.
type EventRow struct {
	bun.BaseModel `bun:"table:log_events,alias:le"`

	ID       int64                  `bun:"id,pk,autoincrement"`
	Logger   string                 `bun:"logger,notnull"`
	Level    string                 `bun:"level,notnull"`
	Message  string                 `bun:"message,notnull"`
	Error    string                 `bun:"error,nullzero"`
	Tag      string                 `bun:"tag,nullzero"`
	Fields   map[string]interface{} `bun:"fields,type:jsonb"`
	Context  map[string]string      `bun:"context,type:jsonb"`
	LoggedAt time.Time              `bun:"logged_at,notnull"`
}

// newEventRow converts event into a row. Later fields with the same key
// replace earlier ones.
func newEventRow(event lumbertype.Event) *EventRow {
	row := &EventRow{
		Logger:   event.Logger,
		Level:    event.Level.String(),
		Message:  event.Message,
		Tag:      event.Tag,
		Context:  event.Context,
		LoggedAt: event.Time,
	}
	if row.LoggedAt.IsZero() {
		row.LoggedAt = time.Now()
	}
	if event.Err != nil {
		row.Error = event.Err.Error()
	}
	if len(event.Fields) > 0 {
		row.Fields = make(map[string]interface{}, len(event.Fields))
		for _, f := range event.Fields {
			row.Fields[f.Key] = jsonValue(f.Value)
		}
	}
	return row
}

// jsonValue returns a value that encodes as JSON without error.
func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64, uint, uint32, uint64:
		return val
	case error:
		return val.Error()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
