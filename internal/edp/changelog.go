package edp

import "time"

// LogEntry is one field change recorded against an EDP.
type LogEntry struct {
	EntityID string    `json:"entity_id"`
	Field    string    `json:"field"`
	OldValue string    `json:"old_value"`
	NewValue string    `json:"new_value"`
	Actor    string    `json:"actor"`
	At       time.Time `json:"at"`
}

// IsStatusChange reports whether the entry touches the status column.
func (e LogEntry) IsStatusChange() bool {
	return FoldKey(e.Field) == colStatus || FoldKey(e.Field) == "status"
}

var logColumns = map[string][]string{
	"edp":   {"edp_id", "id_edp", "n_edp", "entity_id"},
	"field": {"campo", "field"},
	"old":   {"valor_anterior", "old_value"},
	"new":   {"valor_nuevo", "new_value"},
	"actor": {"usuario", "actor", "user"},
	"at":    {"fecha", "timestamp", "at", "fecha_cambio"},
}

// NormalizeLog converts change-log rows. Entries with an unparseable timestamp are kept with a zero At.
func (n *Normalizer) NormalizeLog(rows []map[string]any) ([]LogEntry, []FieldError) {
	out := make([]LogEntry, 0, len(rows))
	var issues []FieldError
	for i, row := range rows {
		f := foldRow(row)
		text := func(key string) string {
			v, _, _ := f.lookup(logColumns[key])
			return parseText(v)
		}
		entry := LogEntry{
			EntityID: text("edp"),
			Field:    text("field"),
			OldValue: text("old"),
			NewValue: text("new"),
			Actor:    text("actor"),
		}
		v, _, _ := f.lookup(logColumns["at"])
		at, err := parseTimestamp(v)
		if err != nil {
			issues = append(issues, FieldError{Row: i, Field: "fecha", Value: v, Err: err})
		}
		entry.At = at
		out = append(out, entry)
	}
	return out, issues
}
