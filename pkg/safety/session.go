package safety

import (
	"bytes"
	"encoding/json"
)

// Item is one entry of a session's insight or response list. Only string
// values carry text; any other JSON value decodes to an item that is never
// matched.
type Item struct {
	Text  string
	Valid bool
}

// TextItem returns a matchable item.
func TextItem(s string) Item {
	return Item{Text: s, Valid: true}
}

// TextItems converts strings to matchable items.
func TextItems(values ...string) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = TextItem(v)
	}
	return items
}

// UnmarshalJSON accepts any JSON value.
func (it *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*it = TextItem(s)
		return nil
	}
	*it = Item{}
	return nil
}

// MarshalJSON encodes text items as strings and others as null.
func (it Item) MarshalJSON() ([]byte, error) {
	if !it.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(it.Text)
}

// Session is a completed contemplative session submitted for review.
type Session struct {
	ID        string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Insights  []Item `json:"insights"`
	Responses []Item `json:"responses"`
}

// Verdict is the outcome of an evaluation.
type Verdict struct {
	Level        Level        `json:"level"`
	Intervention Intervention `json:"intervention"`

	// EventID is the recorded event, empty when the verdict was SAFE.
	EventID string `json:"event_id,omitempty"`
}

// SafeVerdict is the verdict for input that matched nothing.
var SafeVerdict = Verdict{Level: LevelSafe, Intervention: InterventionNone}
