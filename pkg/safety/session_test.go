package safety

import (
	"encoding/json"
	"testing"
)

func TestSession_UnmarshalSkipsNonText(t *testing.T) {
	raw := `{
		"session_id": "s-1",
		"insights": ["stillness", 42, null, {"k": "v"}, ["nested"]],
		"responses": [true, "breathe"]
	}`

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(s.Insights) != 5 {
		t.Fatalf("expected 5 insights, got %d", len(s.Insights))
	}
	if !s.Insights[0].Valid || s.Insights[0].Text != "stillness" {
		t.Errorf("expected first insight to be text, got %+v", s.Insights[0])
	}
	for i := 1; i < 5; i++ {
		if s.Insights[i].Valid {
			t.Errorf("expected insight %d to be non-text", i)
		}
	}
	if s.Responses[0].Valid || !s.Responses[1].Valid {
		t.Errorf("unexpected responses: %+v", s.Responses)
	}
}

func TestItem_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Item{TextItem("a"), {}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `["a",null]` {
		t.Errorf("unexpected encoding: %s", data)
	}
}
