package markup

import (
	"context"
	"encoding/json"
)

// AMPText wraps a stored markup fragment. The source is what gets
// persisted; expansion happens on every render.
type AMPText struct {
	source string
}

func NewAMPText(source string) AMPText {
	return AMPText{source: source}
}

func (t AMPText) Source() string {
	return t.source
}

func (t AMPText) IsEmpty() bool {
	return t.source == ""
}

func (t AMPText) Expand(ctx context.Context, expander EntityExpander) string {
	return expander.Expand(ctx, t.source)
}

func (t AMPText) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.source)
}

func (t *AMPText) UnmarshalJSON(data []byte) error {
	var source *string
	if err := json.Unmarshal(data, &source); err != nil {
		return err
	}
	if source == nil {
		t.source = ""
		return nil
	}
	t.source = *source
	return nil
}
