package page

import (
	"encoding/json"
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/markup"
)

type BlockKind string

const BlockKindPage BlockKind = "page"

// PageValue is one story page: its id and stored markup.
type PageValue struct {
	ID   string         `json:"id"`
	HTML markup.AMPText `json:"html"`
}

// Block is a tagged variant over content block kinds. Page blocks carry a
// PageValue; every other kind carries its JSON value untouched.
type Block struct {
	kind BlockKind
	page PageValue
	raw  json.RawMessage
}

func NewPageBlock(id string, html string) Block {
	return Block{
		kind: BlockKindPage,
		page: PageValue{ID: id, HTML: markup.NewAMPText(html)},
	}
}

func NewRawBlock(kind BlockKind, value json.RawMessage) Block {
	return Block{kind: kind, raw: append(json.RawMessage(nil), value...)}
}

func (b Block) Kind() BlockKind {
	return b.kind
}

func (b Block) Page() (PageValue, bool) {
	if b.kind != BlockKindPage {
		return PageValue{}, false
	}
	return b.page, true
}

func (b Block) Raw() json.RawMessage {
	return b.raw
}

// WithPageHTML returns a copy of a page block with new markup. Other block
// kinds are returned unchanged.
func (b Block) WithPageHTML(html string) Block {
	if b.kind != BlockKindPage {
		return b
	}
	b.page.HTML = markup.NewAMPText(html)
	return b
}

type blockJSON struct {
	Type  BlockKind       `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	value := b.raw
	if b.kind == BlockKindPage {
		encoded, err := json.Marshal(b.page)
		if err != nil {
			return nil, err
		}
		value = encoded
	}
	if value == nil {
		value = json.RawMessage("null")
	}
	return json.Marshal(blockJSON{Type: b.kind, Value: value})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var decoded blockJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded.Type == "" {
		return fmt.Errorf("block without type")
	}
	if decoded.Type == BlockKindPage {
		var value PageValue
		if err := json.Unmarshal(decoded.Value, &value); err != nil {
			return fmt.Errorf("page block: %w", err)
		}
		*b = Block{kind: BlockKindPage, page: value}
		return nil
	}
	*b = NewRawBlock(decoded.Type, decoded.Value)
	return nil
}

// PageBlocks builds page blocks from ordered (id, html) pairs.
func PageBlocks(fragments []PageValue) []Block {
	blocks := make([]Block, 0, len(fragments))
	for _, f := range fragments {
		blocks = append(blocks, Block{kind: BlockKindPage, page: f})
	}
	return blocks
}
