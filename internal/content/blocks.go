package content

import (
	"encoding/json"
	"strings"
)

type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockQuote     BlockKind = "quote"
	BlockListItem  BlockKind = "list_item"
	BlockImage     BlockKind = "image"
	BlockCode      BlockKind = "code"
)

// Span is a run of text with decorator marks. Href is set for link
// annotations.
type Span struct {
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
	Href  string   `json:"href,omitempty"`
}

// Block is one structured body element. Level is the heading level for
// headings and the nesting depth for list items.
type Block struct {
	Key       string    `json:"key,omitempty"`
	Kind      BlockKind `json:"kind"`
	Level     int       `json:"level,omitempty"`
	ListStyle string    `json:"listStyle,omitempty"`
	Spans     []Span    `json:"spans,omitempty"`
	Image     *Image    `json:"image,omitempty"`
	Code      string    `json:"code,omitempty"`
	Language  string    `json:"language,omitempty"`
	Filename  string    `json:"filename,omitempty"`
}

// PlainText concatenates span text.
func (b Block) PlainText() string {
	var sb strings.Builder
	for _, span := range b.Spans {
		sb.WriteString(span.Text)
	}
	return sb.String()
}

type rawSpan struct {
	Type  string   `json:"_type"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

type rawMarkDef struct {
	Key  string `json:"_key"`
	Type string `json:"_type"`
	Href string `json:"href"`
}

type rawBlock struct {
	Key      string       `json:"_key"`
	Type     string       `json:"_type"`
	Style    string       `json:"style"`
	ListItem string       `json:"listItem"`
	Level    int          `json:"level"`
	Children []rawSpan    `json:"children"`
	MarkDefs []rawMarkDef `json:"markDefs"`
	Code     string       `json:"code"`
	Language string       `json:"language"`
	Filename string       `json:"filename"`
	rawImage
}

var headingLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

func (b ImageURLBuilder) projectBlocks(raw json.RawMessage) ([]Block, bool) {
	if isNull(raw) {
		return nil, true
	}
	var items []rawBlock
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	blocks := make([]Block, 0, len(items))
	for _, item := range items {
		switch item.Type {
		case "block":
			blocks = append(blocks, projectTextBlock(item))
		case "image":
			if img := b.image(item.rawImage, BodyRenditions); img != nil {
				blocks = append(blocks, Block{Key: item.Key, Kind: BlockImage, Image: img})
			}
		case "code":
			blocks = append(blocks, Block{
				Key:      item.Key,
				Kind:     BlockCode,
				Code:     item.Code,
				Language: item.Language,
				Filename: item.Filename,
			})
		}
	}
	return blocks, true
}

func projectTextBlock(item rawBlock) Block {
	block := Block{Key: item.Key, Kind: BlockParagraph}
	switch {
	case item.ListItem != "":
		block.Kind = BlockListItem
		block.ListStyle = item.ListItem
		block.Level = item.Level
		if block.Level <= 0 {
			block.Level = 1
		}
	case item.Style == "blockquote":
		block.Kind = BlockQuote
	default:
		if level, ok := headingLevels[item.Style]; ok {
			block.Kind = BlockHeading
			block.Level = level
		}
	}

	links := make(map[string]string, len(item.MarkDefs))
	for _, def := range item.MarkDefs {
		if def.Type == "link" {
			links[def.Key] = def.Href
		}
	}
	for _, child := range item.Children {
		if child.Type != "" && child.Type != "span" {
			continue
		}
		span := Span{Text: child.Text}
		for _, mark := range child.Marks {
			if href, ok := links[mark]; ok {
				span.Href = href
				continue
			}
			span.Marks = append(span.Marks, mark)
		}
		block.Spans = append(block.Spans, span)
	}
	return block
}

// BlocksText flattens a block array to paragraphs of plain text.
func BlocksText(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if text := strings.TrimSpace(block.PlainText()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
