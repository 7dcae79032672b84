package docs

import (
	"context"
	"strings"
)

// Adapter is the boundary to the external document backend. The sync core
// only needs three capabilities: read the current structured content, clear a
// range, and insert text. The backend offers no transaction spanning them.
type Adapter interface {
	Get(ctx context.Context, docID string) (*Document, error)
	DeleteRange(ctx context.Context, docID string, startIndex, endIndex int64) error
	InsertText(ctx context.Context, docID string, index int64, text string) error
}

// Document mirrors the backend's structured representation. Body content
// elements carry end offsets; offset 1 is the first writable position.
type Document struct {
	DocumentID string `json:"documentId"`
	Body       Body   `json:"body"`
}

type Body struct {
	Content []StructuralElement `json:"content"`
}

type StructuralElement struct {
	StartIndex int64      `json:"startIndex,omitempty"`
	EndIndex   int64      `json:"endIndex,omitempty"`
	Paragraph  *Paragraph `json:"paragraph,omitempty"`
}

type Paragraph struct {
	Elements []ParagraphElement `json:"elements,omitempty"`
}

type ParagraphElement struct {
	StartIndex int64    `json:"startIndex,omitempty"`
	EndIndex   int64    `json:"endIndex,omitempty"`
	TextRun    *TextRun `json:"textRun,omitempty"`
}

type TextRun struct {
	Content string `json:"content,omitempty"`
}

// EndIndex returns the end offset of the last body element, or 1 for an
// empty document.
func (d *Document) EndIndex() int64 {
	if d == nil || len(d.Body.Content) == 0 {
		return 1
	}
	last := d.Body.Content[len(d.Body.Content)-1]
	if last.EndIndex <= 0 {
		return 1
	}
	return last.EndIndex
}

// PlainText flattens the document's paragraph text runs into a single
// string. The backend terminates every paragraph with a newline; the final
// one is trimmed so a round trip through InsertText does not accumulate
// trailing newlines.
func (d *Document) PlainText() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, el := range d.Body.Content {
		if el.Paragraph == nil {
			continue
		}
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				b.WriteString(pe.TextRun.Content)
			}
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
