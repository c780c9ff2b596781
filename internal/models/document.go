// Package models defines core data structures for documents, queries, and retrieval results.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ContentType tags the shape of a document's content.
type ContentType string

const (
	// ContentTypeText is free text held in Content.
	ContentTypeText ContentType = "text"
	// ContentTypeTable is tabular content held in Table.
	ContentTypeTable ContentType = "table"
	// ContentTypeImage, ContentTypeAudio and other caller-defined types keep an opaque
	// reference in Content and are never scored lexically.
	ContentTypeImage ContentType = "image"
	ContentTypeAudio ContentType = "audio"
)

// Scorable reports whether documents of this type take part in BM25 retrieval.
func (c ContentType) Scorable() bool {
	return c == ContentTypeText || c == ContentTypeTable
}

// Document is a stored record. Documents are immutable by convention once
// written; the store hands out copies whenever it attaches a score.
type Document struct {
	ID          string      `json:"id"`
	Content     string      `json:"content,omitempty"`
	Table       *Table      `json:"table,omitempty"`
	ContentType ContentType `json:"content_type"`
	Metadata    Metadata    `json:"metadata,omitempty"`
	// Score is set only on retrieval results.
	Score *float64 `json:"score,omitempty"`
}

// NewTextDocument returns a text document with the given metadata.
func NewTextDocument(id, content string, metadata Metadata) *Document {
	return &Document{ID: id, Content: content, ContentType: ContentTypeText, Metadata: metadata}
}

// NewTableDocument returns a table document with the given metadata.
func NewTableDocument(id string, table *Table, metadata Metadata) *Document {
	return &Document{ID: id, Table: table, ContentType: ContentTypeTable, Metadata: metadata}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Table = d.Table.Clone()
	out.Metadata = d.Metadata.Clone()
	if d.Score != nil {
		s := *d.Score
		out.Score = &s
	}
	return &out
}

// WithScore returns a copy of d carrying score. d is not modified.
func (d *Document) WithScore(score float64) *Document {
	out := d.Clone()
	out.Score = &score
	return out
}

// Field resolves a filterable field. The reserved names "id" and
// "content_type" address the document itself; any other name is looked up
// in Metadata.
func (d *Document) Field(name string) (Value, bool) {
	switch name {
	case "id":
		return String(d.ID), true
	case "content_type":
		return String(string(d.ContentType)), true
	}
	v, ok := d.Metadata[name]
	return v, ok
}

// DocumentFromMap builds a Document from a flat field mapping such as a
// decoded JSON object. Recognized keys are id, content, table, content_type,
// metadata and score; content_type defaults to text, or to table when only
// a table is given.
func DocumentFromMap(m map[string]any) (*Document, error) {
	if m == nil {
		return nil, InvalidInputf("document must be an object")
	}
	doc := &Document{}
	for key, raw := range m {
		switch key {
		case "id":
			s, ok := raw.(string)
			if !ok {
				return nil, InvalidInputf("document id must be a string, got %T", raw)
			}
			doc.ID = s
		case "content":
			switch c := raw.(type) {
			case nil:
			case string:
				doc.Content = c
			default:
				return nil, InvalidInputf("document content must be a string, got %T", raw)
			}
		case "table":
			if raw == nil {
				continue
			}
			t, err := tableFromAny(raw)
			if err != nil {
				return nil, err
			}
			doc.Table = t
		case "content_type":
			s, ok := raw.(string)
			if !ok {
				return nil, InvalidInputf("content_type must be a string, got %T", raw)
			}
			doc.ContentType = ContentType(s)
		case "metadata":
			if raw == nil {
				continue
			}
			fields, ok := raw.(map[string]any)
			if !ok {
				return nil, InvalidInputf("metadata must be an object, got %T", raw)
			}
			md, err := MetadataOf(fields)
			if err != nil {
				return nil, err
			}
			doc.Metadata = md
		case "score":
			if raw == nil {
				continue
			}
			f, err := toFloat(raw)
			if err != nil {
				return nil, err
			}
			doc.Score = &f
		default:
			return nil, InvalidInputf("unknown document field %q", key)
		}
	}
	if doc.ContentType == "" {
		doc.ContentType = ContentTypeText
		if doc.Table != nil && doc.Content == "" {
			doc.ContentType = ContentTypeTable
		}
	}
	if doc.ContentType == ContentTypeTable && doc.Table == nil {
		return nil, InvalidInputf("document %q has content_type table but no table", doc.ID)
	}
	return doc, nil
}

func toFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, InvalidInputf("score must be a number, got %T", raw)
	}
}

func tableFromAny(raw any) (*Table, error) {
	// Round-trip through JSON so the Table decoder owns cell stringification.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, InvalidInputf("table: %v", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: table: %v", ErrInvalidInput, err)
	}
	return &t, nil
}
