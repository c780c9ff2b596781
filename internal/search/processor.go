package search

import (
	"slices"
	"strings"

	"github.com/hyperjump/docstore/internal/config"
	"github.com/hyperjump/docstore/internal/models"
)

// contentTypeField is the reserved filter field holding a document's content type.
const contentTypeField = "content_type"

// ScorableContentTypes are the content types BM25 retrieval considers.
var ScorableContentTypes = []string{string(models.ContentTypeText), string(models.ContentTypeTable)}

// ProcessQuery validates q and applies the retrieval defaults from cfg.
func ProcessQuery(q *models.RetrievalQuery, cfg *config.RetrievalConfig) error {
	if cfg == nil {
		return q.Validate(0, 0)
	}
	if q.ScaleScore == nil {
		scale := cfg.ScaleScoreOrDefault()
		q.ScaleScore = &scale
	}
	return q.Validate(cfg.DefaultTopK, cfg.MaxTopK)
}

// Normalize lowercases a query the same way corpus text is lowercased.
func Normalize(query string) string {
	return strings.ToLower(query)
}

// EffectiveFilters intersects filters with the scorable content types. It
// fails with ErrUnsupportedContentType when filters pin content_type at the
// top level to values that are all outside text and table.
func EffectiveFilters(filters map[string]any) (map[string]any, error) {
	restriction := map[string]any{contentTypeField: slices.Clone(ScorableContentTypes)}
	if len(filters) == 0 {
		return restriction, nil
	}
	if raw, ok := filters[contentTypeField]; ok {
		if named := requestedContentTypes(raw); len(named) > 0 && !slices.ContainsFunc(named, isScorable) {
			return nil, models.ErrUnsupportedContentType
		}
	}
	return map[string]any{
		"$and": []any{filters, restriction},
	}, nil
}

// requestedContentTypes lists the values a content_type condition admits
// positively: a scalar, a list, or an $eq/$in comparison. Other shapes
// return nil and are left to the filter evaluator.
func requestedContentTypes(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		if len(v) != 1 {
			return nil
		}
		if eq, ok := v["$eq"]; ok {
			return requestedContentTypes(eq)
		}
		if in, ok := v["$in"]; ok {
			return requestedContentTypes(in)
		}
	}
	return nil
}

func isScorable(contentType string) bool {
	return models.ContentType(contentType).Scorable()
}
