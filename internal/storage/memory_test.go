package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hyperjump/docstore/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func text(id, content string, md map[string]any) *models.Document {
	m, err := models.MetadataOf(md)
	if err != nil {
		panic(err)
	}
	return models.NewTextDocument(id, content, m)
}

func ids(docs []*models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestMemoryStorage_WriteCountGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	if got := store.CountDocuments(ctx); got != 0 {
		t.Fatalf("empty store count = %d", got)
	}
	n, err := store.WriteDocuments(ctx, []*models.Document{
		text("a", "first", map[string]any{"k": "v"}),
		text("b", "second", nil),
	}, PolicyFail)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}
	if got := store.CountDocuments(ctx); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}

	got, err := store.GetDocument(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "first" || got.Metadata["k"].String() != "v" {
		t.Errorf("got %+v", got)
	}

	if _, err := store.GetDocument(ctx, "zzz"); !errors.Is(err, models.ErrMissingDocument) {
		t.Errorf("GetDocument missing: err = %v", err)
	}
}

func TestMemoryStorage_StoresCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	doc := text("a", "original", map[string]any{"tag": "x"})
	if _, err := store.WriteDocuments(ctx, []*models.Document{doc}, PolicyFail); err != nil {
		t.Fatal(err)
	}
	doc.Content = "mutated"
	doc.Metadata["tag"] = models.String("y")

	got, _ := store.GetDocument(ctx, "a")
	if got.Content != "original" || got.Metadata["tag"].String() != "x" {
		t.Errorf("caller mutation leaked into store: %+v", got)
	}
	got.Content = "also mutated"
	again, _ := store.GetDocument(ctx, "a")
	if again.Content != "original" {
		t.Errorf("GetDocument returned a live reference")
	}
}

func TestMemoryStorage_Policies(t *testing.T) {
	ctx := context.Background()

	t.Run("fail", func(t *testing.T) {
		store := NewMemoryStorage()
		_, _ = store.WriteDocuments(ctx, []*models.Document{text("a", "one", nil)}, PolicyFail)
		n, err := store.WriteDocuments(ctx, []*models.Document{
			text("b", "two", nil),
			text("a", "replacement", nil),
			text("c", "three", nil),
		}, PolicyFail)
		if !errors.Is(err, models.ErrDuplicateDocument) {
			t.Fatalf("err = %v, want ErrDuplicateDocument", err)
		}
		var de *models.DocumentError
		if !errors.As(err, &de) || de.ID != "a" {
			t.Errorf("err = %v, want DocumentError for a", err)
		}
		if n != 1 {
			t.Errorf("written = %d, want 1 (partial batch)", n)
		}
		if got := store.CountDocuments(ctx); got != 2 {
			t.Errorf("count = %d, want 2", got)
		}
		got, _ := store.GetDocument(ctx, "a")
		if got.Content != "one" {
			t.Errorf("fail policy replaced the stored document")
		}
	})

	t.Run("skip", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		store := NewMemoryStorage(WithLogger(zap.New(core)))
		_, _ = store.WriteDocuments(ctx, []*models.Document{text("a", "one", nil)}, PolicyFail)
		n, err := store.WriteDocuments(ctx, []*models.Document{
			text("a", "replacement", nil),
			text("b", "two", nil),
		}, PolicySkip)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("written = %d, want 1", n)
		}
		got, _ := store.GetDocument(ctx, "a")
		if got.Content != "one" {
			t.Errorf("skip policy replaced the stored document: %q", got.Content)
		}
		if logs.FilterMessage("duplicate document skipped").Len() != 1 {
			t.Errorf("expected one skip warning, got %v", logs.All())
		}
	})

	t.Run("overwrite keeps position", func(t *testing.T) {
		store := NewMemoryStorage()
		_, _ = store.WriteDocuments(ctx, []*models.Document{
			text("a", "one", nil), text("b", "two", nil),
		}, PolicyFail)
		n, err := store.WriteDocuments(ctx, []*models.Document{text("a", "uno", nil)}, PolicyOverwrite)
		if err != nil || n != 1 {
			t.Fatalf("n=%d err=%v", n, err)
		}
		all, _ := store.FilterDocuments(ctx, nil)
		if got := ids(all); len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("order = %v, want [a b]", got)
		}
		if all[0].Content != "uno" {
			t.Errorf("content = %q, want uno", all[0].Content)
		}
	})
}

func TestMemoryStorage_WriteValidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	tests := []struct {
		name   string
		docs   []*models.Document
		policy DuplicatePolicy
	}{
		{"nil batch", nil, PolicyFail},
		{"nil element", []*models.Document{text("a", "x", nil), nil}, PolicyFail},
		{"empty id", []*models.Document{text("", "x", nil)}, PolicyFail},
		{"unknown policy", []*models.Document{text("a", "x", nil)}, "merge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.WriteDocuments(ctx, tt.docs, tt.policy)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if got := store.CountDocuments(ctx); got != 0 {
		t.Errorf("invalid batches wrote %d documents", got)
	}

	n, err := store.WriteDocuments(ctx, []*models.Document{}, PolicyFail)
	if err != nil || n != 0 {
		t.Errorf("empty batch: n=%d err=%v", n, err)
	}
}

func TestMemoryStorage_EmptyPolicyMeansFail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	n, err := store.WriteDocuments(ctx, []*models.Document{text("a", "x", nil)}, "")
	if err != nil || n != 1 {
		t.Fatalf("first write: n=%d err=%v", n, err)
	}
	n, err = store.WriteDocuments(ctx, []*models.Document{text("a", "y", nil)}, "")
	if !errors.Is(err, models.ErrDuplicateDocument) {
		t.Errorf("err = %v, want ErrDuplicateDocument", err)
	}
	if n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
	doc, err := store.GetDocument(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "x" {
		t.Errorf("content = %q, want x", doc.Content)
	}
}

func TestMemoryStorage_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	_, _ = store.WriteDocuments(ctx, []*models.Document{
		text("a", "1", nil), text("b", "2", nil), text("c", "3", nil),
	}, PolicyFail)

	if err := store.DeleteDocuments(ctx, []string{"b"}); err != nil {
		t.Fatal(err)
	}
	all, _ := store.FilterDocuments(ctx, nil)
	if got := ids(all); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("after delete = %v", got)
	}

	err := store.DeleteDocuments(ctx, []string{"a", "missing", "c"})
	if !errors.Is(err, models.ErrMissingDocument) {
		t.Fatalf("err = %v, want ErrMissingDocument", err)
	}
	all, _ = store.FilterDocuments(ctx, nil)
	if got := ids(all); len(got) != 1 || got[0] != "c" {
		t.Errorf("partial delete left %v, want [c]", got)
	}

	if err := store.DeleteDocuments(ctx, nil); err != nil {
		t.Errorf("empty delete: %v", err)
	}

	// A deleted id can be written again and lands at the end.
	_, _ = store.WriteDocuments(ctx, []*models.Document{text("a", "again", nil)}, PolicyFail)
	all, _ = store.FilterDocuments(ctx, nil)
	if got := ids(all); len(got) != 2 || got[1] != "a" {
		t.Errorf("rewrite order = %v, want [c a]", got)
	}
}

func TestMemoryStorage_Filter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	_, _ = store.WriteDocuments(ctx, []*models.Document{
		text("a", "1", map[string]any{"lang": "en", "year": 2020}),
		text("b", "2", map[string]any{"lang": "de", "year": 2022}),
		text("c", "3", map[string]any{"lang": "en", "year": 2024}),
	}, PolicyFail)

	got, err := store.FilterDocuments(ctx, map[string]any{"lang": "en", "year": map[string]any{"$gt": 2021}})
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); len(g) != 1 || g[0] != "c" {
		t.Errorf("filter = %v, want [c]", g)
	}

	got, _ = store.FilterDocuments(ctx, map[string]any{})
	if len(got) != 3 {
		t.Errorf("empty filter returned %d docs", len(got))
	}

	_, err = store.FilterDocuments(ctx, map[string]any{"$xor": []any{}})
	if !errors.Is(err, models.ErrUnknownFilterOperator) {
		t.Errorf("err = %v, want ErrUnknownFilterOperator", err)
	}
}

func TestMemoryStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := string(rune('a'+w)) + "-" + string(rune('0'+i%10))
				_, _ = store.WriteDocuments(ctx, []*models.Document{text(id, "x", nil)}, PolicyOverwrite)
				_, _ = store.FilterDocuments(ctx, map[string]any{"id": id})
				_ = store.CountDocuments(ctx)
			}
		}(w)
	}
	wg.Wait()
	if got := store.CountDocuments(ctx); got != 40 {
		t.Errorf("count = %d, want 40", got)
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	for in, want := range map[string]DuplicatePolicy{
		"":          PolicyFail,
		"skip":      PolicySkip,
		"Overwrite": PolicyOverwrite,
		" fail ":    PolicyFail,
	} {
		got, err := ParseDuplicatePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseDuplicatePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDuplicatePolicy("merge"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
