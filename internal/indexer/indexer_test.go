package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docstore/internal/extract"
	"github.com/hyperjump/docstore/internal/models"
	"github.com/hyperjump/docstore/internal/storage"
	"github.com/xuri/excelize/v2"
)

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{"txt", "md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestFileDocID(t *testing.T) {
	a := FileDocID("/docs/a.txt")
	if a != FileDocID("/docs/./a.txt") {
		t.Error("cleaned paths should share an id")
	}
	if a == FileDocID("/docs/b.txt") {
		t.Error("different paths should not share an id")
	}
	if !strings.HasPrefix(a, "file:") {
		t.Errorf("id %q lacks file: prefix", a)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestIndexFile_createAndUpdate(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewMemoryStorage()
	idx := NewIndexer(store, extract.NewExtractor())
	ctx := context.Background()

	fPath := filepath.Join(dir, "doc.txt")
	writeFile(t, fPath, "Hello   world\ncontent.")
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	doc, err := store.GetDocument(ctx, FileDocID(fPath))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "Hello world content." {
		t.Errorf("content = %q", doc.Content)
	}
	if v, _ := doc.Metadata["file_name"].AsString(); v != "doc.txt" {
		t.Errorf("file_name = %v", doc.Metadata["file_name"])
	}
	if v, _ := doc.Metadata["extension"].AsString(); v != ".txt" {
		t.Errorf("extension = %v", doc.Metadata["extension"])
	}
	if v, _ := doc.Metadata["source_size"].AsInt(); v != int64(len("Hello   world\ncontent.")) {
		t.Errorf("source_size = %v", doc.Metadata["source_size"])
	}
	if _, ok := doc.Metadata["source_mtime"].AsTime(); !ok {
		t.Errorf("source_mtime = %v", doc.Metadata["source_mtime"])
	}

	writeFile(t, fPath, "Updated text")
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(fPath, future, future); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	doc, _ = store.GetDocument(ctx, FileDocID(fPath))
	if doc.Content != "Updated text" {
		t.Errorf("after update content = %q", doc.Content)
	}
	if store.CountDocuments(ctx) != 1 {
		t.Errorf("count = %d, want 1", store.CountDocuments(ctx))
	}
}

func TestIndexFile_unchangedIsSkipped(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewMemoryStorage()
	// Fail would reject a second write, so a nil error proves the skip.
	idx := NewIndexer(store, nil, WithPolicy(storage.PolicyFail))
	ctx := context.Background()

	fPath := filepath.Join(dir, "same.md")
	writeFile(t, fPath, "stable")
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatalf("unchanged re-index: %v", err)
	}
}

func TestIndexFile_policyFailOnChangedFile(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewMemoryStorage()
	idx := NewIndexer(store, nil, WithPolicy(storage.PolicyFail))
	ctx := context.Background()

	fPath := filepath.Join(dir, "doc.txt")
	writeFile(t, fPath, "v1")
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fPath, "version two")
	err := idx.IndexFile(ctx, fPath, nil)
	if !errors.Is(err, models.ErrDuplicateDocument) {
		t.Errorf("err = %v, want ErrDuplicateDocument", err)
	}
}

func TestIndexFile_extensionFiltered(t *testing.T) {
	dir := t.TempDir()
	idx := NewIndexer(storage.NewMemoryStorage(), nil)
	fPath := filepath.Join(dir, "main.go")
	writeFile(t, fPath, "package main")
	if err := idx.IndexFile(context.Background(), fPath, []string{".txt"}); err == nil {
		t.Error("expected error for disallowed extension")
	}
}

func TestIndexFile_notRegularFile(t *testing.T) {
	idx := NewIndexer(storage.NewMemoryStorage(), nil)
	if err := idx.IndexFile(context.Background(), t.TempDir(), nil); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIndexFile_nonexistent(t *testing.T) {
	idx := NewIndexer(storage.NewMemoryStorage(), nil)
	if err := idx.IndexFile(context.Background(), "/nonexistent/file.txt", nil); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestIndexFile_excelAsTable(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewMemoryStorage()
	idx := NewIndexer(store, extract.NewExtractor())
	ctx := context.Background()

	xlsxPath := filepath.Join(dir, "report.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Region")
	f.SetCellValue("Sheet1", "A2", "Omnisyan")
	if err := f.SaveAs(xlsxPath); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := idx.IndexFile(ctx, xlsxPath, []string{".xlsx"}); err != nil {
		t.Fatal(err)
	}
	doc, err := store.GetDocument(ctx, FileDocID(xlsxPath))
	if err != nil {
		t.Fatal(err)
	}
	if doc.ContentType != models.ContentTypeTable || doc.Table == nil {
		t.Fatalf("doc = %+v, want table content", doc)
	}
	if doc.Table.Columns[0] != "Region" || doc.Table.Rows[0][0] != "Omnisyan" {
		t.Errorf("table = %+v", doc.Table)
	}
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewMemoryStorage()
	idx := NewIndexer(store, nil)
	ctx := context.Background()

	fPath := filepath.Join(dir, "gone.txt")
	writeFile(t, fPath, "bye")
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.RemoveFile(ctx, fPath); err != nil {
		t.Fatal(err)
	}
	if store.CountDocuments(ctx) != 0 {
		t.Error("document should be removed")
	}
	if err := idx.RemoveFile(ctx, fPath); err != nil {
		t.Errorf("removing an unindexed path: %v", err)
	}
}

func TestIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "bravo")
	writeFile(t, filepath.Join(dir, "a.md"), "alpha")
	writeFile(t, filepath.Join(dir, "sub", "c.csv"), "k,v\nx,1\n")
	writeFile(t, filepath.Join(dir, "skip.bin"), "\x00\x01")

	store := storage.NewMemoryStorage()
	idx := NewIndexer(store, extract.NewExtractor(), WithWorkers(2))
	ctx := context.Background()

	n, err := idx.IndexDirectory(ctx, dir, []string{".txt", ".md", ".csv"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("indexed %d files, want 3", n)
	}
	docs, err := store.FilterDocuments(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, d := range docs {
		name, _ := d.Metadata["file_name"].AsString()
		names = append(names, name)
	}
	if strings.Join(names, ",") != "a.md,b.txt,c.csv" {
		t.Errorf("order = %v, want walk order", names)
	}

	tables, _ := store.FilterDocuments(ctx, map[string]any{"content_type": "table"})
	if len(tables) != 1 {
		t.Errorf("tables = %d, want 1", len(tables))
	}

	n, err = idx.IndexDirectory(ctx, dir, []string{".txt", ".md", ".csv"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second pass indexed %d files, want 0 (unchanged)", n)
	}
}

func TestIndexDirectory_errors(t *testing.T) {
	idx := NewIndexer(storage.NewMemoryStorage(), nil)
	if _, err := idx.IndexDirectory(context.Background(), "/nonexistent/dir", nil); err == nil {
		t.Error("expected error for missing directory")
	}
	f := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, f, "x")
	if _, err := idx.IndexDirectory(context.Background(), f, nil); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestLoadFile(t *testing.T) {
	fPath := filepath.Join(t.TempDir(), "note.txt")
	writeFile(t, fPath, "  some\tnote  ")
	doc, err := LoadFile(extract.NewExtractor(), fPath)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != FileDocID(fPath) || doc.Content != "some note" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  a \n\t b  c ", "a b c"},
		{"co\u00adoperate", "cooperate"},
		{"zero\u200bwidth", "zerowidth"},
		{"nul\x00byte", "nulbyte"},
		{"", ""},
		{" \n ", ""},
	}
	for _, tt := range tests {
		if got := Preprocess(tt.in); got != tt.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
