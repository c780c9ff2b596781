// Package indexer loads files and directories into a document store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hyperjump/docstore/internal/extract"
	"github.com/hyperjump/docstore/internal/models"
	"github.com/hyperjump/docstore/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	metaKeySourcePath  = "source_path"
	metaKeyFileName    = "file_name"
	metaKeyExtension   = "extension"
	metaKeySourceSize  = "source_size"
	metaKeySourceMtime = "source_mtime"
)

// Indexer turns files into documents and writes them to storage. Document ids
// are derived from the absolute path; an existing document for a path is
// handled by the configured duplicate policy (overwrite unless set).
type Indexer struct {
	storage   storage.Storage
	extractor *extract.Extractor
	policy    storage.DuplicatePolicy
	workers   int
	logger    *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithPolicy sets the duplicate policy used when a file's document already exists.
func WithPolicy(p storage.DuplicatePolicy) IndexerOption {
	return func(idx *Indexer) { idx.policy = p }
}

// WithWorkers bounds concurrent extraction in IndexDirectory.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// NewIndexer creates an indexer writing to store.
// extractor may be nil; when nil, files are treated as plain text.
func NewIndexer(store storage.Storage, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:   store,
		extractor: extractor,
		policy:    storage.PolicyOverwrite,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexFile reads a file from path and writes it as one document. If allowedExts is
// non-empty, the file's extension must be in the list (case-insensitive). Unchanged
// files (same size and mtime as the stored document) are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) error {
	if idx.logger != nil {
		idx.logger.Debug("indexer indexing file", zap.String("path", path))
	}
	doc, err := idx.load(ctx, path, allowedExts)
	if err != nil || doc == nil {
		return err
	}
	return idx.write(ctx, []*models.Document{doc})
}

// load stats and extracts path. It returns nil when the stored document is current.
func (idx *Indexer) load(ctx context.Context, path string, allowedExts []string) (*models.Document, error) {
	absPath, info, err := statFile(path, allowedExts)
	if err != nil {
		return nil, err
	}
	docID := FileDocID(absPath)
	if idx.unchanged(ctx, docID, info) {
		if idx.logger != nil {
			idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		}
		return nil, nil
	}
	content, err := idx.extractContent(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content %s: %w", absPath, err)
	}
	return content.Document(docID, FileMetadata(absPath, info)), nil
}

// statFile resolves path and checks that it is an allowed regular file.
func statFile(path string, allowedExts []string) (string, fs.FileInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return "", nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	return absPath, info, nil
}

// FileMetadata returns the metadata recorded for a file document.
func FileMetadata(absPath string, info fs.FileInfo) models.Metadata {
	return models.Metadata{
		metaKeySourcePath:  models.String(absPath),
		metaKeyFileName:    models.String(filepath.Base(absPath)),
		metaKeyExtension:   models.String(strings.ToLower(filepath.Ext(absPath))),
		metaKeySourceSize:  models.Int(info.Size()),
		metaKeySourceMtime: models.Time(info.ModTime().UTC()),
	}
}

// unchanged reports whether the stored document for docID matches info.
func (idx *Indexer) unchanged(ctx context.Context, docID string, info fs.FileInfo) bool {
	doc, err := idx.storage.GetDocument(ctx, docID)
	if err != nil {
		return false
	}
	size, ok := doc.Metadata[metaKeySourceSize].AsInt()
	if !ok || size != info.Size() {
		return false
	}
	mtime, ok := doc.Metadata[metaKeySourceMtime].AsTime()
	return ok && mtime.Equal(info.ModTime())
}

func (idx *Indexer) write(ctx context.Context, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	n, err := idx.storage.WriteDocuments(ctx, docs, idx.policy)
	if err != nil {
		return fmt.Errorf("write documents: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer documents written", zap.Int("written", n), zap.Int("batch", len(docs)))
	}
	return nil
}

// IndexDirectory walks dir recursively and indexes each regular file whose extension
// is in allowedExts (if non-empty; otherwise all files). Files are extracted
// concurrently and written in walk order, so document order is deterministic.
// Returns the number of files written or refreshed and the first error encountered.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (int, error) {
	paths, err := ListFiles(dir, allowedExts)
	if err != nil {
		return 0, err
	}
	docs := make([]*models.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			doc, err := idx.load(gctx, path, allowedExts)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	batch := make([]*models.Document, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			batch = append(batch, doc)
		}
	}
	if err := idx.write(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// ListFiles returns the regular files under dir, in lexical walk order, whose
// extension is in allowedExts (all files when empty).
func ListFiles(dir string, allowedExts []string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

// LoadFile extracts path into a document without writing it anywhere.
func LoadFile(extractor *extract.Extractor, path string) (*models.Document, error) {
	absPath, info, err := statFile(path, nil)
	if err != nil {
		return nil, err
	}
	content, err := (&Indexer{extractor: extractor}).extractContent(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content %s: %w", absPath, err)
	}
	return content.Document(FileDocID(absPath), FileMetadata(absPath, info)), nil
}

func (idx *Indexer) extractContent(path string) (*extract.Content, error) {
	var (
		content *extract.Content
		err     error
	)
	if idx.extractor != nil {
		content, err = idx.extractor.Extract(path)
	} else {
		var raw []byte
		raw, err = os.ReadFile(path)
		content = &extract.Content{ContentType: models.ContentTypeText, Text: string(raw)}
	}
	if err != nil {
		return nil, err
	}
	if content.ContentType == models.ContentTypeText {
		content.Text = Preprocess(content.Text)
	}
	return content, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// RemoveFile deletes the document indexed for path. A path that was never
// indexed is not an error.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	id := FileDocID(absPath)
	if idx.logger != nil {
		idx.logger.Debug("indexer deleting document", zap.String("path", absPath), zap.String("id", id))
	}
	err = idx.storage.DeleteDocuments(ctx, []string{id})
	if errors.Is(err, models.ErrMissingDocument) {
		return nil
	}
	return err
}
