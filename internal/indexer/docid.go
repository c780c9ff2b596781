package indexer

import (
	"path/filepath"

	"github.com/google/uuid"
)

const docIDPrefix = "file:"

// fileNamespace scopes path-derived ids so they cannot collide with random ones.
var fileNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docstore:file"))

// FileDocID returns a stable document id for an absolute path. The same path
// always yields the same id, so re-indexing a file replaces its document.
func FileDocID(absolutePath string) string {
	return docIDPrefix + uuid.NewSHA1(fileNamespace, []byte(filepath.Clean(absolutePath))).String()
}
