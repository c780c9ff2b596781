package storage

import (
	"strings"

	"github.com/hyperjump/docstore/internal/models"
)

// DuplicatePolicy decides what a write does when an id is already stored.
type DuplicatePolicy string

const (
	// PolicySkip leaves the stored document untouched.
	PolicySkip DuplicatePolicy = "skip"
	// PolicyOverwrite replaces the stored document.
	PolicyOverwrite DuplicatePolicy = "overwrite"
	// PolicyFail aborts the write with ErrDuplicateDocument.
	PolicyFail DuplicatePolicy = "fail"
)

// DefaultPolicy is used when a caller does not name one.
const DefaultPolicy = PolicyFail

// Valid reports whether p names a known policy.
func (p DuplicatePolicy) Valid() bool {
	return p == PolicySkip || p == PolicyOverwrite || p == PolicyFail
}

// ParseDuplicatePolicy resolves a policy name. The empty name selects DefaultPolicy.
func ParseDuplicatePolicy(name string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return DefaultPolicy, nil
	case PolicySkip, PolicyOverwrite, PolicyFail:
		return p, nil
	default:
		return "", models.InvalidInputf("unknown duplicate policy %q (want skip, overwrite or fail)", name)
	}
}
