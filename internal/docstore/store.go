package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by backends for lookups of missing collections.
	// Missing documents are reported with Exists=false instead.
	ErrNotFound = errors.New("docstore: not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("docstore: closed")
)

// Document is one record read from a store.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Exists     bool           `json:"exists"`
	Data       map[string]any `json:"data,omitempty"`
	UpdateTime time.Time      `json:"updateTime,omitempty"`
}

// Keys returns the document's field names, sorted.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.Data))
	for k := range d.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store reads documents by id.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// GetAll preserves the order of ids.
	GetAll(ctx context.Context, collection string, ids []string) ([]Document, error)
	// Backend names the backend and, for Firestore, the credential strategy
	// that connected, e.g. "firestore/adc".
	Backend() string
	Close() error
}

// ValidateName rejects empty names and names containing '/'.
func ValidateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("docstore: %s is required", kind)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("docstore: %s %q must not contain '/'", kind, name)
	}
	return nil
}
