package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// DocumentStore is a key -> JSON document mapping. Documents are loaded and
// saved whole; there are no partial updates and no transactions. Last write
// wins at document granularity.
type DocumentStore interface {
	// Load unmarshals the document named name into out. It returns false
	// if no such document exists; any other failure is an error.
	Load(ctx context.Context, name string, out interface{}) (bool, error)

	// Save overwrites the document named name.
	Save(ctx context.Context, name string, doc interface{}) error

	// Append pushes item onto the array document named name. A missing
	// document, or one that does not hold an array, counts as empty.
	Append(ctx context.Context, name string, item interface{}) error
}

// appendToDocument implements Append on top of Load and Save so both
// drivers share the same read-push-write semantics.
func appendToDocument(ctx context.Context, s DocumentStore, name string, item interface{}) error {
	var existing json.RawMessage
	found, err := s.Load(ctx, name, &existing)
	if err != nil {
		return fmt.Errorf("append to %s: %w", name, err)
	}

	var items []json.RawMessage
	if found {
		// Non-array content is treated as empty, not as a failure.
		if err := json.Unmarshal(existing, &items); err != nil {
			items = nil
		}
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("append to %s: %w", name, err)
	}
	items = append(items, raw)

	return s.Save(ctx, name, items)
}
