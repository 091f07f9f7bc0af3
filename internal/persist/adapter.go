// Package persist serializes the status keyspace as a single document on a
// [substrate.Substrate].
//
// The document maps date keys to raw record JSON plus a "_metadata" entry.
// Records are kept as [json.RawMessage] here so this package stays ignorant
// of the record schema; decoding and migration belong to the caller.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jpalmerr/daystatus/internal/substrate"
)

// MetadataKey is the reserved document entry holding [Metadata].
const MetadataKey = "_metadata"

// Metadata describes the document as a whole.
type Metadata struct {
	LastModified time.Time `json:"lastModified"`
	Version      int       `json:"version"`
	Count        int       `json:"count"`
}

// Error reports a failed substrate read or write.
type Error struct {
	// Op is "load", "save" or "clear".
	Op string

	// Key is the substrate key involved.
	Key string

	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Adapter reads and writes the status document.
//
// PrimaryKey is the only key ever written. LegacyKey, when set, is read as a
// fallback while PrimaryKey is empty and is removed by [Adapter.Clear].
type Adapter struct {
	Substrate  substrate.Substrate
	PrimaryKey string
	LegacyKey  string

	// Version is stamped into the metadata on every save.
	Version int

	// Now returns the metadata timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Load returns the stored entries with the metadata entry removed.
// It returns nil, nil when neither key holds a document.
func (a *Adapter) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	value, ok, err := a.Substrate.Get(ctx, a.PrimaryKey)
	if err != nil {
		return nil, &Error{Op: "load", Key: a.PrimaryKey, Err: err}
	}
	key := a.PrimaryKey

	if (!ok || value == "") && a.LegacyKey != "" {
		value, ok, err = a.Substrate.Get(ctx, a.LegacyKey)
		if err != nil {
			return nil, &Error{Op: "load", Key: a.LegacyKey, Err: err}
		}
		key = a.LegacyKey
	}

	if !ok || value == "" {
		return nil, nil
	}

	entries, err := Decode(value)
	if err != nil {
		return nil, &Error{Op: "load", Key: key, Err: err}
	}
	return entries, nil
}

// Save writes entries as the whole document under PrimaryKey.
func (a *Adapter) Save(ctx context.Context, entries map[string]json.RawMessage) error {
	data, err := a.Encode(entries)
	if err != nil {
		return &Error{Op: "save", Key: a.PrimaryKey, Err: err}
	}
	if err := a.Substrate.Set(ctx, a.PrimaryKey, data); err != nil {
		return &Error{Op: "save", Key: a.PrimaryKey, Err: err}
	}
	return nil
}

// Clear removes the primary document and the legacy fallback.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.Substrate.Remove(ctx, a.PrimaryKey); err != nil {
		return &Error{Op: "clear", Key: a.PrimaryKey, Err: err}
	}
	if a.LegacyKey != "" {
		if err := a.Substrate.Remove(ctx, a.LegacyKey); err != nil {
			return &Error{Op: "clear", Key: a.LegacyKey, Err: err}
		}
	}
	return nil
}

// Encode builds the document text for entries, adding fresh metadata.
func (a *Adapter) Encode(entries map[string]json.RawMessage) (string, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	doc := make(map[string]json.RawMessage, len(entries)+1)
	for k, v := range entries {
		if k == MetadataKey {
			continue
		}
		doc[k] = v
	}

	meta, err := json.Marshal(Metadata{
		LastModified: now().UTC(),
		Version:      a.Version,
		Count:        len(doc),
	})
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	doc[MetadataKey] = meta

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(data), nil
}

// Decode parses document text into its entries, dropping the metadata entry.
// A document whose top level is not a JSON object is an error.
func Decode(value string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		return nil, errors.New("decode document: not an object")
	}
	delete(doc, MetadataKey)
	return doc, nil
}

// DecodeMetadata extracts the metadata entry from document text.
// ok is false when the document has none.
func DecodeMetadata(value string) (meta Metadata, ok bool, err error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return Metadata{}, false, fmt.Errorf("decode document: %w", err)
	}
	raw, ok := doc[MetadataKey]
	if !ok {
		return Metadata{}, false, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, false, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, true, nil
}
