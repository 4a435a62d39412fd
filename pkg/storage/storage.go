// Package storage provides a small object store used for ML artifacts,
// cached datasets and trade records. Keys are slash-delimited paths of the
// form {category}/{stage}/{artifact}.
package storage

import (
	"context"
	"encoding/json"
)

// Client is the object-storage capability consumed by the trading services.
type Client interface {
	// SaveJSON marshals v and stores it under key, overwriting any prior value.
	SaveJSON(ctx context.Context, key string, v interface{}) error
	// LoadJSON unmarshals the object at key into out. It reports found=false
	// (with a nil error) when the key does not exist, so callers must handle
	// absence deliberately.
	LoadJSON(ctx context.Context, key string, out interface{}) (bool, error)
	// SaveBytes stores an opaque blob under key.
	SaveBytes(ctx context.Context, key string, data []byte) error
	// LoadBytes returns the blob at key, or found=false when absent.
	LoadBytes(ctx context.Context, key string) ([]byte, bool, error)
	// ListKeys returns every key beginning with prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// CopyPrefix copies every object under src to the same relative path
	// under dst and returns the number of objects copied. Copies are
	// idempotent and safe to repeat.
	CopyPrefix(ctx context.Context, src, dst string) (int, error)
	// Delete removes the object at key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}
