package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memoryClient is an in-memory Client used in tests and local development.
type memoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryClient creates an empty in-memory storage client.
func NewMemoryClient() Client {
	return &memoryClient{objects: make(map[string][]byte)}
}

func (c *memoryClient) SaveJSON(ctx context.Context, key string, v interface{}) error {
	data, err := marshalJSON(v)
	if err != nil {
		return err
	}
	return c.SaveBytes(ctx, key, data)
}

func (c *memoryClient) LoadJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, found, err := c.LoadBytes(ctx, key)
	if err != nil || !found {
		return found, err
	}
	return true, unmarshalJSON(data, out)
}

func (c *memoryClient) SaveBytes(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	c.objects[key] = stored
	return nil
}

func (c *memoryClient) LoadBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.objects[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (c *memoryClient) ListKeys(_ context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for key := range c.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *memoryClient) CopyPrefix(ctx context.Context, src, dst string) (int, error) {
	src = strings.TrimSuffix(src, "/")
	dst = strings.TrimSuffix(dst, "/")

	keys, err := c.ListKeys(ctx, src+"/")
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, key := range keys {
		data, found, err := c.LoadBytes(ctx, key)
		if err != nil || !found {
			continue
		}
		if err := c.SaveBytes(ctx, dst+strings.TrimPrefix(key, src), data); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func (c *memoryClient) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, key)
	return nil
}
