package store

import (
	"context"
	"sync"
)

// MemoryDriver is an in-memory Driver for tests and dev mode.
type MemoryDriver struct {
	mu   sync.Mutex
	data map[string]string

	// GetErr and SetErr, when set, are returned by the matching method.
	GetErr error
	SetErr error
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{data: map[string]string{}}
}

func (d *MemoryDriver) Get(_ context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GetErr != nil {
		return "", false, d.GetErr
	}
	v, ok := d.data[key]
	return v, ok, nil
}

func (d *MemoryDriver) Set(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SetErr != nil {
		return d.SetErr
	}
	d.data[key] = value
	return nil
}

func (d *MemoryDriver) Close() error {
	return nil
}
