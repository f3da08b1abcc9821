package profile

import (
	"context"
	"sync"
)

// StaticClient serves profiles from memory. Useful for tests and local
// development without a user service.
type StaticClient struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewStaticClient builds an empty static profile source.
func NewStaticClient() *StaticClient {
	return &StaticClient{profiles: make(map[string]Profile)}
}

// Add registers a profile under its owner id.
func (c *StaticClient) Add(p Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.ID] = p
}

// GetOwner returns the stored profile or ErrUnavailable.
func (c *StaticClient) GetOwner(_ context.Context, ownerID string) (Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[ownerID]
	if !ok {
		return Profile{}, ErrUnavailable
	}
	return p, nil
}
