package github

import (
	"sync"

	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClients = (*ClientCache)(nil)

// ClientCache builds and memoizes one Client per token. The engine is
// multi-tenant: each organization has a service token and linked users carry
// their own, so clients are keyed by the token itself. Tokens revoked
// upstream simply fail on use; no eviction is needed.
type ClientCache struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientCache creates an empty ClientCache.
func NewClientCache() *ClientCache {
	return &ClientCache{clients: make(map[string]*Client)}
}

// ForToken returns the client for the given token, building it on first use.
func (c *ClientCache) ForToken(token string) driven.GitHubClient {
	c.mu.RLock()
	client, ok := c.clients[token]
	c.mu.RUnlock()
	if ok {
		return client
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[token]; ok {
		return client
	}

	client = NewClient(token)
	c.clients[token] = client
	return client
}
