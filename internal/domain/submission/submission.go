// Package submission guards the upload form against duplicate submissions.
//
// Every rendered upload form carries a fresh token. The first POST that
// presents a token claims it; replays of the same token (double clicks,
// browser resubmits) are refused without reaching the backend. A failed
// upload releases its token so the form can be retried.
package submission

import (
	"container/list"
	"context"
	"sync"

	"github.com/google/uuid"
)

// Guard records claimed submission tokens.
type Guard interface {
	// Issue returns a new token to embed in a form.
	Issue(ctx context.Context) string

	// Claim atomically records token. It returns false if token was
	// already claimed.
	Claim(ctx context.Context, token string) bool

	// Release forgets a claimed token so it can be claimed again.
	Release(ctx context.Context, token string)

	// Size returns the number of tokens currently held.
	Size() int
}

const defaultMaxSize = 10_000

type inMemoryGuard struct {
	mu      sync.Mutex
	claimed map[string]*list.Element
	order   *list.List // front = newest claim
	maxSize int
}

// NewInMemoryGuard creates a Guard backed by a map and a claim-order list.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		claimed: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *inMemoryGuard) Issue(_ context.Context) string {
	return uuid.NewString()
}

func (g *inMemoryGuard) Claim(_ context.Context, token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.claimed[token]; ok {
		return false
	}
	if g.maxSize > 0 && g.order.Len() >= g.maxSize {
		if oldest := g.order.Back(); oldest != nil {
			delete(g.claimed, oldest.Value.(string))
			g.order.Remove(oldest)
		}
	}
	g.claimed[token] = g.order.PushFront(token)
	return true
}

func (g *inMemoryGuard) Release(_ context.Context, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if el, ok := g.claimed[token]; ok {
		g.order.Remove(el)
		delete(g.claimed, token)
	}
}

func (g *inMemoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}

// Valid reports whether token has the shape of an issued token.
func Valid(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}
