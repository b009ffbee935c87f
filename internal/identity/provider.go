// Package identity is the boundary to the external identity provider. The
// telemetry core never mutates identities; it only consumes the current
// identity and its change notifications (sign-in, sign-out).
package identity

import (
	"sync"

	"github.com/conline/conline/pkg/types"
)

// Provider exposes the current identity and asynchronous change
// notifications.
type Provider interface {
	// Current returns the current identity, or nil when unauthenticated.
	Current() *types.Identity

	// Changes delivers the new identity (or nil on sign-out) whenever the
	// current identity changes.
	Changes() <-chan *types.Identity
}

// Notifier is a Provider whose identity is set programmatically. The agent
// uses it around its configured identity; tests use it to simulate
// sign-in/sign-out transitions.
type Notifier struct {
	mu      sync.RWMutex
	current *types.Identity
	subs    []chan *types.Identity
}

// NewNotifier creates a Notifier with the given starting identity
// (nil for unauthenticated).
func NewNotifier(current *types.Identity) *Notifier {
	return &Notifier{current: current}
}

// Current returns the current identity, or nil when unauthenticated.
func (n *Notifier) Current() *types.Identity {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// Changes returns a channel delivering identity changes. Deliveries to a
// subscriber that isn't draining are dropped; only the latest identity
// matters.
func (n *Notifier) Changes() <-chan *types.Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan *types.Identity, 1)
	n.subs = append(n.subs, ch)
	return ch
}

// Set replaces the current identity and notifies subscribers.
func (n *Notifier) Set(id *types.Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = id
	for _, ch := range n.subs {
		select {
		case ch <- id:
		default:
		}
	}
}

var _ Provider = (*Notifier)(nil)
