package wallet

import (
	"sync"
	"time"
)

// IdleTimeout is how long an untouched wallet is kept before Cleanup drops it.
const IdleTimeout = 30 * time.Minute

// Registry keeps one Wallet per client so each caller sees its own linkage
// state, the way each browser tab holds its own.
type Registry struct {
	ext    Extension
	linker Linker
	idle   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	wallets map[string]*registryEntry
}

type registryEntry struct {
	wallet   *Wallet
	lastSeen time.Time
}

// NewRegistry creates a registry whose wallets share ext and linker.
func NewRegistry(ext Extension, linker Linker) *Registry {
	return &Registry{
		ext:     ext,
		linker:  linker,
		idle:    IdleTimeout,
		now:     time.Now,
		wallets: make(map[string]*registryEntry),
	}
}

// For returns the wallet for a client key, creating it disconnected.
func (r *Registry) For(key string) *Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.wallets[key]
	if !ok {
		e = &registryEntry{wallet: New(r.ext, r.linker)}
		r.wallets[key] = e
	}
	e.lastSeen = r.now()
	return e.wallet
}

// Cleanup drops wallets not touched within the idle window. A dropped
// client starts over disconnected.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	for key, e := range r.wallets {
		if e.lastSeen.Before(cutoff) {
			delete(r.wallets, key)
		}
	}
}

// Len returns the number of tracked wallets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wallets)
}
