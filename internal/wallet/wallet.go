// Package wallet links a browser-style wallet extension's active account to
// the current session.
//
// State machine:
//
//	Disconnected → Connecting → Connected
//	Connecting   → Disconnected   (extension absent, rejected, or no accounts)
//	Connected    → Disconnected   (explicit Disconnect)
//
// Only the first account reported by the extension is used. Disconnecting is
// purely local: the extension is never told.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/batteryfi/batteryfi/internal/metrics"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/session"
)

// State is the wallet UI state.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
)

var (
	ErrExtensionNotFound = errors.New("wallet: extension not found")
	ErrNoAccounts        = errors.New("wallet: extension returned no accounts")
)

// Extension is the injected wallet capability: list authorized accounts.
type Extension interface {
	RequestAccounts(ctx context.Context) ([]string, error)
}

// Linker associates an address with a session. *session.Provider satisfies it.
type Linker interface {
	ConnectWallet(ctx context.Context, sess *session.Session, address string) error
}

// Status is a point-in-time view of a wallet.
type Status struct {
	State   State  `json:"state"`
	Address string `json:"address,omitempty"`
	Display string `json:"display,omitempty"`
}

// Wallet holds one client's linkage state.
type Wallet struct {
	ext    Extension
	linker Linker

	mu      sync.Mutex
	state   State
	address string
}

// New creates a disconnected wallet. ext may be nil, meaning no extension
// is installed.
func New(ext Extension, linker Linker) *Wallet {
	return &Wallet{ext: ext, linker: linker, state: Disconnected}
}

// Connect asks the extension for accounts and adopts the first one.
func (w *Wallet) Connect(ctx context.Context, sess *session.Session, n notify.Notifier) error {
	if w.ext == nil {
		w.reset()
		metrics.WalletConnections.WithLabelValues("not_found").Inc()
		n.Notify(notify.Failure("MetaMask Not Found", "Please install MetaMask to connect your wallet"))
		return ErrExtensionNotFound
	}

	w.mu.Lock()
	w.state = Connecting
	w.mu.Unlock()

	accounts, err := w.ext.RequestAccounts(ctx)
	if err != nil {
		w.reset()
		metrics.WalletConnections.WithLabelValues("rejected").Inc()
		n.Notify(notify.Failure("Wallet Connection Failed", err.Error()))
		return fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		w.reset()
		metrics.WalletConnections.WithLabelValues("empty").Inc()
		return ErrNoAccounts
	}

	address := accounts[0]
	w.mu.Lock()
	w.state = Connected
	w.address = address
	w.mu.Unlock()
	metrics.WalletConnections.WithLabelValues("connected").Inc()

	// Best-effort: the address stays connected locally even if linking fails.
	if w.linker != nil {
		if err := w.linker.ConnectWallet(ctx, sess, address); err != nil {
			slog.Warn("wallet link failed", "address", address, "err", err)
			n.Notify(notify.Failure("Wallet Connection Failed", err.Error()))
			return err
		}
	}

	n.Notify(notify.Success("Wallet Connected", "Connected to "+Truncate(address)))
	return nil
}

// Disconnect forgets the address locally.
func (w *Wallet) Disconnect(n notify.Notifier) {
	w.reset()
	n.Notify(notify.Success("Wallet Disconnected", "Your wallet has been disconnected"))
}

// Status returns the current state.
func (w *Wallet) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{State: w.state, Address: w.address}
	if w.address != "" {
		st.Display = Truncate(w.address)
	}
	return st
}

func (w *Wallet) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = Disconnected
	w.address = ""
}

// Truncate renders an address as first6...last4 for display.
func Truncate(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
