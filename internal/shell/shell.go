// Package shell selects the active view for a navigation tab. Each
// navigation mounts a fresh view; nothing is cached between tabs.
package shell

import (
	"context"

	"github.com/batteryfi/batteryfi/internal/dashboard"
	"github.com/batteryfi/batteryfi/internal/marketplace"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/pools"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/store"
)

// Navigation tabs.
const (
	TabDashboard   = "dashboard"
	TabCommunity   = "community"
	TabMarketplace = "marketplace"
)

// Tabs lists the tabs in display order.
var Tabs = []string{TabDashboard, TabCommunity, TabMarketplace}

// Page is a mounted view rendered for one tab.
type Page struct {
	Tab  string `json:"tab"`
	View any    `json:"view"`
}

// Shell builds views from shared dependencies.
type Shell struct {
	store store.Store
	sim   *dashboard.Simulator
}

func New(st store.Store, sim *dashboard.Simulator) *Shell {
	return &Shell{store: st, sim: sim}
}

// Normalize maps unknown tabs to the dashboard.
func Normalize(tab string) string {
	switch tab {
	case TabCommunity, TabMarketplace:
		return tab
	default:
		return TabDashboard
	}
}

// Navigate mounts the view for tab and renders it.
func (s *Shell) Navigate(ctx context.Context, tab string, sess *session.Session, n notify.Notifier) Page {
	tab = Normalize(tab)
	switch tab {
	case TabCommunity:
		v := pools.NewView(s.store, sess, n)
		v.Mount(ctx)
		return Page{Tab: tab, View: v.Snapshot()}
	case TabMarketplace:
		v := marketplace.NewView(s.store, sess, n)
		v.Mount(ctx)
		return Page{Tab: tab, View: v.Snapshot()}
	default:
		v := dashboard.NewView(s.sim, sess)
		v.Mount(ctx)
		return Page{Tab: tab, View: v.Snapshot()}
	}
}
