// Package notify carries transient user notifications ("toasts") from the
// views back to whoever renders them.
package notify

import (
	"sync"

	"github.com/batteryfi/batteryfi/internal/metrics"
)

// Variants.
const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Notification is one transient message.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Recorder collects notifications in order. A fresh Recorder is created per
// request so each response carries only its own notifications.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	metrics.Notifications.WithLabelValues(n.Variant).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Success builds a default notification.
func Success(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Failure builds a destructive notification.
func Failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}
