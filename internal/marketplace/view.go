package marketplace

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/batteryfi/batteryfi/internal/metrics"
	"github.com/batteryfi/batteryfi/internal/model"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/store"
)

// ErrAuthRequired is returned by actions that need a signed-in user.
var ErrAuthRequired = errors.New("marketplace: authentication required")

// Draft is the create-listing form. Fields are kept as typed, unvalidated.
type Draft struct {
	ListingType        string `json:"listing_type"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Price              string `json:"price"`
	Quantity           string `json:"quantity"`
	Unit               string `json:"unit"`
	LocationConstraint string `json:"location_constraint"`
	EnergyDeliveryTime string `json:"energy_delivery_time"`
}

// View is one mounted marketplace. It owns its listings and filter state;
// nothing is shared with other views.
type View struct {
	store store.Store
	sess  *session.Session
	n     notify.Notifier

	listings []model.Listing
	loading  bool
	search   string
	filter   string
	sortBy   string
	draft    Draft
}

// NewView creates an unmounted view. sess may be nil for anonymous visitors.
func NewView(st store.Store, sess *session.Session, n notify.Notifier) *View {
	if sess != nil {
		st = store.ForToken(st, sess.AccessToken)
	}
	return &View{
		store:   st,
		sess:    sess,
		n:       n,
		loading: true,
		filter:  FilterAll,
		sortBy:  SortCreatedAt,
	}
}

// Mount performs the initial fetch.
func (v *View) Mount(ctx context.Context) {
	v.Fetch(ctx)
}

// Fetch replaces the listing collection. On failure the previous collection
// is kept and the user is notified.
func (v *View) Fetch(ctx context.Context) {
	defer func() { v.loading = false }()

	start := time.Now()
	listings, err := v.store.ListActiveListings(ctx)
	metrics.ObserveFetch("listings", start, err)
	if err != nil {
		slog.Error("fetch listings failed", "err", err)
		v.n.Notify(notify.Failure("Error Loading Marketplace", err.Error()))
		return
	}
	v.listings = listings
}

func (v *View) SetSearch(s string) { v.search = s }

// SetFilter selects a listing type, or FilterAll. Empty resets to FilterAll.
func (v *View) SetFilter(t string) {
	if t == "" {
		t = FilterAll
	}
	v.filter = t
}

func (v *View) SetSort(key string) {
	if key == "" {
		key = SortCreatedAt
	}
	v.sortBy = key
}

func (v *View) SetDraft(d Draft) { v.draft = d }

func (v *View) Draft() Draft { return v.draft }

// Loading reports whether the first fetch is still outstanding.
func (v *View) Loading() bool { return v.loading }

// Listings returns the current projection.
func (v *View) Listings() []model.Listing {
	return Project(v.listings, v.search, v.filter, v.sortBy)
}

// Find returns the fetched listing with the given id.
func (v *View) Find(id string) (model.Listing, bool) {
	for _, l := range v.listings {
		if l.ID == id {
			return l, true
		}
	}
	return model.Listing{}, false
}

// SubmitDraft accepts the current draft. The draft is acknowledged and
// cleared, then listings are refetched; no listing row is written.
func (v *View) SubmitDraft(ctx context.Context) error {
	if v.sess == nil {
		v.n.Notify(notify.Failure("Authentication Required", "Please log in to create a listing"))
		return ErrAuthRequired
	}

	// TODO: insert into the listings collection once sellers have a write policy.
	slog.Info("listing draft submitted",
		"draft_id", uuid.NewString(),
		"user", v.sess.UserID,
		"type", v.draft.ListingType,
		"title", v.draft.Title,
	)
	v.n.Notify(notify.Success("Listing Created", "Your listing has been created successfully"))
	v.draft = Draft{}
	v.Fetch(ctx)
	return nil
}

// Purchase acknowledges a purchase request for l. No order is recorded.
func (v *View) Purchase(l model.Listing) error {
	if v.sess == nil {
		v.n.Notify(notify.Failure("Authentication Required", "Please log in to make a purchase"))
		return ErrAuthRequired
	}

	slog.Info("purchase initiated", "listing", l.ID, "user", v.sess.UserID)
	v.n.Notify(notify.Success("Purchase Initiated", "Purchase request for "+l.Title+" has been initiated"))
	return nil
}

// Card is a listing with its display fields.
type Card struct {
	model.Listing
	PriceDisplay string `json:"price_display"`
	TypeLabel    string `json:"type_label"`
}

// Snapshot is the rendered state of a view.
type Snapshot struct {
	Loading  bool   `json:"loading"`
	Search   string `json:"search"`
	Filter   string `json:"filter"`
	SortBy   string `json:"sort_by"`
	Total    int    `json:"total"`
	Listings []Card `json:"listings"`
}

// Snapshot renders the current projection.
func (v *View) Snapshot() Snapshot {
	projected := v.Listings()
	cards := make([]Card, 0, len(projected))
	for _, l := range projected {
		cards = append(cards, Card{
			Listing:      l,
			PriceDisplay: FormatPrice(l.Price, l.Unit),
			TypeLabel:    TypeLabel(l.ListingType),
		})
	}
	return Snapshot{
		Loading:  v.loading,
		Search:   v.search,
		Filter:   v.filter,
		SortBy:   v.sortBy,
		Total:    len(v.listings),
		Listings: cards,
	}
}
