package marketplace_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/marketplace"
	"github.com/batteryfi/batteryfi/internal/model"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var base = time.Date(2025, 10, 22, 14, 48, 0, 0, time.UTC)

func listing(id, title, desc, typ, price, qty string, age time.Duration) model.Listing {
	return model.Listing{
		ID:          id,
		Title:       title,
		Description: desc,
		ListingType: typ,
		Price:       d(price),
		Quantity:    d(qty),
		Unit:        model.UnitKWh,
		Status:      model.ListingStatusActive,
		CreatedAt:   base.Add(-age),
	}
}

func fixture() []model.Listing {
	return []model.Listing{
		listing("a", "Solar surplus", "Rooftop output", model.ListingEnergyTrade, "0.12", "50", 1*time.Hour),
		listing("b", "Battery pack", "Used SOLAR battery", model.ListingEquipment, "900", "1", 2*time.Hour),
		listing("c", "Wind kWh", "Night delivery", model.ListingEnergyTrade, "0.08", "200", 3*time.Hour),
		listing("e", "Token bundle", "BATT for USDC", model.ListingTokenSwap, "0.12", "75", 30*time.Minute),
	}
}

func ids(ls []model.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}

// --- Projection ---

func TestProject_SearchMatchesTitleOrDescription(t *testing.T) {
	got := ids(marketplace.Project(fixture(), "solar", marketplace.FilterAll, marketplace.SortCreatedAt))
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProject_EmptySearchKeepsAll(t *testing.T) {
	if got := marketplace.Project(fixture(), "", marketplace.FilterAll, ""); len(got) != 4 {
		t.Errorf("expected all listings, got %d", len(got))
	}
}

func TestProject_TypeFilter(t *testing.T) {
	got := marketplace.Project(fixture(), "", model.ListingEnergyTrade, marketplace.SortCreatedAt)
	for _, l := range got {
		if l.ListingType != model.ListingEnergyTrade {
			t.Errorf("unexpected type %s", l.ListingType)
		}
	}
	if len(got) != 2 {
		t.Errorf("expected 2 energy trades, got %d", len(got))
	}
}

func TestProject_PriceLowIsStable(t *testing.T) {
	// a and e share a price; a comes first in the input so it stays first.
	got := ids(marketplace.Project(fixture(), "", marketplace.FilterAll, marketplace.SortPriceLow))
	want := []string{"c", "a", "e", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProject_Orderings(t *testing.T) {
	tests := []struct {
		sortBy string
		want   []string
	}{
		{marketplace.SortCreatedAt, []string{"e", "a", "b", "c"}},
		{"bogus", []string{"e", "a", "b", "c"}},
		{marketplace.SortPriceHigh, []string{"b", "a", "e", "c"}},
		{marketplace.SortQuantity, []string{"c", "e", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			got := ids(marketplace.Project(fixture(), "", marketplace.FilterAll, tt.sortBy))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProject_IsPermutationOfFiltered(t *testing.T) {
	in := fixture()
	for _, key := range []string{marketplace.SortCreatedAt, marketplace.SortPriceLow, marketplace.SortPriceHigh, marketplace.SortQuantity} {
		got := marketplace.Project(in, "", marketplace.FilterAll, key)
		if len(got) != len(in) {
			t.Fatalf("%s: lost listings", key)
		}
		seen := map[string]int{}
		for _, l := range got {
			seen[l.ID]++
		}
		for _, l := range in {
			if seen[l.ID] != 1 {
				t.Errorf("%s: listing %s appears %d times", key, l.ID, seen[l.ID])
			}
		}
	}
}

func TestProject_IdempotentAndPure(t *testing.T) {
	in := fixture()
	before := ids(in)

	first := marketplace.Project(in, "s", marketplace.FilterAll, marketplace.SortPriceHigh)
	second := marketplace.Project(in, "s", marketplace.FilterAll, marketplace.SortPriceHigh)
	if !reflect.DeepEqual(ids(first), ids(second)) {
		t.Error("same inputs should give the same projection")
	}
	if !reflect.DeepEqual(ids(in), before) {
		t.Error("input was reordered")
	}
}

// --- Presentation ---

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price, unit, want string
	}{
		{"0.12", model.UnitKWh, "$0.120/kWh"},
		{"0.5", model.UnitToken, "$0.5000/token"},
		{"1234", model.UnitPiece, "$1,234"},
		{"1234567.5", model.UnitPiece, "$1,234,567.5"},
		{"12", model.UnitContract, "$12.00/contract"},
		{"3.456", "crate", "$3.46"},
	}
	for _, tt := range tests {
		if got := marketplace.FormatPrice(d(tt.price), tt.unit); got != tt.want {
			t.Errorf("FormatPrice(%s, %s) = %s, want %s", tt.price, tt.unit, got, tt.want)
		}
	}
}

func TestTypeLabel(t *testing.T) {
	if got := marketplace.TypeLabel(model.ListingFuturesContract); got != "futures contract" {
		t.Errorf("got %q", got)
	}
}

// --- View ---

type countingStore struct {
	store.Store
	listingFetches int
}

func (c *countingStore) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	c.listingFetches++
	return c.Store.ListActiveListings(ctx)
}

func seeded() *store.MemoryStore {
	ms := store.NewMemoryStore()
	for _, l := range fixture() {
		ms.AddListing(l)
	}
	inactive := listing("x", "Solar sold", "", model.ListingEnergyTrade, "1", "1", 0)
	inactive.Status = "sold"
	ms.AddListing(inactive)
	return ms
}

func TestView_MountLoadsActiveListings(t *testing.T) {
	v := marketplace.NewView(seeded(), nil, notify.NewRecorder())
	if !v.Loading() {
		t.Error("expected loading before mount")
	}
	v.Mount(context.Background())
	if v.Loading() {
		t.Error("loading should clear after mount")
	}
	snap := v.Snapshot()
	if snap.Total != 4 || len(snap.Listings) != 4 {
		t.Errorf("expected 4 active listings, got %+v", snap)
	}
	if snap.Listings[0].PriceDisplay == "" || snap.Listings[0].TypeLabel == "" {
		t.Error("expected display fields on cards")
	}
}

func TestView_SearchScenario(t *testing.T) {
	v := marketplace.NewView(seeded(), nil, notify.NewRecorder())
	v.Mount(context.Background())
	v.SetSearch("solar")

	got := ids(v.Listings())
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestView_FetchFailureKeepsCollection(t *testing.T) {
	ms := seeded()
	rec := notify.NewRecorder()
	v := marketplace.NewView(ms, nil, rec)
	v.Mount(context.Background())

	ms.Err = errors.New("connection refused")
	v.Fetch(context.Background())

	if len(v.Listings()) != 4 {
		t.Error("prior listings should survive a failed refetch")
	}
	last, _ := rec.Last()
	if last.Title != "Error Loading Marketplace" || last.Description != "connection refused" ||
		last.Variant != notify.VariantDestructive {
		t.Errorf("unexpected notification %+v", last)
	}
}

func TestView_FirstFetchFailure(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Err = errors.New("boom")
	v := marketplace.NewView(ms, nil, notify.NewRecorder())
	v.Mount(context.Background())

	if v.Loading() || len(v.Listings()) != 0 {
		t.Error("expected empty, not loading")
	}
}

func TestSubmitDraft_RequiresSession(t *testing.T) {
	cs := &countingStore{Store: seeded()}
	rec := notify.NewRecorder()
	v := marketplace.NewView(cs, nil, rec)
	v.Mount(context.Background())
	v.SetDraft(marketplace.Draft{Title: "Panels"})

	if err := v.SubmitDraft(context.Background()); !errors.Is(err, marketplace.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if cs.listingFetches != 1 {
		t.Errorf("no refetch expected, fetches=%d", cs.listingFetches)
	}
	if v.Draft().Title != "Panels" {
		t.Error("draft should be kept")
	}
	last, _ := rec.Last()
	if last.Title != "Authentication Required" || last.Description != "Please log in to create a listing" {
		t.Errorf("unexpected notification %+v", last)
	}
}

func TestSubmitDraft_ClearsAndRefetches(t *testing.T) {
	cs := &countingStore{Store: seeded()}
	rec := notify.NewRecorder()
	v := marketplace.NewView(cs, &session.Session{UserID: "auth-1"}, rec)
	v.Mount(context.Background())
	v.SetDraft(marketplace.Draft{Title: "Panels", Price: "abc"})

	if err := v.SubmitDraft(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if v.Draft() != (marketplace.Draft{}) {
		t.Error("draft should be cleared")
	}
	if cs.listingFetches != 2 {
		t.Errorf("expected refetch, fetches=%d", cs.listingFetches)
	}
	if len(v.Listings()) != 4 {
		t.Error("submitting a draft must not add a listing")
	}
	last, _ := rec.Last()
	if last.Title != "Listing Created" {
		t.Errorf("unexpected notification %+v", last)
	}
}

func TestPurchase(t *testing.T) {
	l := fixture()[0]

	rec := notify.NewRecorder()
	anon := marketplace.NewView(seeded(), nil, rec)
	if err := anon.Purchase(l); !errors.Is(err, marketplace.ErrAuthRequired) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
	if last, _ := rec.Last(); last.Description != "Please log in to make a purchase" {
		t.Errorf("unexpected notification %+v", last)
	}

	rec = notify.NewRecorder()
	v := marketplace.NewView(seeded(), &session.Session{UserID: "u"}, rec)
	if err := v.Purchase(l); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if last, _ := rec.Last(); last.Title != "Purchase Initiated" ||
		last.Description != "Purchase request for Solar surplus has been initiated" {
		t.Errorf("unexpected notification %+v", last)
	}
}
