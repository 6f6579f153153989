// Package marketplace implements the listing browser: fetch active listings,
// filter and sort them for display, and accept draft listings and purchase
// requests from signed-in users.
package marketplace

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/model"
)

// Sort keys accepted by Project. Anything else sorts like SortCreatedAt.
const (
	SortCreatedAt = "created_at"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortQuantity  = "quantity"
)

// FilterAll disables the listing type filter.
const FilterAll = "all"

// Project returns the listings matching search and filterType, ordered by
// sortBy. The input slice is never modified.
func Project(listings []model.Listing, search, filterType, sortBy string) []model.Listing {
	needle := strings.ToLower(search)

	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if needle != "" &&
			!strings.Contains(strings.ToLower(l.Title), needle) &&
			!strings.Contains(strings.ToLower(l.Description), needle) {
			continue
		}
		if filterType != FilterAll && l.ListingType != filterType {
			continue
		}
		out = append(out, l)
	}

	sort.SliceStable(out, less(out, sortBy))
	return out
}

func less(ls []model.Listing, sortBy string) func(i, j int) bool {
	switch sortBy {
	case SortPriceLow:
		return func(i, j int) bool { return ls[i].Price.LessThan(ls[j].Price) }
	case SortPriceHigh:
		return func(i, j int) bool { return ls[i].Price.GreaterThan(ls[j].Price) }
	case SortQuantity:
		return func(i, j int) bool { return ls[i].Quantity.GreaterThan(ls[j].Quantity) }
	default:
		return func(i, j int) bool { return ls[i].CreatedAt.After(ls[j].CreatedAt) }
	}
}

// FormatPrice renders a price for its unit, e.g. "$0.120/kWh".
func FormatPrice(price decimal.Decimal, unit string) string {
	switch unit {
	case model.UnitKWh:
		return "$" + price.StringFixed(3) + "/kWh"
	case model.UnitToken:
		return "$" + price.StringFixed(4) + "/token"
	case model.UnitPiece:
		return "$" + grouped(price)
	case model.UnitContract:
		return "$" + price.StringFixed(2) + "/contract"
	default:
		return "$" + price.StringFixed(2)
	}
}

// grouped formats with thousands separators and at most three fraction digits.
func grouped(price decimal.Decimal) string {
	s := price.Round(3).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// TypeLabel turns a listing type into display text: "energy_trade" → "energy trade".
func TypeLabel(listingType string) string {
	return strings.Replace(listingType, "_", " ", 1)
}
