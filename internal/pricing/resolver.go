// Package pricing resolves a beneficiary's monthly plan cost from the
// plan's age/role-banded price table and keeps enrollment costs in sync
// with it.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"benefits-backend/internal/models"
)

// Resolve returns the price of the first band matching (age, role).
// Band order is significant: it is the documented tie-break when ranges
// overlap. Bounds are inclusive. The second return is false when no band
// matches ("unresolved"); callers treat that as price zero but must
// surface it as a data-quality warning, never charge silently.
//
// Pure and total: no side effects, never panics on well-typed input.
func Resolve(bands []models.PriceBand, age int, role models.BeneficiaryRole) (decimal.Decimal, bool) {
	for _, b := range bands {
		if age < b.MinAge || age > b.MaxAge {
			continue
		}
		if b.BeneficiaryType == models.RoleAmbos || b.BeneficiaryType == role {
			return b.Price, true
		}
	}
	return decimal.Zero, false
}

// SortBands orders a plan's bands by their stored position. GORM preloads
// do not guarantee order, so every caller that resolves prices runs the
// table through this first.
func SortBands(bands []models.PriceBand) []models.PriceBand {
	sorted := make([]models.PriceBand, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	return sorted
}
