package search

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arjun/nft-marketplace/backend/internal/models"
)

// fallbackTotal is the synthetic inventory size reported while degraded.
const fallbackTotal = 48

var fallbackCategories = []string{"art", "collectibles", "music", "photography"}

// fallbackPage synthesizes a deterministic page of placeholder listings so
// the caller stays populated during a listing-store outage. Every item is
// marked Placeholder; it must never be mistaken for real inventory.
func fallbackPage(f Filters, page, pageSize int) ([]models.NFT, int64) {
	offset := (page - 1) * pageSize
	if offset >= fallbackTotal {
		return nil, fallbackTotal
	}
	n := pageSize
	if offset+n > fallbackTotal {
		n = fallbackTotal - offset
	}

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	items := make([]models.NFT, 0, n)
	for i := 0; i < n; i++ {
		idx := offset + i
		var oid primitive.ObjectID
		copy(oid[:], fmt.Sprintf("%012d", idx))

		category := f.Category
		if category == "" {
			category = fallbackCategories[idx%len(fallbackCategories)]
		}
		items = append(items, models.NFT{
			ID:          oid,
			Name:        fmt.Sprintf("Featured Drop #%d", idx+1),
			Description: "Listing preview temporarily unavailable",
			PriceEth:    0.05 * float64(idx%20+1),
			Category:    category,
			CreatorID:   "marketplace",
			OwnerID:     "marketplace",
			IsAuction:   idx%3 == 0,
			Likes:       int64(idx * 7 % 100),
			Views:       int64(idx * 31 % 1000),
			Placeholder: true,
			CreatedAt:   base.AddDate(0, 0, idx),
		})
	}
	return items, fallbackTotal
}
