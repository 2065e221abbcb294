package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/arjun/nft-marketplace/backend/internal/models"
)

func TestBuildFilter_Empty(t *testing.T) {
	filter := buildFilter(models.ListingQuery{})
	assert.Empty(t, filter)
}

func TestBuildFilter_TextSearchesNameAndDescription(t *testing.T) {
	filter := buildFilter(models.ListingQuery{Text: "dragon"})

	or, ok := filter["$or"].(bson.A)
	assert.True(t, ok)
	assert.Len(t, or, 2)
}

func TestBuildFilter_PriceBounds(t *testing.T) {
	min, max := 0.5, 2.0
	filter := buildFilter(models.ListingQuery{PriceMin: &min, PriceMax: &max})

	price, ok := filter["price_eth"].(bson.M)
	assert.True(t, ok)
	assert.Equal(t, 0.5, price["$gte"])
	assert.Equal(t, 2.0, price["$lte"])

	filter = buildFilter(models.ListingQuery{PriceMin: &min})
	price = filter["price_eth"].(bson.M)
	assert.Equal(t, 0.5, price["$gte"])
	_, hasMax := price["$lte"]
	assert.False(t, hasMax)
}

func TestBuildFilter_AuctionTristate(t *testing.T) {
	filter := buildFilter(models.ListingQuery{})
	_, has := filter["is_auction"]
	assert.False(t, has, "nil means no filter")

	yes := true
	filter = buildFilter(models.ListingQuery{IsAuction: &yes})
	assert.Equal(t, true, filter["is_auction"])

	no := false
	filter = buildFilter(models.ListingQuery{IsAuction: &no})
	assert.Equal(t, false, filter["is_auction"])
}

func TestBuildFilter_AttributesCombineWithAnd(t *testing.T) {
	filter := buildFilter(models.ListingQuery{Attributes: []models.TraitFilter{
		{TraitType: "background", Value: "gold"},
		{TraitType: "eyes", Value: "laser"},
	}})

	and, ok := filter["$and"].(bson.A)
	assert.True(t, ok)
	assert.Len(t, and, 2)
}

func TestEscapeRegex(t *testing.T) {
	assert.Equal(t, "dragon", escapeRegex("dragon"))
	assert.Equal(t, `\.\*\+`, escapeRegex(".*+"))
	assert.Equal(t, `a\(b\)c`, escapeRegex("a(b)c"))
}
