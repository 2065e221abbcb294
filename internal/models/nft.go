package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TraitFilter selects listings carrying a specific attribute value.
type TraitFilter struct {
	TraitType string `json:"trait_type" bson:"trait_type"`
	Value     string `json:"value"      bson:"value"`
}

// Attribute is one trait on a listed NFT.
type Attribute struct {
	TraitType string `json:"trait_type" bson:"trait_type"`
	Value     string `json:"value"      bson:"value"`
}

// NFT is a single marketplace listing stored in MongoDB.
type NFT struct {
	ID          primitive.ObjectID `json:"id"             bson:"_id,omitempty"`
	Name        string             `json:"name"           bson:"name"`
	Description string             `json:"description"    bson:"description"`
	PriceEth    float64            `json:"price_eth"      bson:"price_eth"`
	Category    string             `json:"category"       bson:"category"`
	CreatorID   string             `json:"creator_id"     bson:"creator_id"`
	OwnerID     string             `json:"owner_id"       bson:"owner_id"`
	IsAuction   bool               `json:"is_auction"     bson:"is_auction"`
	Attributes  []Attribute        `json:"attributes"     bson:"attributes"`
	MediaKey    string             `json:"media_key"      bson:"media_key"`
	Likes       int64              `json:"likes"          bson:"likes"`
	Views       int64              `json:"views"          bson:"views"`
	Placeholder bool               `json:"placeholder"    bson:"-"`
	CreatedAt   time.Time          `json:"created_at"     bson:"created_at"`
}

// Sort keys accepted by the listing query.
const (
	SortByCreatedAt = "created_at"
	SortByPrice     = "price_eth"
	SortByName      = "name"
	SortByLikes     = "likes"
	SortByViews     = "views"
)

// ListingQuery is the store-level shape of one executed search.
type ListingQuery struct {
	Text       string
	Category   string
	PriceMin   *float64
	PriceMax   *float64
	Creator    string
	IsAuction  *bool
	Attributes []TraitFilter
	SortBy     string
	SortDesc   bool
	Offset     int64
	Limit      int64
}

// CreateNFTRequest is the metadata part of POST /api/items.
type CreateNFTRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	PriceEth    string      `json:"price_eth"`
	Category    string      `json:"category"`
	IsAuction   bool        `json:"is_auction"`
	Attributes  []Attribute `json:"attributes"`
}
