// Package domain holds the listing record shared by search, discovery and
// view tracking, plus its enumerations.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category of a listing.
type Category string

const (
	CategoryTextbooks   Category = "TEXTBOOKS"
	CategoryBooks       Category = "BOOKS"
	CategoryElectronics Category = "ELECTRONICS"
	CategoryFurniture   Category = "FURNITURE"
	CategoryClothing    Category = "CLOTHING"
	CategorySports      Category = "SPORTS"
	CategoryStationery  Category = "STATIONERY"
	CategoryOther       Category = "OTHER"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryTextbooks, CategoryBooks, CategoryElectronics, CategoryFurniture,
	CategoryClothing, CategorySports, CategoryStationery, CategoryOther,
}

// Condition of the item being sold.
type Condition string

const (
	ConditionNew     Condition = "NEW"
	ConditionLikeNew Condition = "LIKE_NEW"
	ConditionGood    Condition = "GOOD"
	ConditionFair    Condition = "FAIR"
	ConditionPoor    Condition = "POOR"
)

// Conditions lists every valid condition.
var Conditions = []Condition{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor}

// ModerationStatus is the approval lifecycle of a listing.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "PENDING"
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationRejected ModerationStatus = "REJECTED"
)

// ParseCategory matches value case-insensitively.
func ParseCategory(value string) (Category, bool) {
	normalized := Category(strings.ToUpper(strings.TrimSpace(value)))
	for _, c := range Categories {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}

// ParseCondition matches value case-insensitively.
func ParseCondition(value string) (Condition, bool) {
	normalized := Condition(strings.ToUpper(strings.TrimSpace(value)))
	for _, c := range Conditions {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}

// Listing is a product offered on the marketplace. Listing management owns
// its lifecycle; this service only reads it and bumps ViewCount.
type Listing struct {
	ID               uuid.UUID
	UniversityID     uuid.UUID
	SellerID         uuid.UUID
	SellerUsername   string
	Title            string
	Description      string
	PriceCents       int64
	Category         Category
	Condition        Condition
	PickupLocation   string
	IsActive         bool
	ModerationStatus ModerationStatus
	ViewCount        int
	FavoriteCount    int
	Negotiable       bool
	Quantity         int
	ImageURLs        []string
	CreatedAt        time.Time
	// Relevance is the text-match score when the listing came from a text query.
	Relevance *float32
}

// IsVisible reports whether search and discovery may return the listing.
func (l Listing) IsVisible() bool {
	return l.IsActive && l.ModerationStatus == ModerationApproved
}

// SortField names a listing attribute that results can be ordered by.
type SortField string

const (
	SortFieldPrice         SortField = "price"
	SortFieldCreatedAt     SortField = "created_at"
	SortFieldViewCount     SortField = "view_count"
	SortFieldFavoriteCount SortField = "favorite_count"
	SortFieldID            SortField = "id"
)

// OrderTerm is one key of a composite ordering.
type OrderTerm struct {
	Field SortField
	Desc  bool
}
