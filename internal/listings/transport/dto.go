package transport

import (
	"time"

	"campus_marketplace/internal/listings/domain"
)

// ProductSummary is the compact listing shape returned by search and
// discovery.
type ProductSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	PriceCents     int64     `json:"priceCents"`
	Category       string    `json:"category"`
	Condition      string    `json:"condition"`
	PickupLocation string    `json:"pickupLocation"`
	SellerID       string    `json:"sellerId"`
	SellerUsername string    `json:"sellerUsername"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	ViewCount      int       `json:"viewCount"`
	FavoriteCount  int       `json:"favoriteCount"`
	Negotiable     bool      `json:"negotiable"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ProductDetail is the full listing shown on the product page.
type ProductDetail struct {
	ProductSummary
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	ImageURLs   []string `json:"imageUrls"`
}

func ToSummary(l domain.Listing) ProductSummary {
	s := ProductSummary{
		ID:             l.ID.String(),
		Title:          l.Title,
		PriceCents:     l.PriceCents,
		Category:       string(l.Category),
		Condition:      string(l.Condition),
		PickupLocation: l.PickupLocation,
		SellerID:       l.SellerID.String(),
		SellerUsername: l.SellerUsername,
		ViewCount:      l.ViewCount,
		FavoriteCount:  l.FavoriteCount,
		Negotiable:     l.Negotiable,
		CreatedAt:      l.CreatedAt,
	}
	if len(l.ImageURLs) > 0 {
		s.ImageURL = l.ImageURLs[0]
	}
	return s
}

func ToSummaries(items []domain.Listing) []ProductSummary {
	out := make([]ProductSummary, len(items))
	for i, l := range items {
		out[i] = ToSummary(l)
	}
	return out
}

func ToDetail(l domain.Listing) ProductDetail {
	images := l.ImageURLs
	if images == nil {
		images = []string{}
	}
	return ProductDetail{
		ProductSummary: ToSummary(l),
		Description:    l.Description,
		Quantity:       l.Quantity,
		ImageURLs:      images,
	}
}
