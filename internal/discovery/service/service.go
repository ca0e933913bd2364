// Package service is the discovery engine: trending, recommended, similar,
// recently viewed and viewed-together product lists. Every read degrades to
// an empty list on failure.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/internal/listings/transport"
	"campus_marketplace/platform/apperr"
	"campus_marketplace/platform/cache"
	"campus_marketplace/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit        = 10
	DefaultSimilarLimit = 6
	MaxLimit            = 50

	// interestViews is how many recent distinct-product views feed the
	// recommendation interests; at most maxInterests categories are kept.
	interestViews = 20
	maxInterests  = 3

	coViewWindow = time.Hour
)

// ListingReader is the slice of the listing store discovery reads.
type ListingReader interface {
	Trending(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Listing, error)
	ListByCategory(ctx context.Context, tenantID uuid.UUID, category domain.Category, exclude *uuid.UUID, limit int) ([]domain.Listing, error)
	GetVisibleByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Listing, error)
	ListVisibleByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.Listing, error)
	TenantsWithVisibleListings(ctx context.Context) ([]uuid.UUID, error)
}

// ViewHistory is the view tracker's read side.
type ViewHistory interface {
	RecentlyViewed(ctx context.Context, userID, tenantID uuid.UUID, limit int) ([]domain.Listing, error)
	ViewedTogether(ctx context.Context, tenantID, productID uuid.UUID, window time.Duration, limit int) ([]uuid.UUID, error)
}

type Service struct {
	listings ListingReader
	views    ViewHistory
	cache    *cache.ResultCache
	log      *logger.Logger
}

func New(listings ListingReader, views ViewHistory, resultCache *cache.ResultCache, log *logger.Logger) *Service {
	return &Service{listings: listings, views: views, cache: resultCache, log: log}
}

// ClampLimit applies def to non-positive limits and caps at MaxLimit.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Trending returns the most viewed visible listings in tenantID, ties by
// favorites then recency.
func (s *Service) Trending(ctx context.Context, tenantID uuid.UUID, limit int) []transport.ProductSummary {
	items, err := s.trending(ctx, tenantID, ClampLimit(limit, DefaultLimit))
	if err != nil {
		return s.degrade(ctx, "trending", err)
	}
	return items
}

func (s *Service) trending(ctx context.Context, tenantID uuid.UUID, limit int) ([]transport.ProductSummary, error) {
	items, _, err := cache.GetOrCompute(ctx, s.cache, cache.NamespaceTrending, trendingKey(tenantID, limit),
		func(ctx context.Context) ([]transport.ProductSummary, error) {
			return s.computeTrending(ctx, tenantID, limit)
		})
	return items, err
}

func (s *Service) computeTrending(ctx context.Context, tenantID uuid.UUID, limit int) ([]transport.ProductSummary, error) {
	listings, err := s.listings.Trending(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return transport.ToSummaries(listings), nil
}

func trendingKey(tenantID uuid.UUID, limit int) string {
	return cache.Key(tenantID.String(), strconv.Itoa(limit))
}

// Recommended picks listings from the categories the user viewed most
// recently. Without view history it is exactly Trending. When the interest
// categories hold fewer than limit listings the result is short; it is not
// backfilled.
func (s *Service) Recommended(ctx context.Context, userID, tenantID uuid.UUID, limit int) []transport.ProductSummary {
	limit = ClampLimit(limit, DefaultLimit)
	key := cache.Key(userID.String(), tenantID.String(), strconv.Itoa(limit))

	items, _, err := cache.GetOrCompute(ctx, s.cache, cache.NamespaceRecommended, key,
		func(ctx context.Context) ([]transport.ProductSummary, error) {
			return s.computeRecommended(ctx, userID, tenantID, limit)
		})
	if err != nil {
		return s.degrade(ctx, "recommended", err)
	}
	return items
}

func (s *Service) computeRecommended(ctx context.Context, userID, tenantID uuid.UUID, limit int) ([]transport.ProductSummary, error) {
	recent, err := s.views.RecentlyViewed(ctx, userID, tenantID, interestViews)
	if err != nil {
		return nil, err
	}

	interests := InterestCategories(recent, maxInterests)
	if len(interests) == 0 {
		return s.trending(ctx, tenantID, limit)
	}

	perCategory := (limit + len(interests) - 1) / len(interests)
	buckets := make([][]domain.Listing, len(interests))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range interests {
		g.Go(func() error {
			items, err := s.listings.ListByCategory(gctx, tenantID, category, nil, perCategory)
			buckets[i] = items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]domain.Listing, 0, limit)
	for _, bucket := range buckets {
		merged = append(merged, bucket...)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return transport.ToSummaries(merged), nil
}

// InterestCategories returns up to max distinct categories of viewed, in
// the order first seen.
func InterestCategories(viewed []domain.Listing, max int) []domain.Category {
	seen := make(map[domain.Category]struct{}, max)
	out := make([]domain.Category, 0, max)
	for _, l := range viewed {
		if len(out) == max {
			break
		}
		if _, ok := seen[l.Category]; ok {
			continue
		}
		seen[l.Category] = struct{}{}
		out = append(out, l.Category)
	}
	return out
}

// Similar returns other visible listings in the target's category, newest
// first. A missing or hidden target yields an empty list.
func (s *Service) Similar(ctx context.Context, tenantID, productID uuid.UUID, limit int) []transport.ProductSummary {
	limit = ClampLimit(limit, DefaultSimilarLimit)
	key := cache.Key(tenantID.String(), productID.String(), strconv.Itoa(limit))

	items, _, err := cache.GetOrCompute(ctx, s.cache, cache.NamespaceSimilar, key,
		func(ctx context.Context) ([]transport.ProductSummary, error) {
			target, err := s.listings.GetVisibleByID(ctx, tenantID, productID)
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					return []transport.ProductSummary{}, nil
				}
				return nil, err
			}
			listings, err := s.listings.ListByCategory(ctx, tenantID, target.Category, &target.ID, limit)
			if err != nil {
				return nil, err
			}
			return transport.ToSummaries(listings), nil
		})
	if err != nil {
		return s.degrade(ctx, "similar", err)
	}
	return items
}

// RecentlyViewed returns the user's latest distinct viewed listings.
func (s *Service) RecentlyViewed(ctx context.Context, userID, tenantID uuid.UUID, limit int) []transport.ProductSummary {
	limit = ClampLimit(limit, DefaultLimit)
	key := cache.Key(userID.String(), tenantID.String(), strconv.Itoa(limit))

	items, _, err := cache.GetOrCompute(ctx, s.cache, cache.NamespaceRecentlyViewed, key,
		func(ctx context.Context) ([]transport.ProductSummary, error) {
			listings, err := s.views.RecentlyViewed(ctx, userID, tenantID, limit)
			if err != nil {
				return nil, err
			}
			return transport.ToSummaries(listings), nil
		})
	if err != nil {
		return s.degrade(ctx, "recently-viewed", err)
	}
	return items
}

// ViewedTogether returns listings that viewers of productID also viewed
// within an hour, most co-viewed first.
func (s *Service) ViewedTogether(ctx context.Context, tenantID, productID uuid.UUID, limit int) []transport.ProductSummary {
	limit = ClampLimit(limit, DefaultSimilarLimit)

	ids, err := s.views.ViewedTogether(ctx, tenantID, productID, coViewWindow, limit)
	if err != nil {
		return s.degrade(ctx, "viewed-together", err)
	}
	if len(ids) == 0 {
		return []transport.ProductSummary{}
	}

	listings, err := s.listings.ListVisibleByIDs(ctx, tenantID, ids)
	if err != nil {
		return s.degrade(ctx, "viewed-together", err)
	}

	byID := make(map[uuid.UUID]domain.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}
	ordered := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return transport.ToSummaries(ordered)
}

// TenantsToWarm lists the tenants whose trending cache is worth refreshing.
func (s *Service) TenantsToWarm(ctx context.Context) ([]uuid.UUID, error) {
	return s.listings.TenantsWithVisibleListings(ctx)
}

// WarmTrending recomputes the default trending list and overwrites its cache
// entry.
func (s *Service) WarmTrending(ctx context.Context, tenantID uuid.UUID) error {
	items, err := s.computeTrending(ctx, tenantID, DefaultLimit)
	if err != nil {
		return err
	}
	return cache.Put(ctx, s.cache, cache.NamespaceTrending, trendingKey(tenantID, DefaultLimit), items)
}

func (s *Service) degrade(ctx context.Context, op string, err error) []transport.ProductSummary {
	if !errors.Is(err, context.Canceled) {
		s.log.WithContext(ctx).DatabaseError("discovery."+op, err)
	}
	return []transport.ProductSummary{}
}
