package service

import (
	"context"

	"campus_marketplace/internal/listings/repository"
	"campus_marketplace/internal/listings/transport"

	"github.com/google/uuid"
)

// ViewRecorder is satisfied by the view tracker.
type ViewRecorder interface {
	RecordView(ctx context.Context, userID, productID uuid.UUID)
}

// Service serves the product detail page.
type Service struct {
	repo  repository.Repository
	views ViewRecorder
}

func New(repo repository.Repository, views ViewRecorder) *Service {
	return &Service{repo: repo, views: views}
}

// GetProduct returns a visible listing in tenantID and records the view in
// the background.
func (s *Service) GetProduct(ctx context.Context, tenantID, userID, productID uuid.UUID) (transport.ProductDetail, error) {
	listing, err := s.repo.GetVisibleByID(ctx, tenantID, productID)
	if err != nil {
		return transport.ProductDetail{}, err
	}

	if s.views != nil {
		s.views.RecordView(ctx, userID, productID)
	}
	return transport.ToDetail(listing), nil
}
