package cache

import (
	"context"
	"time"

	"tiendita/backend/internal/domain"
)

type Cache interface {
	GetPrediction(ctx context.Context, key string) (*domain.Prediction, bool, error)
	SetPrediction(ctx context.Context, key string, value *domain.Prediction, ttl time.Duration) error
	GetROI(ctx context.Context, key string) (*domain.ROIStats, bool, error)
	SetROI(ctx context.Context, key string, value *domain.ROIStats, ttl time.Duration) error
	DeleteROI(ctx context.Context, key string) error
}

type NoopCache struct{}

func (NoopCache) GetPrediction(_ context.Context, _ string) (*domain.Prediction, bool, error) {
	return nil, false, nil
}

func (NoopCache) SetPrediction(_ context.Context, _ string, _ *domain.Prediction, _ time.Duration) error {
	return nil
}

func (NoopCache) GetROI(_ context.Context, _ string) (*domain.ROIStats, bool, error) {
	return nil, false, nil
}

func (NoopCache) SetROI(_ context.Context, _ string, _ *domain.ROIStats, _ time.Duration) error {
	return nil
}

func (NoopCache) DeleteROI(_ context.Context, _ string) error {
	return nil
}
