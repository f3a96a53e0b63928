package prediction

import (
	"context"
	"testing"
	"time"

	"tiendita/backend/internal/domain"
)

// fakeCache is a map-backed Cache so tests can observe prediction caching
// without a Redis instance.
type fakeCache struct {
	predictions map[string]*domain.Prediction
}

func newFakeCache() *fakeCache {
	return &fakeCache{predictions: make(map[string]*domain.Prediction)}
}

func (f *fakeCache) GetPrediction(_ context.Context, key string) (*domain.Prediction, bool, error) {
	pred, ok := f.predictions[key]
	return pred, ok, nil
}

func (f *fakeCache) SetPrediction(_ context.Context, key string, value *domain.Prediction, _ time.Duration) error {
	f.predictions[key] = value
	return nil
}

func (f *fakeCache) GetROI(_ context.Context, _ string) (*domain.ROIStats, bool, error) {
	return nil, false, nil
}

func (f *fakeCache) SetROI(_ context.Context, _ string, _ *domain.ROIStats, _ time.Duration) error {
	return nil
}

func (f *fakeCache) DeleteROI(_ context.Context, _ string) error {
	return nil
}

func sampleRun(productID string, quantities ...int) []domain.SaleSample {
	samples := make([]domain.SaleSample, 0, len(quantities))
	for _, qty := range quantities {
		samples = append(samples, domain.SaleSample{
			ProductID:    productID,
			ProductName:  "Producto " + productID,
			QuantitySold: qty,
		})
	}
	return samples
}

func TestPredictRequiresMinimumSamples(t *testing.T) {
	engine := NewEngine(nil, 0)

	pred := engine.Predict(context.Background(), "seller-1", time.Now(), sampleRun("p1", 10, 12))
	if pred != nil {
		t.Fatalf("expected nil with only 2 samples, got %+v", pred)
	}
}

func TestPredictNoSamples(t *testing.T) {
	engine := NewEngine(nil, 0)

	if pred := engine.Predict(context.Background(), "seller-1", time.Now(), nil); pred != nil {
		t.Fatalf("expected nil for empty history, got %+v", pred)
	}
}

func TestPredictCeilingOfMean(t *testing.T) {
	engine := NewEngine(nil, 0)

	pred := engine.Predict(context.Background(), "seller-1", time.Now(), sampleRun("p1", 3, 4, 4))
	if pred == nil {
		t.Fatalf("expected a prediction")
	}
	// mean 11/3 = 3.67 rounds up
	if pred.Suggested != 4 {
		t.Fatalf("expected suggested 4, got %d", pred.Suggested)
	}
	if pred.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", pred.Confidence)
	}
}

func TestPredictFiltersOutlierDays(t *testing.T) {
	engine := NewEngine(nil, 0)

	// One runaway day (100) among normal days. Q1=11, Q3=13, fence [8, 16].
	pred := engine.Predict(context.Background(), "seller-1", time.Now(), sampleRun("p1", 10, 12, 11, 100, 13))
	if pred == nil {
		t.Fatalf("expected a prediction")
	}
	if pred.Suggested != 12 {
		t.Fatalf("expected suggested 12 with outlier dropped, got %d", pred.Suggested)
	}
	if pred.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %f", pred.Confidence)
	}
}

func TestPredictFirstQualifyingProductWins(t *testing.T) {
	engine := NewEngine(nil, 0)

	samples := append(sampleRun("p1", 5, 6), sampleRun("p2", 8, 9, 10)...)
	pred := engine.Predict(context.Background(), "seller-1", time.Now(), samples)
	if pred == nil {
		t.Fatalf("expected a prediction")
	}
	if pred.ProductID != "p2" {
		t.Fatalf("expected p2 (first product with 3+ samples), got %s", pred.ProductID)
	}
	if pred.Suggested != 9 {
		t.Fatalf("expected suggested 9, got %d", pred.Suggested)
	}
}

func TestPredictServesCachedResult(t *testing.T) {
	cacheStore := newFakeCache()
	engine := NewEngine(cacheStore, time.Minute)
	today := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	first := engine.Predict(context.Background(), "seller-1", today, sampleRun("p1", 10, 10, 10))
	if first == nil || first.Suggested != 10 {
		t.Fatalf("expected suggested 10, got %+v", first)
	}

	// Different samples, same (seller, weekday): cached value wins.
	second := engine.Predict(context.Background(), "seller-1", today, sampleRun("p1", 50, 50, 50))
	if second == nil || second.Suggested != 10 {
		t.Fatalf("expected cached suggestion 10, got %+v", second)
	}

	// Another seller misses the cache.
	other := engine.Predict(context.Background(), "seller-2", today, sampleRun("p1", 50, 50, 50))
	if other == nil || other.Suggested != 50 {
		t.Fatalf("expected fresh suggestion 50 for other seller, got %+v", other)
	}
}
