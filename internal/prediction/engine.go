package prediction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"tiendita/backend/internal/cache"
	"tiendita/backend/internal/domain"
)

// Engine suggests a preparation quantity for the current weekday from
// historical sold quantities. It is a bounded statistical heuristic: samples
// are filtered through an interquartile-range fence before averaging, so a
// single runaway day does not inflate the suggestion.
type Engine struct {
	cache      cache.Cache
	cacheTTL   time.Duration
	minSamples int
}

func NewEngine(cacheStore cache.Cache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Engine{
		cache:      cacheStore,
		cacheTTL:   cacheTTL,
		minSamples: 3,
	}
}

// Predict returns the first product with enough same-weekday history to
// qualify for a suggestion, or nil when no product has at least three
// samples. Samples must arrive grouped by product, newest first; grouping
// order decides which qualifying product wins.
func (e *Engine) Predict(ctx context.Context, sellerID string, today time.Time, samples []domain.SaleSample) *domain.Prediction {
	cacheKey := buildCacheKey(sellerID, today.Weekday())
	if cached, ok, err := e.cache.GetPrediction(ctx, cacheKey); err == nil && ok {
		return cached
	}

	type group struct {
		productID   string
		productName string
		quantities  []int
	}

	groups := make([]*group, 0, 8)
	index := make(map[string]*group, 8)
	for _, sample := range samples {
		g, exists := index[sample.ProductID]
		if !exists {
			g = &group{productID: sample.ProductID, productName: sample.ProductName}
			index[sample.ProductID] = g
			groups = append(groups, g)
		}
		g.quantities = append(g.quantities, sample.QuantitySold)
	}

	for _, g := range groups {
		if len(g.quantities) < e.minSamples {
			continue
		}

		filtered := iqrFilter(g.quantities)
		if len(filtered) == 0 {
			continue
		}

		sum := 0
		for _, qty := range filtered {
			sum += qty
		}
		suggested := int(math.Ceil(float64(sum) / float64(len(filtered))))
		confidence := float64(len(filtered)) / float64(len(g.quantities))

		pred := &domain.Prediction{
			ProductID:   g.productID,
			ProductName: g.productName,
			Suggested:   suggested,
			Confidence:  confidence,
		}
		_ = e.cache.SetPrediction(ctx, cacheKey, pred, e.cacheTTL)
		return pred
	}

	return nil
}

// iqrFilter drops samples outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Quartiles use
// the floor-index convention: Q1 at n/4, Q3 at 3n/4 of the ascending sort.
func iqrFilter(quantities []int) []int {
	sorted := make([]int, len(quantities))
	copy(sorted, quantities)
	sort.Ints(sorted)

	n := len(sorted)
	q1 := float64(sorted[n/4])
	q3 := float64(sorted[(3*n)/4])
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	kept := make([]int, 0, n)
	for _, qty := range quantities {
		if float64(qty) >= lower && float64(qty) <= upper {
			kept = append(kept, qty)
		}
	}
	return kept
}

func buildCacheKey(sellerID string, weekday time.Weekday) string {
	return fmt.Sprintf("tiendita:prediction:%s:%d", sellerID, int(weekday))
}
