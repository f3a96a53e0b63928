package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tiendita/backend/internal/cache"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/prediction"
	"tiendita/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	estimator  *prediction.Engine
	cacheStore cache.Cache
	roiTTL     time.Duration
}

func New(repo store.Repository, estimator *prediction.Engine, cacheStore cache.Cache, roiTTL time.Duration) *Service {
	if cacheStore == nil {
		cacheStore = cache.NoopCache{}
	}
	if roiTTL <= 0 {
		roiTTL = time.Minute
	}

	return &Service{
		repo:       repo,
		estimator:  estimator,
		cacheStore: cacheStore,
		roiTTL:     roiTTL,
	}
}

func (s *Service) sellerID(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.SellerID == "" {
		return "", errors.New("seller authentication required")
	}
	return actor.SellerID, nil
}

func today() string {
	return time.Now().UTC().Format(domain.DateLayout)
}

// PrepareDay declares the products and quantities the seller takes out for
// today. Cost and price are snapshotted from the catalog, the investment sum
// is fixed, and the header plus all details are persisted in one atomic
// write. One sale per seller per calendar date.
func (s *Service) PrepareDay(ctx context.Context, req domain.PrepareDayRequest) (*domain.DailySale, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", store.ErrValidation)
	}

	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, fmt.Errorf("%w: product_id is required", store.ErrValidation)
		}
		if item.QuantityPrepared < 1 {
			return nil, fmt.Errorf("%w: quantity_prepared must be at least 1 for product %s", store.ErrValidation, item.ProductID)
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("%w: duplicate product %s", store.ErrValidation, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	saleDate := today()
	now := time.Now().UTC()
	sale := domain.DailySale{
		ID:              uuid.NewString(),
		SellerID:        sellerID,
		SaleDate:        saleDate,
		TotalInvestment: decimal.Zero,
		TotalRevenue:    decimal.Zero,
		ProfitMargin:    decimal.Zero,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
		Details:         make([]domain.SaleDetail, 0, len(req.Items)),
	}

	for _, item := range req.Items {
		product, err := s.repo.GetProduct(ctx, sellerID, item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
			}
			return nil, err
		}

		investment := product.UnitCost.Mul(decimal.NewFromInt(int64(item.QuantityPrepared)))
		sale.TotalInvestment = sale.TotalInvestment.Add(investment)
		sale.Details = append(sale.Details, domain.SaleDetail{
			ID:               uuid.NewString(),
			DailySaleID:      sale.ID,
			ProductID:        product.ID,
			ProductName:      product.Name,
			QuantityPrepared: item.QuantityPrepared,
			UnitCost:         product.UnitCost,
			UnitPrice:        product.SalePrice,
			Subtotal:         decimal.Zero,
		})
	}

	created, err := s.repo.CreateDailySale(ctx, sale)
	if err != nil {
		return nil, err
	}

	for _, detail := range created.Details {
		_, err := s.repo.CreateInventoryRecord(ctx, domain.InventoryRecord{
			ID:                uuid.NewString(),
			SellerID:          sellerID,
			ProductID:         detail.ProductID,
			QuantityInitial:   detail.QuantityPrepared,
			QuantityRemaining: detail.QuantityPrepared,
			UnitCost:          detail.UnitCost,
			InvestmentAmount:  detail.UnitCost.Mul(decimal.NewFromInt(int64(detail.QuantityPrepared))),
			Status:            domain.InventoryStatusActive,
			RecordedAt:        now,
		})
		if err != nil {
			log.Printf("[service] WARN: failed to record inventory batch product=%s: %v", detail.ProductID, err)
		}
	}

	s.invalidateROI(ctx, sellerID)
	s.logAudit(ctx, sellerID, "sale_prepare", "daily_sale", created.ID, fmt.Sprintf("date=%s,items=%d,investment=%s", saleDate, len(created.Details), created.TotalInvestment))
	return created, nil
}

// TrackProduct overwrites sold and lost counts for one prepared product of
// today's open sale. Calls fully replace prior counts; sold plus lost can
// never exceed the prepared allotment.
func (s *Service) TrackProduct(ctx context.Context, req domain.TrackProductRequest) (*domain.DailySale, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.ProductID) == "" {
		return nil, fmt.Errorf("%w: product_id is required", store.ErrValidation)
	}
	if req.QuantitySold < 0 || req.QuantityLost < 0 {
		return nil, fmt.Errorf("%w: quantities must not be negative", store.ErrValidation)
	}

	updated, err := s.repo.TrackSaleDetail(ctx, sellerID, today(), req.ProductID, req.QuantitySold, req.QuantityLost)
	if err != nil {
		return nil, err
	}

	s.invalidateROI(ctx, sellerID)
	s.logAudit(ctx, sellerID, "sale_track", "daily_sale", updated.ID, fmt.Sprintf("product=%s,sold=%d,lost=%d", req.ProductID, req.QuantitySold, req.QuantityLost))
	return updated, nil
}

// CloseDay finalizes today's sale. Every waste entry is validated against the
// prepared allotment before anything is written; for each listed product the
// sold quantity becomes prepared minus waste, superseding any live tracking
// done earlier in the day. Perishable products are closed out in the stock
// ledger afterwards.
func (s *Service) CloseDay(ctx context.Context, req domain.CloseDayRequest) (*domain.DailySale, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, fmt.Errorf("%w: product_id is required", store.ErrValidation)
		}
		if item.Waste < 0 {
			return nil, fmt.Errorf("%w: waste must not be negative for product %s", store.ErrValidation, item.ProductID)
		}
	}

	updated, err := s.repo.CloseDailySale(ctx, sellerID, today(), req.Items, strings.TrimSpace(req.Notes))
	if err != nil {
		return nil, err
	}

	for _, detail := range updated.Details {
		product, err := s.repo.GetProduct(ctx, sellerID, detail.ProductID)
		if err != nil {
			log.Printf("[service] WARN: close-out lookup failed product=%s: %v", detail.ProductID, err)
			continue
		}
		if !product.IsPerishable {
			continue
		}
		if err := s.repo.CloseOutPerishable(ctx, sellerID, detail.ProductID); err != nil {
			log.Printf("[service] WARN: perishable close-out failed product=%s: %v", detail.ProductID, err)
		}
	}

	s.invalidateROI(ctx, sellerID)
	s.logAudit(ctx, sellerID, "sale_close", "daily_sale", updated.ID, fmt.Sprintf("date=%s,revenue=%s,margin=%s", updated.SaleDate, updated.TotalRevenue, updated.ProfitMargin))
	return updated, nil
}

// TodaySale returns today's sale with details, or nil when the seller has not
// prepared yet.
func (s *Service) TodaySale(ctx context.Context) (*domain.DailySale, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}

	sale, err := s.repo.GetDailySaleByDate(ctx, sellerID, today())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sale, nil
}

// ROI aggregates lifetime investment and revenue across every daily sale of
// the seller. Results are cached briefly and invalidated on any sale write.
func (s *Service) ROI(ctx context.Context) (domain.ROIStats, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return domain.ROIStats{}, err
	}

	key := roiCacheKey(sellerID)
	if cached, ok, err := s.cacheStore.GetROI(ctx, key); err == nil && ok {
		return *cached, nil
	}

	investment, revenue, err := s.repo.SumSaleTotals(ctx, sellerID)
	if err != nil {
		return domain.ROIStats{}, err
	}

	netProfit := revenue.Sub(investment)
	roi := decimal.Zero
	if investment.IsPositive() {
		roi = netProfit.Div(investment).Mul(decimal.NewFromInt(100)).Round(2)
	}

	stats := domain.ROIStats{
		Investment: investment,
		Revenue:    revenue,
		NetProfit:  netProfit,
		ROI:        roi,
	}
	_ = s.cacheStore.SetROI(ctx, key, &stats, s.roiTTL)
	return stats, nil
}

// History returns up to the 30 most recent daily sale headers, oldest first.
func (s *Service) History(ctx context.Context) ([]domain.DailySale, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDailySales(ctx, sellerID, 30)
}

// Predict suggests a preparation quantity for today based on same-weekday
// history. Returns nil when no product has enough samples.
func (s *Service) Predict(ctx context.Context) (*domain.Prediction, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	samples, err := s.repo.ListWeekdaySamples(ctx, sellerID, now.Weekday(), now.Format(domain.DateLayout), 100)
	if err != nil {
		return nil, err
	}
	return s.estimator.Predict(ctx, sellerID, now, samples), nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" {
		return domain.Product{}, fmt.Errorf("%w: name and category are required", store.ErrValidation)
	}
	if req.UnitCost.IsNegative() || req.SalePrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: unit_cost and sale_price must not be negative", store.ErrValidation)
	}
	if req.Stock < 0 || req.ShelfLifeDays < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock and shelf_life_days must not be negative", store.ErrValidation)
	}

	product := domain.Product{
		ID:            uuid.NewString(),
		SellerID:      sellerID,
		Name:          req.Name,
		Description:   strings.TrimSpace(req.Description),
		Category:      req.Category,
		UnitCost:      req.UnitCost,
		SalePrice:     req.SalePrice,
		Stock:         req.Stock,
		IsPerishable:  req.IsPerishable,
		ShelfLifeDays: req.ShelfLifeDays,
		ImageURL:      strings.TrimSpace(req.ImageURL),
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, sellerID, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%s,stock=%d", created.Name, created.SalePrice, created.Stock))
	return *created, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, sellerID)
}

// Marketplace lists active products across all sellers for the public browse
// surface. No authentication required.
func (s *Service) Marketplace(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListMarketplaceProducts(ctx)
}

// InventoryHistory returns the batch records for one of the seller's
// products, newest first.
func (s *Service) InventoryHistory(ctx context.Context, productID string) ([]domain.InventoryRecord, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetProduct(ctx, sellerID, productID); err != nil {
		return nil, err
	}
	return s.repo.ListInventoryRecords(ctx, sellerID, productID, 100)
}

// AuditLogs returns the seller's most recent audit entries, newest first.
func (s *Service) AuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	sellerID, err := s.sellerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, sellerID, limit)
}

func (s *Service) invalidateROI(ctx context.Context, sellerID string) {
	if err := s.cacheStore.DeleteROI(ctx, roiCacheKey(sellerID)); err != nil {
		log.Printf("[service] WARN: failed to invalidate roi cache seller=%s: %v", sellerID, err)
	}
}

func (s *Service) logAudit(ctx context.Context, sellerID string, action string, entityType string, entityID string, detail string) {
	entry := domain.AuditLog{
		ID:         uuid.NewString(),
		SellerID:   sellerID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}

func roiCacheKey(sellerID string) string {
	return "tiendita:roi:" + sellerID
}
