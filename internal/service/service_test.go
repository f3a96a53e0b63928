package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tiendita/backend/internal/cache"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/prediction"
	"tiendita/backend/internal/store"
	"tiendita/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	estimator := prediction.NewEngine(cache.NoopCache{}, 5*time.Second)
	return New(repo, estimator, cache.NoopCache{}, time.Minute), repo
}

// newSellerContext registers a fresh seller so tests start without any sale
// history, and returns a context authenticated as that seller.
func newSellerContext(t *testing.T, repo *memory.Store, email string) context.Context {
	t.Helper()

	seller, err := repo.CreateSeller(context.Background(), domain.Seller{
		Email:        email,
		PasswordHash: "$2a$04$testhashtesthashtesthashte",
		Name:         "Test Seller",
	})
	if err != nil {
		t.Fatalf("create seller: %v", err)
	}
	return WithActor(context.Background(), domain.Actor{SellerID: seller.ID, Email: seller.Email})
}

func mustCreateProduct(t *testing.T, svc *Service, ctx context.Context, name string, cost, price string, perishable bool) domain.Product {
	t.Helper()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:         name,
		Category:     "comida",
		UnitCost:     decimal.RequireFromString(cost),
		SalePrice:    decimal.RequireFromString(price),
		Stock:        50,
		IsPerishable: perishable,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func TestPrepareDaySnapshotsCostAndPrice(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "prepare@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Arepa", "2.00", "4.00", false)

	sale, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 10}},
	})
	if err != nil {
		t.Fatalf("prepare day failed: %v", err)
	}

	if !sale.TotalInvestment.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected investment 20.00, got %s", sale.TotalInvestment)
	}
	if !sale.TotalRevenue.IsZero() {
		t.Fatalf("expected zero revenue before any tracking, got %s", sale.TotalRevenue)
	}
	if len(sale.Details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(sale.Details))
	}
	detail := sale.Details[0]
	if !detail.UnitCost.Equal(product.UnitCost) || !detail.UnitPrice.Equal(product.SalePrice) {
		t.Fatalf("expected cost/price snapshot %s/%s, got %s/%s", product.UnitCost, product.SalePrice, detail.UnitCost, detail.UnitPrice)
	}
	if detail.QuantitySold != 0 || detail.QuantityLost != 0 {
		t.Fatalf("expected fresh counts, got sold=%d lost=%d", detail.QuantitySold, detail.QuantityLost)
	}
}

func TestPrepareDayRecordsInventoryBatch(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "batch@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Pan de Bono", "1.00", "2.00", true)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 12}},
	}); err != nil {
		t.Fatalf("prepare day failed: %v", err)
	}

	records, err := svc.InventoryHistory(ctx, product.ID)
	if err != nil {
		t.Fatalf("inventory history failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 inventory record, got %d", len(records))
	}
	if records[0].QuantityInitial != 12 || records[0].Status != domain.InventoryStatusActive {
		t.Fatalf("unexpected batch record: %+v", records[0])
	}
	if !records[0].InvestmentAmount.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("expected investment amount 12.00, got %s", records[0].InvestmentAmount)
	}
}

func TestPrepareDayTwiceSameDateConflicts(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "twice@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Arepa", "2.00", "4.00", false)

	req := domain.PrepareDayRequest{Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 5}}}
	if _, err := svc.PrepareDay(ctx, req); err != nil {
		t.Fatalf("first prepare failed: %v", err)
	}
	if _, err := svc.PrepareDay(ctx, req); !errors.Is(err, store.ErrAlreadyPrepared) {
		t.Fatalf("expected ErrAlreadyPrepared, got %v", err)
	}
}

func TestPrepareDayUnknownProductLeavesNothingBehind(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "atomic@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Arepa", "2.00", "4.00", false)

	_, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{
			{ProductID: product.ID, QuantityPrepared: 5},
			{ProductID: "no-such-product", QuantityPrepared: 3},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sale, err := svc.TodaySale(ctx)
	if err != nil {
		t.Fatalf("today sale failed: %v", err)
	}
	if sale != nil {
		t.Fatalf("expected no sale after failed prepare, got %+v", sale)
	}
}

func TestTrackProductReplacesCountsAndRecomputes(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "track@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Arepa", "2.00", "4.00", false)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 10}},
	}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	if _, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: product.ID, QuantitySold: 3, QuantityLost: 1}); err != nil {
		t.Fatalf("first track failed: %v", err)
	}

	// Second call fully replaces the previous counts.
	sale, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: product.ID, QuantitySold: 10, QuantityLost: 0})
	if err != nil {
		t.Fatalf("second track failed: %v", err)
	}

	if sale.UnitsSold != 10 || sale.UnitsLost != 0 {
		t.Fatalf("expected units sold=10 lost=0, got sold=%d lost=%d", sale.UnitsSold, sale.UnitsLost)
	}
	if !sale.TotalRevenue.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected revenue 40.00, got %s", sale.TotalRevenue)
	}
	// investment 20, revenue 40 -> margin (40-20)/40*100 = 50
	if !sale.ProfitMargin.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected margin 50, got %s", sale.ProfitMargin)
	}

	// Repeating the call with identical counts leaves the sale unchanged.
	again, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: product.ID, QuantitySold: 10, QuantityLost: 0})
	if err != nil {
		t.Fatalf("repeated track failed: %v", err)
	}
	if again.UnitsSold != sale.UnitsSold || again.UnitsLost != sale.UnitsLost {
		t.Fatalf("expected unchanged units sold=%d lost=%d, got sold=%d lost=%d", sale.UnitsSold, sale.UnitsLost, again.UnitsSold, again.UnitsLost)
	}
	if !again.TotalRevenue.Equal(sale.TotalRevenue) || !again.ProfitMargin.Equal(sale.ProfitMargin) {
		t.Fatalf("expected unchanged totals, got revenue=%s margin=%s", again.TotalRevenue, again.ProfitMargin)
	}
}

func TestTrackProductOverPreparedRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "over@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Arepa", "2.00", "4.00", false)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 10}},
	}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	_, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: product.ID, QuantitySold: 8, QuantityLost: 3})
	if !errors.Is(err, store.ErrOverPrepared) {
		t.Fatalf("expected ErrOverPrepared, got %v", err)
	}
}

func TestTrackProductWithoutPrepare(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "noprep@test.dev")

	_, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: "anything", QuantitySold: 1})
	if !errors.Is(err, store.ErrNoActiveSale) {
		t.Fatalf("expected ErrNoActiveSale, got %v", err)
	}
}

func TestTrackProductNotInSale(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "notin@test.dev")
	prepared := mustCreateProduct(t, svc, ctx, "Arepa", "2.00", "4.00", false)
	other := mustCreateProduct(t, svc, ctx, "Cafe", "0.50", "1.25", false)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: prepared.ID, QuantityPrepared: 5}},
	}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	_, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: other.ID, QuantitySold: 1})
	if !errors.Is(err, store.ErrProductNotInSale) {
		t.Fatalf("expected ErrProductNotInSale, got %v", err)
	}
}

func TestCloseDayDerivesSoldFromWaste(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "close@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Empanada", "1.00", "2.50", true)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 10}},
	}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	// Live tracking earlier in the day; the closing count supersedes it.
	if _, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: product.ID, QuantitySold: 2}); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	sale, err := svc.CloseDay(ctx, domain.CloseDayRequest{
		Items: []domain.CloseWasteItem{{ProductID: product.ID, Waste: 3}},
		Notes: "lluvia toda la tarde",
	})
	if err != nil {
		t.Fatalf("close day failed: %v", err)
	}

	if !sale.IsClosed {
		t.Fatalf("expected sale to be closed")
	}
	if sale.Details[0].QuantitySold != 7 || sale.Details[0].QuantityLost != 3 {
		t.Fatalf("expected sold=7 lost=3, got sold=%d lost=%d", sale.Details[0].QuantitySold, sale.Details[0].QuantityLost)
	}
	if !sale.TotalRevenue.Equal(decimal.RequireFromString("17.50")) {
		t.Fatalf("expected revenue 17.50, got %s", sale.TotalRevenue)
	}

	// Perishable stock is zeroed and the batch record closed out.
	updated, err := repo.GetProduct(ctx, sale.SellerID, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if updated.Stock != 0 {
		t.Fatalf("expected perishable stock 0 after close, got %d", updated.Stock)
	}
	records, err := svc.InventoryHistory(ctx, product.ID)
	if err != nil {
		t.Fatalf("inventory history: %v", err)
	}
	if len(records) != 1 || records[0].Status != domain.InventoryStatusClosed || records[0].QuantityRemaining != 0 {
		t.Fatalf("expected closed batch record, got %+v", records)
	}
}

func TestCloseDayWasteExceedsPreparedAborts(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "waste@test.dev")
	first := mustCreateProduct(t, svc, ctx, "Empanada", "1.00", "2.50", false)
	second := mustCreateProduct(t, svc, ctx, "Jugo", "0.80", "1.75", false)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{
			{ProductID: first.ID, QuantityPrepared: 10},
			{ProductID: second.ID, QuantityPrepared: 5},
		},
	}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	_, err := svc.CloseDay(ctx, domain.CloseDayRequest{
		Items: []domain.CloseWasteItem{
			{ProductID: first.ID, Waste: 2},
			{ProductID: second.ID, Waste: 6},
		},
	})
	if !errors.Is(err, store.ErrWasteExceedsPrepared) {
		t.Fatalf("expected ErrWasteExceedsPrepared, got %v", err)
	}

	// Nothing was applied, the sale stays open with untouched counts.
	sale, err := svc.TodaySale(ctx)
	if err != nil {
		t.Fatalf("today sale failed: %v", err)
	}
	if sale == nil || sale.IsClosed {
		t.Fatalf("expected open sale after aborted close")
	}
	for _, detail := range sale.Details {
		if detail.QuantityLost != 0 {
			t.Fatalf("expected no waste recorded, got %+v", detail)
		}
	}
}

func TestCloseDayTwice(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "reclose@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Arepa", "2.00", "4.00", false)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 5}},
	}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if _, err := svc.CloseDay(ctx, domain.CloseDayRequest{}); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if _, err := svc.CloseDay(ctx, domain.CloseDayRequest{}); !errors.Is(err, store.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	if _, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: product.ID, QuantitySold: 1}); !errors.Is(err, store.ErrNoActiveSale) {
		t.Fatalf("expected ErrNoActiveSale after close, got %v", err)
	}
}

func TestROIAcrossSales(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "roi@test.dev")
	product := mustCreateProduct(t, svc, ctx, "Torta", "10.00", "15.00", false)

	if _, err := svc.PrepareDay(ctx, domain.PrepareDayRequest{
		Items: []domain.PrepareItem{{ProductID: product.ID, QuantityPrepared: 10}},
	}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if _, err := svc.TrackProduct(ctx, domain.TrackProductRequest{ProductID: product.ID, QuantitySold: 10}); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	stats, err := svc.ROI(ctx)
	if err != nil {
		t.Fatalf("roi failed: %v", err)
	}
	if !stats.Investment.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected investment 100.00, got %s", stats.Investment)
	}
	if !stats.Revenue.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected revenue 150.00, got %s", stats.Revenue)
	}
	if !stats.NetProfit.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected net profit 50.00, got %s", stats.NetProfit)
	}
	if !stats.ROI.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected roi 50, got %s", stats.ROI)
	}
}

func TestROIWithoutHistoryIsZero(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "noroi@test.dev")

	stats, err := svc.ROI(ctx)
	if err != nil {
		t.Fatalf("roi failed: %v", err)
	}
	if !stats.ROI.IsZero() || !stats.Investment.IsZero() {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestHistoryOrderedOldestFirst(t *testing.T) {
	svc, repo := newTestService()

	seeded, err := repo.GetSellerByEmail(context.Background(), "maria@campus.dev")
	if err != nil {
		t.Fatalf("seeded seller missing: %v", err)
	}
	ctx := WithActor(context.Background(), domain.Actor{SellerID: seeded.ID, Email: seeded.Email})

	sales, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(sales) != 4 {
		t.Fatalf("expected 4 seeded sales, got %d", len(sales))
	}
	for i := 1; i < len(sales); i++ {
		if sales[i-1].SaleDate >= sales[i].SaleDate {
			t.Fatalf("expected ascending dates, got %s before %s", sales[i-1].SaleDate, sales[i].SaleDate)
		}
	}
}

func TestPredictFromSeededWeekdayHistory(t *testing.T) {
	svc, repo := newTestService()

	seeded, err := repo.GetSellerByEmail(context.Background(), "maria@campus.dev")
	if err != nil {
		t.Fatalf("seeded seller missing: %v", err)
	}
	ctx := WithActor(context.Background(), domain.Actor{SellerID: seeded.ID, Email: seeded.Email})

	pred, err := svc.Predict(ctx)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if pred == nil {
		t.Fatalf("expected a prediction from 4 weeks of history")
	}
	// Seeded empanada sales on this weekday: 20, 22, 24, 21 -> ceil(21.75) = 22.
	if pred.ProductID != "p-empanada" {
		t.Fatalf("expected p-empanada, got %s", pred.ProductID)
	}
	if pred.Suggested != 22 {
		t.Fatalf("expected suggested 22, got %d", pred.Suggested)
	}
	if pred.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", pred.Confidence)
	}
}

func TestPredictWithoutHistoryReturnsNil(t *testing.T) {
	svc, repo := newTestService()
	ctx := newSellerContext(t, repo, "nopred@test.dev")

	pred, err := svc.Predict(ctx)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if pred != nil {
		t.Fatalf("expected nil prediction for fresh seller, got %+v", pred)
	}
}
