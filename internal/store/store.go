package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tiendita/backend/internal/domain"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("invalid request")
	ErrAlreadyPrepared      = errors.New("daily sale already prepared for this date")
	ErrNoActiveSale         = errors.New("no active daily sale for this date")
	ErrProductNotInSale     = errors.New("product was not prepared for this date")
	ErrOverPrepared         = errors.New("sold plus lost exceeds prepared quantity")
	ErrAlreadyClosed        = errors.New("daily sale already closed")
	ErrWasteExceedsPrepared = errors.New("waste exceeds prepared quantity")
	ErrSellerExists         = errors.New("seller already registered")
)

type Repository interface {
	CreateSeller(ctx context.Context, seller domain.Seller) (*domain.Seller, error)
	GetSellerByEmail(ctx context.Context, email string) (*domain.Seller, error)
	GetSellerByID(ctx context.Context, id string) (*domain.Seller, error)
	UpdateSellerLoginState(ctx context.Context, sellerID string, failedAttempts int, lockedUntil *time.Time) error

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, sellerID string, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, sellerID string) ([]domain.Product, error)
	ListMarketplaceProducts(ctx context.Context) ([]domain.Product, error)
	SetProductStock(ctx context.Context, sellerID string, productID string, qty int) error

	// CreateDailySale persists a header and all of its details atomically.
	// Returns ErrAlreadyPrepared when a sale already exists for the
	// (seller, date) pair; on any other failure nothing is persisted.
	CreateDailySale(ctx context.Context, sale domain.DailySale) (*domain.DailySale, error)
	GetDailySaleByDate(ctx context.Context, sellerID string, saleDate string) (*domain.DailySale, error)
	// TrackSaleDetail overwrites sold/lost on one detail of the open sale
	// for the date, recomputes the header and returns the updated sale.
	TrackSaleDetail(ctx context.Context, sellerID string, saleDate string, productID string, sold int, lost int) (*domain.DailySale, error)
	// CloseDailySale applies waste figures, derives sold = prepared - waste
	// for every listed detail, marks the sale closed and recomputes. The
	// whole close is atomic: one bad waste entry aborts everything.
	CloseDailySale(ctx context.Context, sellerID string, saleDate string, wastes []domain.CloseWasteItem, notes string) (*domain.DailySale, error)
	ListDailySales(ctx context.Context, sellerID string, limit int) ([]domain.DailySale, error)
	// SumSaleTotals returns lifetime investment and revenue sums across all
	// of the seller's daily sales.
	SumSaleTotals(ctx context.Context, sellerID string) (investment decimal.Decimal, revenue decimal.Decimal, err error)
	// ListWeekdaySamples returns sold quantities from closed-or-open sales
	// strictly before the given date whose weekday matches, ordered by
	// product then sale date descending, capped at limit rows.
	ListWeekdaySamples(ctx context.Context, sellerID string, weekday time.Weekday, before string, limit int) ([]domain.SaleSample, error)

	CreateInventoryRecord(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error)
	ListInventoryRecords(ctx context.Context, sellerID string, productID string, limit int) ([]domain.InventoryRecord, error)
	// CloseOutPerishable zeroes remaining quantity on the product's active
	// batches, marks them closed and sets the product stock to zero.
	CloseOutPerishable(ctx context.Context, sellerID string, productID string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, sellerID string, limit int) ([]domain.AuditLog, error)
}
