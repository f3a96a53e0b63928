package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format for sale dates. Daily sales are
// keyed by calendar date, never by timestamp.
const DateLayout = "2006-01-02"

type Seller struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone,omitempty"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
}

type Product struct {
	ID            string          `json:"id"`
	SellerID      string          `json:"seller_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int             `json:"stock"`
	IsPerishable  bool            `json:"is_perishable"`
	ShelfLifeDays int             `json:"shelf_life_days,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int             `json:"stock"`
	IsPerishable  bool            `json:"is_perishable"`
	ShelfLifeDays int             `json:"shelf_life_days"`
	ImageURL      string          `json:"image_url"`
}

// DailySale is the per-day financial record for one seller. Exactly one row
// exists per (seller, sale date). Derived fields (revenue, units, margin) are
// refreshed by Recompute whenever a detail changes; TotalInvestment is fixed
// at preparation time.
type DailySale struct {
	ID              string          `json:"id"`
	SellerID        string          `json:"seller_id"`
	SaleDate        string          `json:"sale_date"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	UnitsSold       int             `json:"units_sold"`
	UnitsLost       int             `json:"units_lost"`
	ProfitMargin    decimal.Decimal `json:"profit_margin"`
	IsClosed        bool            `json:"is_closed"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Details         []SaleDetail    `json:"details"`
}

// Profit returns revenue minus the investment fixed at preparation.
func (d *DailySale) Profit() decimal.Decimal {
	return d.TotalRevenue.Sub(d.TotalInvestment)
}

// Recompute refreshes the derived header fields and detail subtotals from the
// detail lines. TotalInvestment is left untouched.
func (d *DailySale) Recompute() {
	revenue := decimal.Zero
	sold := 0
	lost := 0
	for i := range d.Details {
		det := &d.Details[i]
		det.Subtotal = det.UnitPrice.Mul(decimal.NewFromInt(int64(det.QuantitySold)))
		revenue = revenue.Add(det.Subtotal)
		sold += det.QuantitySold
		lost += det.QuantityLost
	}
	d.TotalRevenue = revenue
	d.UnitsSold = sold
	d.UnitsLost = lost
	if revenue.IsPositive() {
		d.ProfitMargin = revenue.Sub(d.TotalInvestment).Div(revenue).Mul(decimal.NewFromInt(100)).Round(2)
	} else {
		d.ProfitMargin = decimal.Zero
	}
}

// SaleDetail is one product line inside a DailySale. Cost and price are
// snapshots taken at preparation time so later catalog edits never rewrite
// historical records.
type SaleDetail struct {
	ID               string          `json:"id"`
	DailySaleID      string          `json:"daily_sale_id"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	QuantityPrepared int             `json:"quantity_prepared"`
	QuantitySold     int             `json:"quantity_sold"`
	QuantityLost     int             `json:"quantity_lost"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
}

type PrepareItem struct {
	ProductID        string `json:"product_id"`
	QuantityPrepared int    `json:"quantity_prepared"`
}

type PrepareDayRequest struct {
	Items []PrepareItem `json:"items"`
	Notes string        `json:"notes,omitempty"`
}

type TrackProductRequest struct {
	ProductID    string `json:"product_id"`
	QuantitySold int    `json:"quantity_sold"`
	QuantityLost int    `json:"quantity_lost"`
}

type CloseWasteItem struct {
	ProductID string `json:"product_id"`
	Waste     int    `json:"waste"`
}

type CloseDayRequest struct {
	Items []CloseWasteItem `json:"items"`
	Notes string           `json:"notes,omitempty"`
}

type ROIStats struct {
	Investment decimal.Decimal `json:"investment"`
	Revenue    decimal.Decimal `json:"revenue"`
	NetProfit  decimal.Decimal `json:"net_profit"`
	ROI        decimal.Decimal `json:"roi"`
}

type Prediction struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Suggested   int     `json:"suggested"`
	Confidence  float64 `json:"confidence"`
}

// SaleSample is one historical sold-quantity observation used by the demand
// estimator. Rows arrive grouped by product, date descending.
type SaleSample struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	SaleDate     string `json:"sale_date"`
	QuantitySold int    `json:"quantity_sold"`
}

type InventoryRecord struct {
	ID                string          `json:"id"`
	SellerID          string          `json:"seller_id"`
	ProductID         string          `json:"product_id"`
	QuantityInitial   int             `json:"quantity_initial"`
	QuantityRemaining int             `json:"quantity_remaining"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	InvestmentAmount  decimal.Decimal `json:"investment_amount"`
	Status            string          `json:"status"`
	RecordedAt        time.Time       `json:"recorded_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	SellerID    string `json:"seller_id"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	SellerID string
	Email    string
}

type AuditLog struct {
	ID         string    `json:"id"`
	SellerID   string    `json:"seller_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	InventoryStatusActive  = "active"
	InventoryStatusSoldOut = "sold_out"
	InventoryStatusExpired = "expired"
	InventoryStatusClosed  = "closed"
)
