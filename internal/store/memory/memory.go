package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

type Store struct {
	mu               sync.RWMutex
	sellersByID      map[string]domain.Seller
	sellerIDByEmail  map[string]string
	productsByID     map[string]domain.Product
	salesByID        map[string]domain.DailySale
	saleIDByDateKey  map[string]string
	inventoryRecords map[string][]domain.InventoryRecord
	auditLogs        []domain.AuditLog
}

// seedSeller builds the demo seller account for dev mode. The password comes
// from SEED_SELLER_PASSWORD; a hardcoded dev default is used with a warning
// when unset. Production deployments use PostgreSQL (DATABASE_URL) and never
// hit this path.
func seedSeller() domain.Seller {
	password := envOr("SEED_SELLER_PASSWORD", "vendedora123")
	if os.Getenv("SEED_SELLER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev seller credentials. Set SEED_SELLER_PASSWORD to override.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}

	return domain.Seller{
		ID:           "a4f7c9d2-1b3e-4c5d-8e6f-0123456789ab",
		Email:        "maria@campus.dev",
		PasswordHash: string(hash),
		Name:         "Maria Tiendita",
		Phone:        "300-555-0101",
		CreatedAt:    time.Now().UTC(),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	seller := seedSeller()
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: "p-empanada", SellerID: seller.ID, Name: "Empanada de Pollo", Category: "comida", UnitCost: dec("1.20"), SalePrice: dec("2.50"), Stock: 40, IsPerishable: true, ShelfLifeDays: 1, IsActive: true, CreatedAt: now},
		{ID: "p-jugo", SellerID: seller.ID, Name: "Jugo de Naranja", Category: "bebida", UnitCost: dec("0.80"), SalePrice: dec("1.75"), Stock: 30, IsPerishable: true, ShelfLifeDays: 2, IsActive: true, CreatedAt: now},
		{ID: "p-brownie", SellerID: seller.ID, Name: "Brownie de Chocolate", Category: "postre", UnitCost: dec("0.90"), SalePrice: dec("2.00"), Stock: 25, IsPerishable: false, ShelfLifeDays: 7, IsActive: true, CreatedAt: now},
		{ID: "p-sandwich", SellerID: seller.ID, Name: "Sandwich Mixto", Category: "comida", UnitCost: dec("1.50"), SalePrice: dec("3.25"), Stock: 20, IsPerishable: true, ShelfLifeDays: 1, IsActive: true, CreatedAt: now},
		{ID: "p-agua", SellerID: seller.ID, Name: "Agua Botella 600ml", Category: "bebida", UnitCost: dec("0.40"), SalePrice: dec("1.00"), Stock: 60, IsPerishable: false, ShelfLifeDays: 0, IsActive: true, CreatedAt: now},
		{ID: "p-galletas", SellerID: seller.ID, Name: "Galletas de Avena", Category: "postre", UnitCost: dec("0.60"), SalePrice: dec("1.50"), Stock: 35, IsPerishable: false, ShelfLifeDays: 14, IsActive: true, CreatedAt: now},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	s := &Store{
		sellersByID:      map[string]domain.Seller{seller.ID: seller},
		sellerIDByEmail:  map[string]string{seller.Email: seller.ID},
		productsByID:     productMap,
		salesByID:        make(map[string]domain.DailySale),
		saleIDByDateKey:  make(map[string]string),
		inventoryRecords: make(map[string][]domain.InventoryRecord),
		auditLogs:        make([]domain.AuditLog, 0, 64),
	}

	s.seedHistory(seller.ID, now)
	return s
}

// seedHistory inserts four closed weekly sales on today's weekday so the
// demand estimator has something to chew on in demo mode.
func (s *Store) seedHistory(sellerID string, now time.Time) {
	soldEmpanadas := []int{20, 22, 24, 21}
	soldJugos := []int{10, 12, 11, 13}

	for week := 1; week <= 4; week++ {
		day := now.AddDate(0, 0, -7*week)
		saleDate := day.Format(domain.DateLayout)

		sale := domain.DailySale{
			ID:        uuid.NewString(),
			SellerID:  sellerID,
			SaleDate:  saleDate,
			IsClosed:  true,
			CreatedAt: day,
			UpdatedAt: day,
		}
		details := []domain.SaleDetail{
			{
				ID: uuid.NewString(), DailySaleID: sale.ID,
				ProductID: "p-empanada", ProductName: "Empanada de Pollo",
				QuantityPrepared: 25, QuantitySold: soldEmpanadas[week-1], QuantityLost: 25 - soldEmpanadas[week-1],
				UnitCost: dec("1.20"), UnitPrice: dec("2.50"),
			},
			{
				ID: uuid.NewString(), DailySaleID: sale.ID,
				ProductID: "p-jugo", ProductName: "Jugo de Naranja",
				QuantityPrepared: 15, QuantitySold: soldJugos[week-1], QuantityLost: 15 - soldJugos[week-1],
				UnitCost: dec("0.80"), UnitPrice: dec("1.75"),
			},
		}
		sale.Details = details
		sale.TotalInvestment = dec("1.20").Mul(decimal.NewFromInt(25)).Add(dec("0.80").Mul(decimal.NewFromInt(15)))
		sale.Recompute()

		s.salesByID[sale.ID] = sale
		s.saleIDByDateKey[mapKey(sellerID, saleDate)] = sale.ID
	}
}

func dec(val string) decimal.Decimal {
	return decimal.RequireFromString(val)
}

func mapKey(sellerID string, suffix string) string {
	return sellerID + "|" + suffix
}

func (s *Store) CreateSeller(_ context.Context, seller domain.Seller) (*domain.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(seller.Email))
	if email == "" || seller.PasswordHash == "" || seller.Name == "" {
		return nil, store.ErrValidation
	}
	if _, exists := s.sellerIDByEmail[email]; exists {
		return nil, store.ErrSellerExists
	}

	seller.Email = email
	if seller.ID == "" {
		seller.ID = uuid.NewString()
	}
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = time.Now().UTC()
	}

	s.sellersByID[seller.ID] = seller
	s.sellerIDByEmail[email] = seller.ID
	created := seller
	return &created, nil
}

func (s *Store) GetSellerByEmail(_ context.Context, email string) (*domain.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.sellerIDByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !exists {
		return nil, store.ErrNotFound
	}
	seller := s.sellersByID[id]
	return &seller, nil
}

func (s *Store) GetSellerByID(_ context.Context, id string) (*domain.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seller, exists := s.sellersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &seller, nil
}

func (s *Store) UpdateSellerLoginState(_ context.Context, sellerID string, failedAttempts int, lockedUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seller, exists := s.sellersByID[sellerID]
	if !exists {
		return store.ErrNotFound
	}
	seller.FailedLoginAttempts = failedAttempts
	seller.LockedUntil = lockedUntil
	s.sellersByID[sellerID] = seller
	return nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SellerID == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrValidation
	}
	if product.UnitCost.IsNegative() || product.SalePrice.IsNegative() || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, sellerID string, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[productID]
	if !exists || product.SellerID != sellerID {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) ListProducts(_ context.Context, sellerID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if p.SellerID != sellerID {
			continue
		}
		products = append(products, p)
	}
	sortProducts(products)
	return products, nil
}

func (s *Store) ListMarketplaceProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if !p.IsActive {
			continue
		}
		products = append(products, p)
	}
	sortProducts(products)
	return products, nil
}

func (s *Store) SetProductStock(_ context.Context, sellerID string, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists || product.SellerID != sellerID {
		return store.ErrNotFound
	}
	if qty < 0 {
		return store.ErrValidation
	}
	product.Stock = qty
	s.productsByID[productID] = product
	return nil
}

func (s *Store) CreateDailySale(_ context.Context, sale domain.DailySale) (*domain.DailySale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.SellerID == "" || sale.SaleDate == "" || len(sale.Details) == 0 {
		return nil, store.ErrValidation
	}
	key := mapKey(sale.SellerID, sale.SaleDate)
	if _, exists := s.saleIDByDateKey[key]; exists {
		return nil, store.ErrAlreadyPrepared
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}

	stored := cloneSale(sale)
	s.salesByID[sale.ID] = stored
	s.saleIDByDateKey[key] = sale.ID

	created := cloneSale(stored)
	return &created, nil
}

func (s *Store) GetDailySaleByDate(_ context.Context, sellerID string, saleDate string) (*domain.DailySale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.saleIDByDateKey[mapKey(sellerID, saleDate)]
	if !exists {
		return nil, store.ErrNotFound
	}
	sale := cloneSale(s.salesByID[id])
	return &sale, nil
}

func (s *Store) TrackSaleDetail(_ context.Context, sellerID string, saleDate string, productID string, sold int, lost int) (*domain.DailySale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.saleIDByDateKey[mapKey(sellerID, saleDate)]
	if !exists {
		return nil, store.ErrNoActiveSale
	}
	sale := s.salesByID[id]
	if sale.IsClosed {
		return nil, store.ErrNoActiveSale
	}

	detailIdx := -1
	for i := range sale.Details {
		if sale.Details[i].ProductID == productID {
			detailIdx = i
			break
		}
	}
	if detailIdx == -1 {
		return nil, store.ErrProductNotInSale
	}

	detail := &sale.Details[detailIdx]
	if sold+lost > detail.QuantityPrepared {
		return nil, store.ErrOverPrepared
	}

	updated := cloneSale(sale)
	updated.Details[detailIdx].QuantitySold = sold
	updated.Details[detailIdx].QuantityLost = lost
	updated.Recompute()
	updated.UpdatedAt = time.Now().UTC()

	s.salesByID[id] = cloneSale(updated)
	return &updated, nil
}

func (s *Store) CloseDailySale(_ context.Context, sellerID string, saleDate string, wastes []domain.CloseWasteItem, notes string) (*domain.DailySale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.saleIDByDateKey[mapKey(sellerID, saleDate)]
	if !exists {
		return nil, store.ErrNoActiveSale
	}
	sale := s.salesByID[id]
	if sale.IsClosed {
		return nil, store.ErrAlreadyClosed
	}

	detailIdxByProduct := make(map[string]int, len(sale.Details))
	for i := range sale.Details {
		detailIdxByProduct[sale.Details[i].ProductID] = i
	}

	// Validate every waste entry before touching anything.
	for _, waste := range wastes {
		idx, inSale := detailIdxByProduct[waste.ProductID]
		if !inSale {
			continue
		}
		if waste.Waste > sale.Details[idx].QuantityPrepared {
			return nil, store.ErrWasteExceedsPrepared
		}
	}

	updated := cloneSale(sale)
	for _, waste := range wastes {
		idx, inSale := detailIdxByProduct[waste.ProductID]
		if !inSale {
			continue
		}
		detail := &updated.Details[idx]
		detail.QuantityLost = waste.Waste
		detail.QuantitySold = detail.QuantityPrepared - waste.Waste
	}
	updated.IsClosed = true
	if notes != "" {
		updated.Notes = notes
	}
	updated.Recompute()
	updated.UpdatedAt = time.Now().UTC()

	s.salesByID[id] = cloneSale(updated)
	return &updated, nil
}

func (s *Store) ListDailySales(_ context.Context, sellerID string, limit int) ([]domain.DailySale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.DailySale, 0, 32)
	for _, sale := range s.salesByID {
		if sale.SellerID != sellerID {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}

	slices.SortFunc(sales, func(a, b domain.DailySale) int {
		return cmpString(a.SaleDate, b.SaleDate)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[len(sales)-limit:]
	}
	return sales, nil
}

func (s *Store) SumSaleTotals(_ context.Context, sellerID string) (decimal.Decimal, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	investment := decimal.Zero
	revenue := decimal.Zero
	for _, sale := range s.salesByID {
		if sale.SellerID != sellerID {
			continue
		}
		investment = investment.Add(sale.TotalInvestment)
		revenue = revenue.Add(sale.TotalRevenue)
	}
	return investment, revenue, nil
}

func (s *Store) ListWeekdaySamples(_ context.Context, sellerID string, weekday time.Weekday, before string, limit int) ([]domain.SaleSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := make([]domain.SaleSample, 0, 64)
	for _, sale := range s.salesByID {
		if sale.SellerID != sellerID || sale.SaleDate >= before {
			continue
		}
		day, err := time.Parse(domain.DateLayout, sale.SaleDate)
		if err != nil || day.Weekday() != weekday {
			continue
		}
		for _, detail := range sale.Details {
			samples = append(samples, domain.SaleSample{
				ProductID:    detail.ProductID,
				ProductName:  detail.ProductName,
				SaleDate:     sale.SaleDate,
				QuantitySold: detail.QuantitySold,
			})
		}
	}

	slices.SortFunc(samples, func(a, b domain.SaleSample) int {
		if a.ProductID == b.ProductID {
			return cmpString(b.SaleDate, a.SaleDate)
		}
		return cmpString(a.ProductID, b.ProductID)
	})
	if limit > 0 && len(samples) > limit {
		samples = samples[:limit]
	}
	return samples, nil
}

func (s *Store) CreateInventoryRecord(_ context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.SellerID == "" || record.ProductID == "" || record.QuantityInitial < 0 {
		return nil, store.ErrValidation
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = domain.InventoryStatusActive
	}

	key := mapKey(record.SellerID, record.ProductID)
	s.inventoryRecords[key] = append(s.inventoryRecords[key], record)
	created := record
	return &created, nil
}

func (s *Store) ListInventoryRecords(_ context.Context, sellerID string, productID string, limit int) ([]domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.inventoryRecords[mapKey(sellerID, productID)]
	result := make([]domain.InventoryRecord, len(records))
	copy(result, records)

	slices.SortFunc(result, func(a, b domain.InventoryRecord) int {
		if a.RecordedAt.Equal(b.RecordedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.RecordedAt.After(b.RecordedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CloseOutPerishable(_ context.Context, sellerID string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists || product.SellerID != sellerID {
		return store.ErrNotFound
	}

	key := mapKey(sellerID, productID)
	records := s.inventoryRecords[key]
	for i := range records {
		if records[i].Status != domain.InventoryStatusActive {
			continue
		}
		records[i].QuantityRemaining = 0
		records[i].Status = domain.InventoryStatusClosed
	}
	s.inventoryRecords[key] = records

	product.Stock = 0
	s.productsByID[productID] = product
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, sellerID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, 32)
	for _, entry := range s.auditLogs {
		if entry.SellerID != sellerID {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func cloneSale(sale domain.DailySale) domain.DailySale {
	cloned := sale
	cloned.Details = make([]domain.SaleDetail, len(sale.Details))
	copy(cloned.Details, sale.Details)
	return cloned
}

func sortProducts(products []domain.Product) {
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
