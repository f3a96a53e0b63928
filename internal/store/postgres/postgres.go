package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSeller(ctx context.Context, seller domain.Seller) (*domain.Seller, error) {
	email := strings.ToLower(strings.TrimSpace(seller.Email))
	if email == "" || seller.PasswordHash == "" || seller.Name == "" {
		return nil, store.ErrValidation
	}
	if seller.ID == "" {
		seller.ID = uuid.NewString()
	}
	seller.Email = email
	seller.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sellers (id, email, password_hash, name, phone, failed_login_attempts, locked_until, created_at)
		VALUES ($1,$2,$3,$4,$5,0,NULL,$6)
	`, seller.ID, seller.Email, seller.PasswordHash, seller.Name, nullIfEmpty(seller.Phone), seller.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrSellerExists
		}
		return nil, err
	}

	created := seller
	return &created, nil
}

func (s *Store) GetSellerByEmail(ctx context.Context, email string) (*domain.Seller, error) {
	return s.getSeller(ctx, `email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetSellerByID(ctx context.Context, id string) (*domain.Seller, error) {
	return s.getSeller(ctx, `id = $1`, id)
}

func (s *Store) getSeller(ctx context.Context, where string, arg any) (*domain.Seller, error) {
	var seller domain.Seller
	var phone sql.NullString
	var lockedUntil sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, phone, failed_login_attempts, locked_until, created_at
		FROM sellers
		WHERE `+where, arg).Scan(
		&seller.ID, &seller.Email, &seller.PasswordHash, &seller.Name,
		&phone, &seller.FailedLoginAttempts, &lockedUntil, &seller.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if phone.Valid {
		seller.Phone = phone.String
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time.UTC()
		seller.LockedUntil = &t
	}
	return &seller, nil
}

func (s *Store) UpdateSellerLoginState(ctx context.Context, sellerID string, failedAttempts int, lockedUntil *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sellers
		SET failed_login_attempts = $2, locked_until = $3
		WHERE id = $1
	`, sellerID, failedAttempts, nullTime(lockedUntil))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SellerID == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrValidation
	}
	if product.UnitCost.IsNegative() || product.SalePrice.IsNegative() || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	product.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, seller_id, name, description, category, unit_cost, sale_price, stock,
			is_perishable, shelf_life_days, image_url, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, product.ID, product.SellerID, product.Name, nullIfEmpty(product.Description), product.Category,
		product.UnitCost, product.SalePrice, product.Stock,
		product.IsPerishable, product.ShelfLifeDays, nullIfEmpty(product.ImageURL), product.IsActive, product.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

const productColumns = `id, seller_id, name, COALESCE(description,''), category, unit_cost, sale_price, stock,
	is_perishable, shelf_life_days, COALESCE(image_url,''), is_active, created_at`

type rowScanner interface {
	Scan(...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Category, &p.UnitCost, &p.SalePrice,
		&p.Stock, &p.IsPerishable, &p.ShelfLifeDays, &p.ImageURL, &p.IsActive, &p.CreatedAt)
	return p, err
}

func (s *Store) GetProduct(ctx context.Context, sellerID string, productID string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND seller_id = $2
	`, productID, sellerID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, sellerID string) ([]domain.Product, error) {
	return s.listProducts(ctx, `WHERE seller_id = $1`, sellerID)
}

func (s *Store) ListMarketplaceProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx, `WHERE is_active = true`)
}

func (s *Store) listProducts(ctx context.Context, where string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		`+where+`
		ORDER BY category, name
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SetProductStock(ctx context.Context, sellerID string, productID string, qty int) error {
	if qty < 0 {
		return store.ErrValidation
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET stock = $3 WHERE id = $1 AND seller_id = $2
	`, productID, sellerID, qty)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateDailySale(ctx context.Context, sale domain.DailySale) (*domain.DailySale, error) {
	if sale.SellerID == "" || sale.SaleDate == "" || len(sale.Details) == 0 {
		return nil, store.ErrValidation
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sale.CreatedAt = now
	sale.UpdatedAt = now

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO daily_sales (id, seller_id, sale_date, total_investment, total_revenue,
			units_sold, units_lost, profit_margin, is_closed, notes, created_at, updated_at)
		VALUES ($1,$2,$3::date,$4,$5,$6,$7,$8,false,$9,$10,$11)
	`, sale.ID, sale.SellerID, sale.SaleDate, sale.TotalInvestment, sale.TotalRevenue,
		sale.UnitsSold, sale.UnitsLost, sale.ProfitMargin, nullIfEmpty(sale.Notes), sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyPrepared
		}
		return nil, err
	}

	for i := range sale.Details {
		detail := &sale.Details[i]
		if detail.ID == "" {
			detail.ID = uuid.NewString()
		}
		detail.DailySaleID = sale.ID
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO sale_details (id, daily_sale_id, product_id, product_name,
				quantity_prepared, quantity_sold, quantity_lost, unit_cost, unit_price, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, detail.ID, sale.ID, detail.ProductID, detail.ProductName,
			detail.QuantityPrepared, detail.QuantitySold, detail.QuantityLost,
			detail.UnitCost, detail.UnitPrice, detail.Subtotal)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrValidation
			}
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

const saleColumns = `id, seller_id, sale_date, total_investment, total_revenue,
	units_sold, units_lost, profit_margin, is_closed, COALESCE(notes,''), created_at, updated_at`

func scanSale(row rowScanner) (domain.DailySale, error) {
	var sale domain.DailySale
	var saleDate time.Time
	err := row.Scan(&sale.ID, &sale.SellerID, &saleDate, &sale.TotalInvestment, &sale.TotalRevenue,
		&sale.UnitsSold, &sale.UnitsLost, &sale.ProfitMargin, &sale.IsClosed, &sale.Notes,
		&sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return sale, err
	}
	sale.SaleDate = saleDate.UTC().Format(domain.DateLayout)
	return sale, nil
}

func (s *Store) GetDailySaleByDate(ctx context.Context, sellerID string, saleDate string) (*domain.DailySale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM daily_sales
		WHERE seller_id = $1 AND sale_date = $2::date
	`, sellerID, saleDate)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	sale.Details, err = s.fetchSaleDetails(ctx, s.db, sale.ID)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) fetchSaleDetails(ctx context.Context, q querier, dailySaleID string) ([]domain.SaleDetail, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, daily_sale_id, product_id, product_name,
			quantity_prepared, quantity_sold, quantity_lost, unit_cost, unit_price, subtotal
		FROM sale_details
		WHERE daily_sale_id = $1
		ORDER BY product_name
	`, dailySaleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]domain.SaleDetail, 0, 8)
	for rows.Next() {
		var detail domain.SaleDetail
		if err := rows.Scan(&detail.ID, &detail.DailySaleID, &detail.ProductID, &detail.ProductName,
			&detail.QuantityPrepared, &detail.QuantitySold, &detail.QuantityLost,
			&detail.UnitCost, &detail.UnitPrice, &detail.Subtotal); err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// lockOpenSale loads the daily sale header for (seller, date) with a row lock.
// Callers decide how to treat a closed sale.
func (s *Store) lockOpenSale(ctx context.Context, pgTx *sql.Tx, sellerID string, saleDate string) (domain.DailySale, error) {
	row := pgTx.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM daily_sales
		WHERE seller_id = $1 AND sale_date = $2::date
		FOR UPDATE
	`, sellerID, saleDate)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sale, store.ErrNoActiveSale
		}
		return sale, err
	}
	return sale, nil
}

func (s *Store) TrackSaleDetail(ctx context.Context, sellerID string, saleDate string, productID string, sold int, lost int) (*domain.DailySale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	sale, err := s.lockOpenSale(ctx, pgTx, sellerID, saleDate)
	if err != nil {
		return nil, err
	}
	if sale.IsClosed {
		return nil, store.ErrNoActiveSale
	}

	var detailID string
	var prepared int
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, quantity_prepared
		FROM sale_details
		WHERE daily_sale_id = $1 AND product_id = $2
		FOR UPDATE
	`, sale.ID, productID).Scan(&detailID, &prepared)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotInSale
		}
		return nil, err
	}
	if sold+lost > prepared {
		return nil, store.ErrOverPrepared
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE sale_details
		SET quantity_sold = $2, quantity_lost = $3, subtotal = unit_price * $2
		WHERE id = $1
	`, detailID, sold, lost)
	if err != nil {
		return nil, err
	}

	updated, err := s.refreshSaleHeader(ctx, pgTx, sale)
	if err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) CloseDailySale(ctx context.Context, sellerID string, saleDate string, wastes []domain.CloseWasteItem, notes string) (*domain.DailySale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	sale, err := s.lockOpenSale(ctx, pgTx, sellerID, saleDate)
	if err != nil {
		return nil, err
	}
	if sale.IsClosed {
		return nil, store.ErrAlreadyClosed
	}

	details, err := s.fetchSaleDetails(ctx, pgTx, sale.ID)
	if err != nil {
		return nil, err
	}
	detailByProduct := make(map[string]domain.SaleDetail, len(details))
	for _, detail := range details {
		detailByProduct[detail.ProductID] = detail
	}

	// All waste entries are validated before any row is written so a bad
	// entry leaves the sale untouched.
	for _, waste := range wastes {
		detail, inSale := detailByProduct[waste.ProductID]
		if !inSale {
			continue
		}
		if waste.Waste > detail.QuantityPrepared {
			return nil, store.ErrWasteExceedsPrepared
		}
	}

	for _, waste := range wastes {
		detail, inSale := detailByProduct[waste.ProductID]
		if !inSale {
			continue
		}
		sold := detail.QuantityPrepared - waste.Waste
		_, err = pgTx.ExecContext(ctx, `
			UPDATE sale_details
			SET quantity_sold = $2, quantity_lost = $3, subtotal = unit_price * $2
			WHERE id = $1
		`, detail.ID, sold, waste.Waste)
		if err != nil {
			return nil, err
		}
	}

	if notes != "" {
		sale.Notes = notes
	}
	sale.IsClosed = true

	updated, err := s.refreshSaleHeader(ctx, pgTx, sale)
	if err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

// refreshSaleHeader reloads the detail rows, recomputes the derived header
// fields and persists them. Must run inside the caller's transaction.
func (s *Store) refreshSaleHeader(ctx context.Context, pgTx *sql.Tx, sale domain.DailySale) (*domain.DailySale, error) {
	details, err := s.fetchSaleDetails(ctx, pgTx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Details = details
	sale.Recompute()
	sale.UpdatedAt = time.Now().UTC()

	_, err = pgTx.ExecContext(ctx, `
		UPDATE daily_sales
		SET total_revenue = $2, units_sold = $3, units_lost = $4, profit_margin = $5,
			is_closed = $6, notes = $7, updated_at = $8
		WHERE id = $1
	`, sale.ID, sale.TotalRevenue, sale.UnitsSold, sale.UnitsLost, sale.ProfitMargin,
		sale.IsClosed, nullIfEmpty(sale.Notes), sale.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListDailySales(ctx context.Context, sellerID string, limit int) ([]domain.DailySale, error) {
	if limit < 1 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM (
			SELECT * FROM daily_sales
			WHERE seller_id = $1
			ORDER BY sale_date DESC
			LIMIT $2
		) recent
		ORDER BY sale_date ASC
	`, sellerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.DailySale, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		sales[i].Details, err = s.fetchSaleDetails(ctx, s.db, sales[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (s *Store) SumSaleTotals(ctx context.Context, sellerID string) (decimal.Decimal, decimal.Decimal, error) {
	var investment, revenue decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_investment), 0), COALESCE(SUM(total_revenue), 0)
		FROM daily_sales
		WHERE seller_id = $1
	`, sellerID).Scan(&investment, &revenue)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return investment, revenue, nil
}

func (s *Store) ListWeekdaySamples(ctx context.Context, sellerID string, weekday time.Weekday, before string, limit int) ([]domain.SaleSample, error) {
	if limit < 1 {
		limit = 100
	}
	// Postgres DOW uses the same numbering as time.Weekday (Sunday = 0).
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.product_id, d.product_name, s.sale_date, d.quantity_sold
		FROM sale_details d
		JOIN daily_sales s ON s.id = d.daily_sale_id
		WHERE s.seller_id = $1
			AND s.sale_date < $2::date
			AND EXTRACT(DOW FROM s.sale_date) = $3
		ORDER BY d.product_id, s.sale_date DESC
		LIMIT $4
	`, sellerID, before, int(weekday), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]domain.SaleSample, 0, limit)
	for rows.Next() {
		var sample domain.SaleSample
		var saleDate time.Time
		if err := rows.Scan(&sample.ProductID, &sample.ProductName, &saleDate, &sample.QuantitySold); err != nil {
			return nil, err
		}
		sample.SaleDate = saleDate.UTC().Format(domain.DateLayout)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func (s *Store) CreateInventoryRecord(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	if record.SellerID == "" || record.ProductID == "" || record.QuantityInitial < 0 {
		return nil, store.ErrValidation
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = domain.InventoryStatusActive
	}
	record.RecordedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_records (id, seller_id, product_id, quantity_initial, quantity_remaining,
			unit_cost, investment_amount, status, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, record.ID, record.SellerID, record.ProductID, record.QuantityInitial, record.QuantityRemaining,
		record.UnitCost, record.InvestmentAmount, record.Status, record.RecordedAt)
	if err != nil {
		return nil, err
	}

	created := record
	return &created, nil
}

func (s *Store) ListInventoryRecords(ctx context.Context, sellerID string, productID string, limit int) ([]domain.InventoryRecord, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller_id, product_id, quantity_initial, quantity_remaining,
			unit_cost, investment_amount, status, recorded_at
		FROM inventory_records
		WHERE seller_id = $1 AND product_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`, sellerID, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.InventoryRecord, 0, limit)
	for rows.Next() {
		var record domain.InventoryRecord
		if err := rows.Scan(&record.ID, &record.SellerID, &record.ProductID,
			&record.QuantityInitial, &record.QuantityRemaining,
			&record.UnitCost, &record.InvestmentAmount, &record.Status, &record.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) CloseOutPerishable(ctx context.Context, sellerID string, productID string) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	result, err := pgTx.ExecContext(ctx, `
		UPDATE products SET stock = 0 WHERE id = $1 AND seller_id = $2
	`, productID, sellerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE inventory_records
		SET quantity_remaining = 0, status = $3
		WHERE seller_id = $1 AND product_id = $2 AND status = $4
	`, sellerID, productID, domain.InventoryStatusClosed, domain.InventoryStatusActive)
	if err != nil {
		return err
	}

	return pgTx.Commit()
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, seller_id, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.SellerID, entry.Action, entry.EntityType, nullIfEmpty(entry.EntityID), nullIfEmpty(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, sellerID string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller_id, action, entity_type, COALESCE(entity_id,''), COALESCE(detail,''), created_at
		FROM audit_logs
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sellerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.SellerID, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
