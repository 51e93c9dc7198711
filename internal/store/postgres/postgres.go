package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"modastore/backend/internal/domain"
	"modastore/backend/internal/store"
	"modastore/backend/internal/xid"
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

func (s *Store) CreateCategory(ctx context.Context, category domain.ProductCategory) (*domain.ProductCategory, error) {
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_categories (id, name, description, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, category.ID, category.Name, category.Description, category.Active, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.ProductCategory) (*domain.ProductCategory, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE product_categories
		SET name = $2, description = $3, active = $4
		WHERE id = $1
	`, category.ID, category.Name, category.Description, category.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := category
	return &updated, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id string) (*domain.ProductCategory, error) {
	var category domain.ProductCategory
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description,''), active, created_at
		FROM product_categories
		WHERE id = $1
	`, id).Scan(&category.ID, &category.Name, &category.Description, &category.Active, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	category.CreatedAt = category.CreatedAt.UTC()
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]domain.ProductCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description,''), active, created_at
		FROM product_categories
		WHERE ($1 = false OR active = true)
		ORDER BY name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.ProductCategory, 0, 16)
	for rows.Next() {
		var category domain.ProductCategory
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &category.Active, &category.CreatedAt); err != nil {
			return nil, err
		}
		category.CreatedAt = category.CreatedAt.UTC()
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

const productColumns = `id, code, name, COALESCE(category_id,''), COALESCE(brand,''), cost_price, sale_price, current_stock, min_stock, COALESCE(image_path,''), active, created_at`

func scanProduct(scanner interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := scanner.Scan(&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.Brand, &p.CostPrice, &p.SalePrice, &p.CurrentStock, &p.MinStock, &p.ImagePath, &p.Active, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, code, name, category_id, brand, cost_price, sale_price, current_stock, min_stock, image_path, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, product.ID, product.Code, product.Name, nullIfEmpty(product.CategoryID), nullIfEmpty(product.Brand),
		product.CostPrice, product.SalePrice, product.CurrentStock, product.MinStock, nullIfEmpty(product.ImagePath), product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET code = $2, name = $3, category_id = $4, brand = $5, cost_price = $6, sale_price = $7,
			current_stock = $8, min_stock = $9, image_path = $10, active = $11
		WHERE id = $1
	`, product.ID, product.Code, product.Name, nullIfEmpty(product.CategoryID), nullIfEmpty(product.Brand),
		product.CostPrice, product.SalePrice, product.CurrentStock, product.MinStock, nullIfEmpty(product.ImagePath), product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, search string, activeOnly bool) ([]domain.Product, error) {
	pattern := "%" + strings.TrimSpace(search) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = false OR active = true)
			AND ($2 = '%%' OR code ILIKE $2 OR name ILIKE $2 OR COALESCE(brand,'') ILIKE $2)
		ORDER BY name ASC
	`, activeOnly, pattern)
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

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateStockEntry(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	if entry.ID == "" {
		entry.ID = xid.New("entry")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = entry.CreatedAt
	}
	if !entry.Quantity.IsPositive() {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = current_stock + $2
		WHERE id = $1
	`, entry.ProductID, entry.Quantity)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_entries (id, product_id, quantity, entry_date, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.ID, entry.ProductID, entry.Quantity, entry.EntryDate, entry.Note, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := entry
	return &created, nil
}

func (s *Store) ListStockEntries(ctx context.Context, from time.Time, to time.Time) ([]domain.StockEntryWithProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.product_id, e.quantity, e.entry_date, COALESCE(e.note,''), e.created_at, p.code, p.name
		FROM stock_entries e
		JOIN products p ON p.id = e.product_id
		WHERE e.entry_date >= $1 AND e.entry_date <= $2
		ORDER BY e.entry_date DESC, e.created_at DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.StockEntryWithProduct, 0, 64)
	for rows.Next() {
		var item domain.StockEntryWithProduct
		if err := rows.Scan(&item.Entry.ID, &item.Entry.ProductID, &item.Entry.Quantity, &item.Entry.EntryDate, &item.Entry.Note, &item.Entry.CreatedAt, &item.ProductCode, &item.ProductName); err != nil {
			return nil, err
		}
		item.Entry.EntryDate = item.Entry.EntryDate.UTC()
		item.Entry.CreatedAt = item.Entry.CreatedAt.UTC()
		entries = append(entries, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) OpenCashSession(ctx context.Context, session domain.CashSession) (*domain.CashSession, error) {
	if session.ID == "" {
		session.ID = xid.New("sess")
	}
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now().UTC()
	}
	session.Status = domain.SessionStatusOpen
	session.ClosedAt = nil
	session.ClosingAmount = nil

	// A partial unique index on status='open' makes the single-open-session
	// rule hold even under concurrent opens.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_sessions (id, opened_at, closed_at, opening_amount, closing_amount, status, note)
		VALUES ($1,$2,NULL,$3,NULL,$4,$5)
	`, session.ID, session.OpenedAt, session.OpeningAmount, session.Status, session.Note)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	opened := session
	return &opened, nil
}

func (s *Store) CloseCashSession(ctx context.Context, sessionID string, countedAmount decimal.Decimal, note string, closedAt time.Time) (*domain.CashSession, error) {
	var session domain.CashSession
	var closedAtNull sql.NullTime
	var closingAmount decimal.NullDecimal
	err := s.db.QueryRowContext(ctx, `
		UPDATE cash_sessions
		SET status = $2, closing_amount = $3, closed_at = $4,
			note = CASE WHEN $5 = '' THEN note ELSE $5 END
		WHERE id = $1 AND status = $6
		RETURNING id, opened_at, closed_at, opening_amount, closing_amount, status, COALESCE(note,'')
	`, sessionID, domain.SessionStatusClosed, countedAmount, closedAt, note, domain.SessionStatusOpen).Scan(
		&session.ID,
		&session.OpenedAt,
		&closedAtNull,
		&session.OpeningAmount,
		&closingAmount,
		&session.Status,
		&session.Note,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish a missing session from one that is already closed.
			var status string
			lookupErr := s.db.QueryRowContext(ctx, `SELECT status FROM cash_sessions WHERE id = $1`, sessionID).Scan(&status)
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrInvalidState
		}
		return nil, err
	}
	session.OpenedAt = session.OpenedAt.UTC()
	if closedAtNull.Valid {
		at := closedAtNull.Time.UTC()
		session.ClosedAt = &at
	}
	if closingAmount.Valid {
		amount := closingAmount.Decimal
		session.ClosingAmount = &amount
	}
	return &session, nil
}

func (s *Store) GetOpenCashSession(ctx context.Context) (*domain.CashSession, error) {
	return s.getSession(ctx, `SELECT id, opened_at, closed_at, opening_amount, closing_amount, status, COALESCE(note,'') FROM cash_sessions WHERE status = 'open' LIMIT 1`)
}

func (s *Store) GetCashSessionByID(ctx context.Context, id string) (*domain.CashSession, error) {
	return s.getSession(ctx, `SELECT id, opened_at, closed_at, opening_amount, closing_amount, status, COALESCE(note,'') FROM cash_sessions WHERE id = $1`, id)
}

func (s *Store) getSession(ctx context.Context, query string, args ...any) (*domain.CashSession, error) {
	var session domain.CashSession
	var closedAt sql.NullTime
	var closingAmount decimal.NullDecimal
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&session.ID,
		&session.OpenedAt,
		&closedAt,
		&session.OpeningAmount,
		&closingAmount,
		&session.Status,
		&session.Note,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	session.OpenedAt = session.OpenedAt.UTC()
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		session.ClosedAt = &at
	}
	if closingAmount.Valid {
		amount := closingAmount.Decimal
		session.ClosingAmount = &amount
	}
	return &session, nil
}

func (s *Store) ListCashSessions(ctx context.Context, from time.Time, to time.Time) ([]domain.CashSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, opened_at, closed_at, opening_amount, closing_amount, status, COALESCE(note,'')
		FROM cash_sessions
		WHERE opened_at >= $1 AND opened_at <= $2
		ORDER BY opened_at DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.CashSession, 0, 32)
	for rows.Next() {
		var session domain.CashSession
		var closedAt sql.NullTime
		var closingAmount decimal.NullDecimal
		if err := rows.Scan(&session.ID, &session.OpenedAt, &closedAt, &session.OpeningAmount, &closingAmount, &session.Status, &session.Note); err != nil {
			return nil, err
		}
		session.OpenedAt = session.OpenedAt.UTC()
		if closedAt.Valid {
			at := closedAt.Time.UTC()
			session.ClosedAt = &at
		}
		if closingAmount.Valid {
			amount := closingAmount.Decimal
			session.ClosingAmount = &amount
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, items []store.SaleItemInput) (*domain.Sale, error) {
	if len(items) == 0 {
		return nil, store.ErrValidation
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.SaleDate.IsZero() {
		sale.SaleDate = sale.CreatedAt
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCompleted
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var sessionStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM cash_sessions WHERE id = $1 FOR UPDATE`, sale.CashSessionID).Scan(&sessionStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if sessionStatus != domain.SessionStatusOpen {
		return nil, store.ErrInvalidState
	}

	totalAmount := decimal.Zero
	totalProfit := decimal.Zero
	totalPieces := decimal.Zero
	saleItems := make([]domain.SaleItem, 0, len(items))

	for _, input := range items {
		if !input.Quantity.IsPositive() {
			return nil, store.ErrValidation
		}

		var code string
		var name string
		err := tx.QueryRowContext(ctx, `SELECT code, name FROM products WHERE id = $1 FOR UPDATE`, input.ProductID).Scan(&code, &name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}

		// Stock may go negative here; overselling is reconciled by staff.
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET current_stock = current_stock - $2
			WHERE id = $1
		`, input.ProductID, input.Quantity)
		if err != nil {
			return nil, err
		}

		subtotal := input.UnitPrice.Mul(input.Quantity)
		lineProfit := input.UnitPrice.Sub(input.UnitCostPrice).Mul(input.Quantity)
		item := domain.SaleItem{
			ID:            xid.New("item"),
			SaleID:        sale.ID,
			ProductID:     input.ProductID,
			ProductCode:   code,
			ProductName:   name,
			Quantity:      input.Quantity,
			UnitPrice:     input.UnitPrice,
			UnitCostPrice: input.UnitCostPrice,
			Subtotal:      subtotal,
			LineProfit:    lineProfit,
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, unit_cost_price, subtotal, line_profit)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.UnitCostPrice, item.Subtotal, item.LineProfit)
		if err != nil {
			return nil, err
		}

		totalAmount = totalAmount.Add(subtotal)
		totalProfit = totalProfit.Add(lineProfit)
		totalPieces = totalPieces.Add(input.Quantity)
		saleItems = append(saleItems, item)
	}

	sale.TotalAmount = totalAmount
	sale.TotalProfit = totalProfit
	sale.TotalPieces = totalPieces
	sale.Items = saleItems

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, cash_session_id, sale_date, total_amount, total_profit, total_pieces, payment_type, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, sale.CashSessionID, sale.SaleDate, sale.TotalAmount, sale.TotalProfit, sale.TotalPieces, sale.PaymentType, sale.Status, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

const saleColumns = `id, cash_session_id, sale_date, total_amount, total_profit, total_pieces, payment_type, status, created_at`

func scanSale(scanner interface{ Scan(...any) error }) (domain.Sale, error) {
	var sale domain.Sale
	err := scanner.Scan(&sale.ID, &sale.CashSessionID, &sale.SaleDate, &sale.TotalAmount, &sale.TotalProfit, &sale.TotalPieces, &sale.PaymentType, &sale.Status, &sale.CreatedAt)
	if err != nil {
		return sale, err
	}
	sale.SaleDate = sale.SaleDate.UTC()
	sale.CreatedAt = sale.CreatedAt.UTC()
	return sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.listSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) listSaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.sale_id, i.product_id, p.code, p.name, i.quantity, i.unit_price, i.unit_cost_price, i.subtotal, i.line_profit
		FROM sale_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.sale_id = $1
		ORDER BY i.id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductCode, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.UnitCostPrice, &item.Subtotal, &item.LineProfit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSessionSales(ctx context.Context, sessionID string) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE cash_session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
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
		items, err := s.listSaleItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func (s *Store) RemoveSaleItem(ctx context.Context, saleID string, itemID string) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, saleID)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if sale.Status == domain.SaleStatusVoided {
		return nil, store.ErrInvalidState
	}

	var productID string
	var quantity decimal.Decimal
	var subtotal decimal.Decimal
	var lineProfit decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT product_id, quantity, subtotal, line_profit
		FROM sale_items
		WHERE id = $1 AND sale_id = $2
		FOR UPDATE
	`, itemID, saleID).Scan(&productID, &quantity, &subtotal, &lineProfit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = current_stock + $2
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM sale_items WHERE id = $1`, itemID)
	if err != nil {
		return nil, err
	}

	sale.TotalAmount = sale.TotalAmount.Sub(subtotal)
	sale.TotalProfit = sale.TotalProfit.Sub(lineProfit)
	sale.TotalPieces = sale.TotalPieces.Sub(quantity)
	if !sale.TotalPieces.IsPositive() {
		sale.Status = domain.SaleStatusVoided
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET total_amount = $2, total_profit = $3, total_pieces = $4, status = $5
		WHERE id = $1
	`, sale.ID, sale.TotalAmount, sale.TotalProfit, sale.TotalPieces, sale.Status)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	items, err := s.listSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) VoidSale(ctx context.Context, saleID string, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, saleID)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if sale.Status == domain.SaleStatusVoided {
		return nil, store.ErrInvalidState
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM sale_items
		WHERE sale_id = $1
	`, saleID)
	if err != nil {
		return nil, err
	}
	type restoreLine struct {
		productID string
		quantity  decimal.Decimal
	}
	restores := make([]restoreLine, 0, 8)
	for itemRows.Next() {
		var line restoreLine
		if err := itemRows.Scan(&line.productID, &line.quantity); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		restores = append(restores, line)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	for _, line := range restores {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET current_stock = current_stock + $2
			WHERE id = $1
		`, line.productID, line.quantity)
		if err != nil {
			return nil, err
		}
	}

	// Items stay in place as the audit trail of what was voided.
	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2
		WHERE id = $1
	`, saleID, domain.SaleStatusVoided)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sale.Status = domain.SaleStatusVoided
	items, err := s.listSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) UpdateSalePaymentType(ctx context.Context, saleID string, paymentType string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE sales
		SET payment_type = $2
		WHERE id = $1 AND status <> $3
		RETURNING `+saleColumns+`
	`, saleID, paymentType, domain.SaleStatusVoided)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var status string
			lookupErr := s.db.QueryRowContext(ctx, `SELECT status FROM sales WHERE id = $1`, saleID).Scan(&status)
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrInvalidState
		}
		return nil, err
	}
	items, err := s.listSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) UpsertAccessoryBucket(ctx context.Context, price decimal.Decimal, quantity decimal.Decimal, at time.Time) (*domain.AccessoryStock, error) {
	if !price.IsPositive() || quantity.IsNegative() {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var bucket domain.AccessoryStock
	err = tx.QueryRowContext(ctx, `
		INSERT INTO accessory_stock (id, price, quantity, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (price)
		DO UPDATE SET quantity = accessory_stock.quantity + EXCLUDED.quantity
		RETURNING id, price, quantity, created_at
	`, xid.New("accs"), price, quantity, at).Scan(&bucket.ID, &bucket.Price, &bucket.Quantity, &bucket.CreatedAt)
	if err != nil {
		return nil, err
	}
	bucket.CreatedAt = bucket.CreatedAt.UTC()

	if quantity.IsPositive() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO accessory_stock_entries (id, entry_date, price, quantity, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, xid.New("accentry"), at, price, quantity, at)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (s *Store) SellAccessory(ctx context.Context, price decimal.Decimal, quantity decimal.Decimal, at time.Time) (*domain.AccessorySale, error) {
	if !quantity.IsPositive() {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var available decimal.Decimal
	err = tx.QueryRowContext(ctx, `SELECT quantity FROM accessory_stock WHERE price = $1 FOR UPDATE`, price).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if quantity.GreaterThan(available) {
		return nil, store.ErrValidation
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accessory_stock
		SET quantity = quantity - $2
		WHERE price = $1
	`, price, quantity)
	if err != nil {
		return nil, err
	}

	sale := domain.AccessorySale{
		ID:        xid.New("accsale"),
		SaleDate:  at,
		Price:     price,
		Quantity:  quantity,
		Remitted:  false,
		CreatedAt: at,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO accessory_sales (id, sale_date, price, quantity, remitted, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sale.ID, sale.SaleDate, sale.Price, sale.Quantity, sale.Remitted, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) AdjustAccessoryStock(ctx context.Context, price decimal.Decimal, delta decimal.Decimal, at time.Time) (*domain.AccessoryStock, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var bucket domain.AccessoryStock
	err = tx.QueryRowContext(ctx, `SELECT id, price, quantity, created_at FROM accessory_stock WHERE price = $1 FOR UPDATE`, price).Scan(
		&bucket.ID, &bucket.Price, &bucket.Quantity, &bucket.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	next := bucket.Quantity.Add(delta)
	if next.IsNegative() {
		return nil, store.ErrValidation
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accessory_stock
		SET quantity = $2
		WHERE price = $1
	`, price, next)
	if err != nil {
		return nil, err
	}

	// Only increases are ledgered; shrink adjustments leave no entry.
	if delta.IsPositive() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO accessory_stock_entries (id, entry_date, price, quantity, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, xid.New("accentry"), at, price, delta, at)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	bucket.Quantity = next
	bucket.CreatedAt = bucket.CreatedAt.UTC()
	return &bucket, nil
}

func (s *Store) ToggleAccessoryRemittance(ctx context.Context, saleID string) (*domain.AccessorySale, error) {
	var sale domain.AccessorySale
	err := s.db.QueryRowContext(ctx, `
		UPDATE accessory_sales
		SET remitted = NOT remitted
		WHERE id = $1
		RETURNING id, sale_date, price, quantity, remitted, created_at
	`, saleID).Scan(&sale.ID, &sale.SaleDate, &sale.Price, &sale.Quantity, &sale.Remitted, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.SaleDate = sale.SaleDate.UTC()
	sale.CreatedAt = sale.CreatedAt.UTC()
	return &sale, nil
}

func (s *Store) ListAccessoryStock(ctx context.Context) ([]domain.AccessoryStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, price, quantity, created_at
		FROM accessory_stock
		ORDER BY price ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make([]domain.AccessoryStock, 0, 16)
	for rows.Next() {
		var bucket domain.AccessoryStock
		if err := rows.Scan(&bucket.ID, &bucket.Price, &bucket.Quantity, &bucket.CreatedAt); err != nil {
			return nil, err
		}
		bucket.CreatedAt = bucket.CreatedAt.UTC()
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (s *Store) ListAccessorySales(ctx context.Context, from time.Time, to time.Time) ([]domain.AccessorySale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_date, price, quantity, remitted, created_at
		FROM accessory_sales
		WHERE sale_date >= $1 AND sale_date <= $2
		ORDER BY sale_date DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.AccessorySale, 0, 32)
	for rows.Next() {
		var sale domain.AccessorySale
		if err := rows.Scan(&sale.ID, &sale.SaleDate, &sale.Price, &sale.Quantity, &sale.Remitted, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.SaleDate = sale.SaleDate.UTC()
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreatePayable(ctx context.Context, payable domain.AccountPayable) (*domain.AccountPayable, error) {
	if payable.ID == "" {
		payable.ID = xid.New("ap")
	}
	if payable.CreatedAt.IsZero() {
		payable.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts_payable (id, supplier, description, due_date, paid_date, amount, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, payable.ID, payable.Supplier, payable.Description, payable.DueDate, nullTime(payable.PaidDate), payable.Amount, payable.Note, payable.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := payable
	return &created, nil
}

func (s *Store) UpdatePayable(ctx context.Context, payable domain.AccountPayable) (*domain.AccountPayable, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts_payable
		SET supplier = $2, description = $3, due_date = $4, paid_date = $5, amount = $6, note = $7
		WHERE id = $1
	`, payable.ID, payable.Supplier, payable.Description, payable.DueDate, nullTime(payable.PaidDate), payable.Amount, payable.Note)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := payable
	return &updated, nil
}

func (s *Store) GetPayableByID(ctx context.Context, id string) (*domain.AccountPayable, error) {
	var payable domain.AccountPayable
	var paidDate sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, supplier, COALESCE(description,''), due_date, paid_date, amount, COALESCE(note,''), created_at
		FROM accounts_payable
		WHERE id = $1
	`, id).Scan(&payable.ID, &payable.Supplier, &payable.Description, &payable.DueDate, &paidDate, &payable.Amount, &payable.Note, &payable.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	payable.DueDate = payable.DueDate.UTC()
	payable.CreatedAt = payable.CreatedAt.UTC()
	if paidDate.Valid {
		at := paidDate.Time.UTC()
		payable.PaidDate = &at
	}
	return &payable, nil
}

func (s *Store) ListPayables(ctx context.Context, from *time.Time, to *time.Time) ([]domain.AccountPayable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier, COALESCE(description,''), due_date, paid_date, amount, COALESCE(note,''), created_at
		FROM accounts_payable
		WHERE ($1::timestamptz IS NULL OR due_date >= $1)
			AND ($2::timestamptz IS NULL OR due_date <= $2)
		ORDER BY due_date ASC
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payables := make([]domain.AccountPayable, 0, 32)
	for rows.Next() {
		var payable domain.AccountPayable
		var paidDate sql.NullTime
		if err := rows.Scan(&payable.ID, &payable.Supplier, &payable.Description, &payable.DueDate, &paidDate, &payable.Amount, &payable.Note, &payable.CreatedAt); err != nil {
			return nil, err
		}
		payable.DueDate = payable.DueDate.UTC()
		payable.CreatedAt = payable.CreatedAt.UTC()
		if paidDate.Valid {
			at := paidDate.Time.UTC()
			payable.PaidDate = &at
		}
		payables = append(payables, payable)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payables, nil
}

func (s *Store) GetPeriodSummary(ctx context.Context, from time.Time, to time.Time) (domain.PeriodSummary, error) {
	summary := domain.PeriodSummary{From: from, To: to}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::bigint,
			COALESCE(SUM(total_amount),0),
			COALESCE(SUM(total_profit),0),
			COALESCE(SUM(total_pieces),0)
		FROM sales
		WHERE sale_date >= $1 AND sale_date <= $2 AND status <> $3
	`, from, to, domain.SaleStatusVoided).Scan(
		&summary.SaleCount,
		&summary.TotalAmount,
		&summary.TotalProfit,
		&summary.TotalPieces,
	)
	if err != nil {
		return summary, err
	}

	summary.MarginPercent = decimal.Zero
	summary.AverageTicket = decimal.Zero
	if summary.TotalAmount.IsPositive() {
		summary.MarginPercent = summary.TotalProfit.Div(summary.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if summary.SaleCount > 0 {
		summary.AverageTicket = summary.TotalAmount.Div(decimal.NewFromInt(summary.SaleCount)).Round(2)
	}
	return summary, nil
}

func (s *Store) GetTopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.product_id, p.code, p.name, COALESCE(SUM(i.quantity),0), COALESCE(SUM(i.subtotal),0)
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		JOIN products p ON p.id = i.product_id
		WHERE s.sale_date >= $1 AND s.sale_date <= $2 AND s.status <> $3
		GROUP BY i.product_id, p.code, p.name
		ORDER BY SUM(i.quantity) DESC, p.code ASC
		LIMIT $4
	`, from, to, domain.SaleStatusVoided, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.TopProduct, 0, limit)
	for rows.Next() {
		var product domain.TopProduct
		if err := rows.Scan(&product.ProductID, &product.Code, &product.Name, &product.QuantitySold, &product.AmountSold); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetStockValuation(ctx context.Context) (domain.StockValuation, error) {
	var valuation domain.StockValuation
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::bigint,
			COALESCE(SUM(cost_price * current_stock),0),
			COALESCE(SUM(sale_price * current_stock),0)
		FROM products
	`).Scan(&valuation.Products, &valuation.CostValue, &valuation.RetailValue)
	if err != nil {
		return valuation, err
	}
	return valuation, nil
}

func (s *Store) GetSessionSalesTotal(ctx context.Context, sessionID string) (decimal.Decimal, int64, error) {
	var total decimal.Decimal
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount),0), COUNT(*)::bigint
		FROM sales
		WHERE cash_session_id = $1 AND status <> $2
	`, sessionID, domain.SaleStatusVoided).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return total, count, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, display_name, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Password, user.DisplayName, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, COALESCE(display_name,''), role, active, created_at
		FROM app_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.Username, &user.Password, &user.DisplayName, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, COALESCE(display_name,''), role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.DisplayName, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetUserActive(ctx context.Context, username string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET active = $2
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username)), active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
