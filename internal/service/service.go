package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"modastore/backend/internal/cache"
	"modastore/backend/internal/domain"
	"modastore/backend/internal/store"
	"modastore/backend/internal/xid"
)

const summaryCacheTTL = 60 * time.Second

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports cache.ReportCache
	now     func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}

	return &Service{
		repo:    repo,
		reports: reports,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("authentication required")
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, fmt.Errorf("%s role required", strings.Join(roles, " or "))
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.ProductCategory, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.ProductCategory{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return domain.ProductCategory{}, fmt.Errorf("category name: %w", store.ErrValidation)
	}

	created, err := s.repo.CreateCategory(ctx, domain.ProductCategory{
		ID:          xid.New("cat"),
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.ProductCategory{}, err
	}

	s.logAudit(ctx, "category_create", "category", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (domain.ProductCategory, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.ProductCategory{}, err
	}

	existing, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return domain.ProductCategory{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ProductCategory{}, fmt.Errorf("category name: %w", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateCategory(ctx, updated)
	if err != nil {
		return domain.ProductCategory{}, err
	}

	s.logAudit(ctx, "category_update", "category", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.Name, saved.Active))
	return *saved, nil
}

func (s *Service) ListCategories(ctx context.Context, activeOnly bool) ([]domain.ProductCategory, error) {
	return s.repo.ListCategories(ctx, activeOnly)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.Product{}, err
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)

	if req.Code == "" || req.Name == "" {
		return domain.Product{}, fmt.Errorf("product code and name: %w", store.ErrValidation)
	}
	if !req.SalePrice.IsPositive() || req.CostPrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("product prices: %w", store.ErrValidation)
	}
	if req.InitialStock.IsNegative() || req.MinStock.IsNegative() {
		return domain.Product{}, fmt.Errorf("product stock: %w", store.ErrValidation)
	}
	if req.CategoryID != "" {
		if _, err := s.repo.GetCategoryByID(ctx, req.CategoryID); err != nil {
			return domain.Product{}, fmt.Errorf("category %s: %w", req.CategoryID, err)
		}
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:           xid.New("prod"),
		Code:         req.Code,
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		Brand:        req.Brand,
		CostPrice:    req.CostPrice,
		SalePrice:    req.SalePrice,
		CurrentStock: decimal.Zero,
		MinStock:     req.MinStock,
		ImagePath:    strings.TrimSpace(req.ImagePath),
		Active:       true,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	if req.InitialStock.IsPositive() {
		if _, err := s.repo.CreateStockEntry(ctx, domain.StockEntry{
			ID:        xid.New("entry"),
			ProductID: created.ID,
			Quantity:  req.InitialStock,
			EntryDate: s.now(),
			Note:      "initial stock",
			CreatedAt: s.now(),
		}); err != nil {
			return domain.Product{}, err
		}
		created.CurrentStock = req.InitialStock
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("code=%s,price=%s,stock=%s", created.Code, created.SalePrice, created.CurrentStock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("product name: %w", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.CategoryID != nil {
		if *req.CategoryID != "" {
			if _, err := s.repo.GetCategoryByID(ctx, *req.CategoryID); err != nil {
				return domain.Product{}, fmt.Errorf("category %s: %w", *req.CategoryID, err)
			}
		}
		updated.CategoryID = *req.CategoryID
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return domain.Product{}, fmt.Errorf("cost price: %w", store.ErrValidation)
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.SalePrice != nil {
		if !req.SalePrice.IsPositive() {
			return domain.Product{}, fmt.Errorf("sale price: %w", store.ErrValidation)
		}
		updated.SalePrice = *req.SalePrice
	}
	if req.CurrentStock != nil {
		// Direct stock edits are an administrative correction; they do
		// not produce a ledger entry.
		updated.CurrentStock = *req.CurrentStock
	}
	if req.MinStock != nil {
		if req.MinStock.IsNegative() {
			return domain.Product{}, fmt.Errorf("min stock: %w", store.ErrValidation)
		}
		updated.MinStock = *req.MinStock
	}
	if req.ImagePath != nil {
		updated.ImagePath = strings.TrimSpace(*req.ImagePath)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("code=%s,active=%t,stock=%s", saved.Code, saved.Active, saved.CurrentStock))
	return *saved, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ListProducts(ctx context.Context, search string, activeOnly bool) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, search, activeOnly)
}

// LowStockProducts lists active products whose running stock sits below
// their minimum threshold.
func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx, "", true)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.CurrentStock.LessThan(p.MinStock) {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *Service) RecordStockEntry(ctx context.Context, req domain.StockEntryCreateRequest) (domain.StockEntry, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.StockEntry{}, err
	}

	if !req.Quantity.IsPositive() {
		return domain.StockEntry{}, fmt.Errorf("entry quantity: %w", store.ErrValidation)
	}

	entryDate := s.now()
	if strings.TrimSpace(req.EntryDate) != "" {
		parsed, err := time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			return domain.StockEntry{}, fmt.Errorf("entry date: %w", store.ErrValidation)
		}
		entryDate = parsed.UTC()
	}

	created, err := s.repo.CreateStockEntry(ctx, domain.StockEntry{
		ID:        xid.New("entry"),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		EntryDate: entryDate,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.StockEntry{}, err
	}

	s.logAudit(ctx, "stock_entry", "product", created.ProductID, fmt.Sprintf("qty=%s", created.Quantity))
	return *created, nil
}

func (s *Service) StockEntriesInPeriod(ctx context.Context, fromDate string, toDate string) ([]domain.StockEntryWithProduct, error) {
	from, to, err := s.parsePeriod(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListStockEntries(ctx, from, to)
}

func (s *Service) OpenSession(ctx context.Context, req domain.SessionOpenRequest) (domain.CashSession, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson)
	if err != nil {
		return domain.CashSession{}, err
	}

	if req.OpeningAmount.IsNegative() {
		return domain.CashSession{}, fmt.Errorf("opening amount: %w", store.ErrValidation)
	}

	created, err := s.repo.OpenCashSession(ctx, domain.CashSession{
		ID:            xid.New("sess"),
		OpenedAt:      s.now(),
		OpeningAmount: req.OpeningAmount,
		Status:        domain.SessionStatusOpen,
		Note:          strings.TrimSpace(req.Note),
	})
	if err != nil {
		return domain.CashSession{}, err
	}

	s.logAudit(ctx, "session_open", "cash_session", created.ID, fmt.Sprintf("opening=%s,by=%s", created.OpeningAmount, actor.Username))
	s.invalidateReports(ctx)
	return *created, nil
}

func (s *Service) CloseSession(ctx context.Context, sessionID string, req domain.SessionCloseRequest) (domain.CashSession, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson); err != nil {
		return domain.CashSession{}, err
	}

	if req.CountedAmount.IsNegative() {
		return domain.CashSession{}, fmt.Errorf("counted amount: %w", store.ErrValidation)
	}

	if sessionID == "" {
		open, err := s.repo.GetOpenCashSession(ctx)
		if err != nil {
			return domain.CashSession{}, fmt.Errorf("no open session: %w", store.ErrInvalidState)
		}
		sessionID = open.ID
	}

	closed, err := s.repo.CloseCashSession(ctx, sessionID, req.CountedAmount, strings.TrimSpace(req.Note), s.now())
	if err != nil {
		return domain.CashSession{}, err
	}

	s.logAudit(ctx, "session_close", "cash_session", closed.ID, fmt.Sprintf("counted=%s", req.CountedAmount))
	s.invalidateReports(ctx)
	return *closed, nil
}

func (s *Service) CurrentSession(ctx context.Context) (domain.CashSession, error) {
	session, err := s.repo.GetOpenCashSession(ctx)
	if err != nil {
		return domain.CashSession{}, err
	}
	return *session, nil
}

func (s *Service) SessionReport(ctx context.Context, sessionID string) (domain.SessionReport, error) {
	session, err := s.repo.GetCashSessionByID(ctx, sessionID)
	if err != nil {
		return domain.SessionReport{}, err
	}
	total, count, err := s.repo.GetSessionSalesTotal(ctx, sessionID)
	if err != nil {
		return domain.SessionReport{}, err
	}
	return domain.SessionReport{Session: *session, SalesTotal: total, SaleCount: count}, nil
}

func (s *Service) SessionsInRange(ctx context.Context, fromDate string, toDate string) ([]domain.SessionReport, error) {
	from, to, err := s.parsePeriod(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListCashSessions(ctx, from, to)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.SessionReport, 0, len(sessions))
	for _, session := range sessions {
		total, count, err := s.repo.GetSessionSalesTotal(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, domain.SessionReport{Session: session, SalesTotal: total, SaleCount: count})
	}
	return reports, nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson); err != nil {
		return domain.Sale{}, err
	}

	req.PaymentType = strings.ToLower(strings.TrimSpace(req.PaymentType))
	if !isSupportedPaymentType(req.PaymentType) {
		return domain.Sale{}, fmt.Errorf("payment type %q: %w", req.PaymentType, store.ErrValidation)
	}

	lines, err := normalizeCartLines(req.CartLines)
	if err != nil {
		return domain.Sale{}, err
	}
	if len(lines) == 0 {
		return domain.Sale{}, fmt.Errorf("empty cart: %w", store.ErrValidation)
	}

	session, err := s.repo.GetOpenCashSession(ctx)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("no open cash session: %w", store.ErrValidation)
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.Sale{}, err
	}

	items := make([]store.SaleItemInput, 0, len(lines))
	for _, line := range lines {
		product, exists := products[line.ProductID]
		if !exists {
			return domain.Sale{}, fmt.Errorf("product %s: %w", line.ProductID, store.ErrNotFound)
		}
		// Unit prices are captured here so later product edits never
		// rewrite a sale's history.
		items = append(items, store.SaleItemInput{
			ProductID:     product.ID,
			Quantity:      line.Quantity,
			UnitPrice:     product.SalePrice,
			UnitCostPrice: product.CostPrice,
		})
	}

	now := s.now()
	created, err := s.repo.CreateSale(ctx, domain.Sale{
		ID:            xid.New("sale"),
		CashSessionID: session.ID,
		SaleDate:      now,
		PaymentType:   req.PaymentType,
		Status:        domain.SaleStatusCompleted,
		CreatedAt:     now,
	}, items)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("total=%s,pieces=%s,payment=%s", created.TotalAmount, created.TotalPieces, created.PaymentType))
	s.invalidateReports(ctx)
	return *created, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSessionSales(ctx context.Context, sessionID string) ([]domain.Sale, error) {
	if sessionID == "" {
		open, err := s.repo.GetOpenCashSession(ctx)
		if err != nil {
			return nil, err
		}
		sessionID = open.ID
	}
	return s.repo.ListSessionSales(ctx, sessionID)
}

func (s *Service) RemoveSaleItem(ctx context.Context, saleID string, itemID string) (domain.Sale, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson); err != nil {
		return domain.Sale{}, err
	}

	updated, err := s.repo.RemoveSaleItem(ctx, saleID, itemID)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_item_remove", "sale", updated.ID, fmt.Sprintf("item=%s,status=%s", itemID, updated.Status))
	s.invalidateReports(ctx)
	return *updated, nil
}

func (s *Service) VoidSale(ctx context.Context, saleID string) (domain.Sale, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson); err != nil {
		return domain.Sale{}, err
	}

	voided, err := s.repo.VoidSale(ctx, saleID, s.now())
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_void", "sale", voided.ID, fmt.Sprintf("total=%s", voided.TotalAmount))
	s.invalidateReports(ctx)
	return *voided, nil
}

func (s *Service) UpdatePaymentType(ctx context.Context, saleID string, req domain.PaymentTypeUpdateRequest) (domain.Sale, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson); err != nil {
		return domain.Sale{}, err
	}

	req.PaymentType = strings.ToLower(strings.TrimSpace(req.PaymentType))
	if !isSupportedPaymentType(req.PaymentType) {
		return domain.Sale{}, fmt.Errorf("payment type %q: %w", req.PaymentType, store.ErrValidation)
	}

	updated, err := s.repo.UpdateSalePaymentType(ctx, saleID, req.PaymentType)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_payment_update", "sale", updated.ID, req.PaymentType)
	return *updated, nil
}

func (s *Service) AddPriceBucket(ctx context.Context, req domain.AccessoryBucketRequest) (domain.AccessoryStock, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.AccessoryStock{}, err
	}

	if !req.Price.IsPositive() {
		return domain.AccessoryStock{}, fmt.Errorf("bucket price: %w", store.ErrValidation)
	}
	if req.Quantity.IsNegative() {
		return domain.AccessoryStock{}, fmt.Errorf("bucket quantity: %w", store.ErrValidation)
	}

	bucket, err := s.repo.UpsertAccessoryBucket(ctx, req.Price, req.Quantity, s.now())
	if err != nil {
		return domain.AccessoryStock{}, err
	}

	s.logAudit(ctx, "accessory_bucket_upsert", "accessory_stock", bucket.ID, fmt.Sprintf("price=%s,added=%s", bucket.Price, req.Quantity))
	return *bucket, nil
}

func (s *Service) SellAccessory(ctx context.Context, req domain.AccessorySellRequest) (domain.AccessorySale, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson); err != nil {
		return domain.AccessorySale{}, err
	}

	if !req.Quantity.IsPositive() {
		return domain.AccessorySale{}, fmt.Errorf("sell quantity: %w", store.ErrValidation)
	}

	sale, err := s.repo.SellAccessory(ctx, req.Price, req.Quantity, s.now())
	if err != nil {
		return domain.AccessorySale{}, err
	}

	s.logAudit(ctx, "accessory_sell", "accessory_sale", sale.ID, fmt.Sprintf("price=%s,qty=%s", sale.Price, sale.Quantity))
	return *sale, nil
}

func (s *Service) AdjustAccessoryStock(ctx context.Context, req domain.AccessoryAdjustRequest) (domain.AccessoryStock, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.AccessoryStock{}, err
	}

	if req.Delta.IsZero() {
		return domain.AccessoryStock{}, fmt.Errorf("zero delta: %w", store.ErrValidation)
	}

	bucket, err := s.repo.AdjustAccessoryStock(ctx, req.Price, req.Delta, s.now())
	if err != nil {
		return domain.AccessoryStock{}, err
	}

	s.logAudit(ctx, "accessory_adjust", "accessory_stock", bucket.ID, fmt.Sprintf("price=%s,delta=%s", bucket.Price, req.Delta))
	return *bucket, nil
}

func (s *Service) ToggleRemittance(ctx context.Context, saleID string) (domain.AccessorySale, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.AccessorySale{}, err
	}

	sale, err := s.repo.ToggleAccessoryRemittance(ctx, saleID)
	if err != nil {
		return domain.AccessorySale{}, err
	}

	s.logAudit(ctx, "accessory_remittance_toggle", "accessory_sale", sale.ID, fmt.Sprintf("remitted=%t", sale.Remitted))
	return *sale, nil
}

func (s *Service) ListAccessoryStock(ctx context.Context) ([]domain.AccessoryStock, error) {
	return s.repo.ListAccessoryStock(ctx)
}

// AccessorySalesInPeriod annotates each sale with its read-time subtotal and
// the fixed 50% supplier share, then totals the period including how much
// share is still pending remittance.
func (s *Service) AccessorySalesInPeriod(ctx context.Context, fromDate string, toDate string) (domain.AccessorySalesSummary, error) {
	from, to, err := s.parsePeriod(fromDate, toDate)
	if err != nil {
		return domain.AccessorySalesSummary{}, err
	}

	sales, err := s.repo.ListAccessorySales(ctx, from, to)
	if err != nil {
		return domain.AccessorySalesSummary{}, err
	}

	summary := domain.AccessorySalesSummary{
		Pieces:       decimal.Zero,
		TotalSold:    decimal.Zero,
		ProfitShare:  decimal.Zero,
		PendingRemit: decimal.Zero,
		Sales:        make([]domain.AccessorySaleView, 0, len(sales)),
	}
	for _, sale := range sales {
		subtotal := sale.Price.Mul(sale.Quantity)
		share := subtotal.Mul(domain.AccessoryProfitShare)
		summary.Pieces = summary.Pieces.Add(sale.Quantity)
		summary.TotalSold = summary.TotalSold.Add(subtotal)
		summary.ProfitShare = summary.ProfitShare.Add(share)
		if !sale.Remitted {
			summary.PendingRemit = summary.PendingRemit.Add(share)
		}
		summary.Sales = append(summary.Sales, domain.AccessorySaleView{
			AccessorySale: sale,
			Subtotal:      subtotal,
			ProfitShare:   share,
		})
	}
	return summary, nil
}

func (s *Service) CreatePayable(ctx context.Context, req domain.PayableCreateRequest) (domain.PayableView, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.PayableView{}, err
	}

	req.Supplier = strings.TrimSpace(req.Supplier)
	if req.Supplier == "" {
		return domain.PayableView{}, fmt.Errorf("supplier: %w", store.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return domain.PayableView{}, fmt.Errorf("payable amount: %w", store.ErrValidation)
	}
	dueDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.DueDate))
	if err != nil {
		return domain.PayableView{}, fmt.Errorf("due date: %w", store.ErrValidation)
	}

	created, err := s.repo.CreatePayable(ctx, domain.AccountPayable{
		ID:          xid.New("ap"),
		Supplier:    req.Supplier,
		Description: strings.TrimSpace(req.Description),
		DueDate:     dueDate.UTC(),
		Amount:      req.Amount,
		Note:        strings.TrimSpace(req.Note),
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.PayableView{}, err
	}

	s.logAudit(ctx, "payable_create", "payable", created.ID, fmt.Sprintf("supplier=%s,amount=%s", created.Supplier, created.Amount))
	return s.payableView(*created), nil
}

func (s *Service) MarkPayablePaid(ctx context.Context, id string) (domain.PayableView, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.PayableView{}, err
	}

	existing, err := s.repo.GetPayableByID(ctx, id)
	if err != nil {
		return domain.PayableView{}, err
	}
	if existing.PaidDate != nil {
		return domain.PayableView{}, fmt.Errorf("already paid: %w", store.ErrInvalidState)
	}

	paidAt := s.now()
	existing.PaidDate = &paidAt
	saved, err := s.repo.UpdatePayable(ctx, *existing)
	if err != nil {
		return domain.PayableView{}, err
	}

	s.logAudit(ctx, "payable_paid", "payable", saved.ID, fmt.Sprintf("supplier=%s,amount=%s", saved.Supplier, saved.Amount))
	return s.payableView(*saved), nil
}

func (s *Service) UpdatePayable(ctx context.Context, id string, req domain.PayableUpdateRequest) (domain.PayableView, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return domain.PayableView{}, err
	}

	existing, err := s.repo.GetPayableByID(ctx, id)
	if err != nil {
		return domain.PayableView{}, err
	}

	updated := *existing
	if req.Supplier != nil {
		supplier := strings.TrimSpace(*req.Supplier)
		if supplier == "" {
			return domain.PayableView{}, fmt.Errorf("supplier: %w", store.ErrValidation)
		}
		updated.Supplier = supplier
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse("2006-01-02", strings.TrimSpace(*req.DueDate))
		if err != nil {
			return domain.PayableView{}, fmt.Errorf("due date: %w", store.ErrValidation)
		}
		updated.DueDate = dueDate.UTC()
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return domain.PayableView{}, fmt.Errorf("payable amount: %w", store.ErrValidation)
		}
		updated.Amount = *req.Amount
	}
	if req.Note != nil {
		updated.Note = strings.TrimSpace(*req.Note)
	}

	saved, err := s.repo.UpdatePayable(ctx, updated)
	if err != nil {
		return domain.PayableView{}, err
	}

	s.logAudit(ctx, "payable_update", "payable", saved.ID, fmt.Sprintf("supplier=%s,due=%s", saved.Supplier, saved.DueDate.Format("2006-01-02")))
	return s.payableView(*saved), nil
}

func (s *Service) ListPayables(ctx context.Context, fromDate string, toDate string, statusFilter string) ([]domain.PayableView, error) {
	var from, to *time.Time
	if strings.TrimSpace(fromDate) != "" || strings.TrimSpace(toDate) != "" {
		f, t, err := s.parsePeriod(fromDate, toDate)
		if err != nil {
			return nil, err
		}
		from, to = &f, &t
	}

	payables, err := s.repo.ListPayables(ctx, from, to)
	if err != nil {
		return nil, err
	}

	statusFilter = strings.ToLower(strings.TrimSpace(statusFilter))
	views := make([]domain.PayableView, 0, len(payables))
	for _, payable := range payables {
		view := s.payableView(payable)
		if statusFilter != "" && view.Status != statusFilter {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) payableView(payable domain.AccountPayable) domain.PayableView {
	return domain.PayableView{
		AccountPayable: payable,
		Status:         payable.Status(s.now()),
	}
}

// PeriodSummary aggregates non-voided sales inside the inclusive date range.
// Results are served from the report cache for up to a minute; any sale or
// session mutation drops the cache.
func (s *Service) PeriodSummary(ctx context.Context, fromDate string, toDate string) (domain.PeriodSummary, error) {
	from, to, err := s.parsePeriod(fromDate, toDate)
	if err != nil {
		return domain.PeriodSummary{}, err
	}

	fromKey := from.Format("2006-01-02")
	toKey := to.Format("2006-01-02")
	if cached, hit, err := s.reports.Get(ctx, fromKey, toKey); err != nil {
		log.Printf("[service] WARN: report cache read failed: %v", err)
	} else if hit {
		return *cached, nil
	}

	summary, err := s.repo.GetPeriodSummary(ctx, from, to)
	if err != nil {
		return domain.PeriodSummary{}, err
	}

	if err := s.reports.Set(ctx, fromKey, toKey, &summary, summaryCacheTTL); err != nil {
		log.Printf("[service] WARN: report cache write failed: %v", err)
	}
	return summary, nil
}

func (s *Service) TopProducts(ctx context.Context, fromDate string, toDate string, limit int) ([]domain.TopProduct, error) {
	from, to, err := s.parsePeriod(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 5
	}
	return s.repo.GetTopProducts(ctx, from, to, limit)
}

func (s *Service) StockValuation(ctx context.Context) (domain.StockValuation, error) {
	return s.repo.GetStockValuation(ctx)
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleManager); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("date: %w", store.ErrValidation)
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserView, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserView{}, err
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))

	if req.Username == "" || len(req.Password) < 8 {
		return domain.UserView{}, fmt.Errorf("username and password (min 8 chars): %w", store.ErrValidation)
	}
	if req.Role != domain.RoleAdmin && req.Role != domain.RoleManager && req.Role != domain.RoleSalesperson {
		return domain.UserView{}, fmt.Errorf("role %q: %w", req.Role, store.ErrValidation)
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserView{}, fmt.Errorf("hash password: %w", err)
	}

	account := domain.UserAccount{
		Username:    req.Username,
		Password:    string(hash),
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Active:      true,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateUser(ctx, account); err != nil {
		return domain.UserView{}, err
	}

	s.logAudit(ctx, "user_create", "user", account.Username, account.Role)
	return userView(account), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}

	accounts, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.UserView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, userView(account))
	}
	return views, nil
}

func (s *Service) SetUserActive(ctx context.Context, username string, active bool) error {
	actor, err := s.requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == actor.Username && !active {
		return fmt.Errorf("cannot deactivate own account: %w", store.ErrValidation)
	}
	if err := s.repo.SetUserActive(ctx, username, active); err != nil {
		return err
	}

	s.logAudit(ctx, "user_set_active", "user", username, fmt.Sprintf("active=%t", active))
	return nil
}

func (s *Service) ResetUserPassword(ctx context.Context, username string, password string) error {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if len(password) < 8 {
		return fmt.Errorf("password (min 8 chars): %w", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, username, string(hash)); err != nil {
		return err
	}

	s.logAudit(ctx, "user_password_reset", "user", username, "")
	return nil
}

// parsePeriod turns two "2006-01-02" dates into an inclusive UTC range.
// Empty from defaults to 30 days back, empty to defaults to today.
func (s *Service) parsePeriod(fromDate string, toDate string) (time.Time, time.Time, error) {
	now := s.now()
	from := now.AddDate(0, 0, -30)
	to := now

	if strings.TrimSpace(fromDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(fromDate))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from date: %w", store.ErrValidation)
		}
		from = parsed.UTC()
	}
	if strings.TrimSpace(toDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(toDate))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to date: %w", store.ErrValidation)
		}
		to = parsed.UTC()
	}

	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 999999999, time.UTC)
	if to.Before(from) {
		from, to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC), time.Date(from.Year(), from.Month(), from.Day(), 23, 59, 59, 999999999, time.UTC)
	}
	return from, to, nil
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: report cache invalidation failed: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func userView(account domain.UserAccount) domain.UserView {
	return domain.UserView{
		Username:    account.Username,
		DisplayName: account.DisplayName,
		Role:        account.Role,
		Active:      account.Active,
		CreatedAt:   account.CreatedAt,
	}
}

func isSupportedPaymentType(paymentType string) bool {
	switch paymentType {
	case domain.PaymentCash, domain.PaymentDebit, domain.PaymentCredit, domain.PaymentPix, domain.PaymentOther:
		return true
	default:
		return false
	}
}

// normalizeCartLines merges duplicate product lines by summing quantities.
// A non-positive quantity on any line rejects the whole cart.
func normalizeCartLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	agg := make(map[string]decimal.Decimal, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == "" {
			return nil, fmt.Errorf("cart line product id: %w", store.ErrValidation)
		}
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("cart line quantity: %w", store.ErrValidation)
		}
		if _, seen := agg[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		agg[line.ProductID] = agg[line.ProductID].Add(line.Quantity)
	}

	normalized := make([]domain.CartLine, 0, len(agg))
	for _, id := range order {
		normalized = append(normalized, domain.CartLine{ProductID: id, Quantity: agg[id]})
	}
	return normalized, nil
}
