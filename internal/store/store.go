package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"modastore/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)

// SaleItemInput is a fully priced line handed to CreateSale. Unit prices are
// captured by the service at sale time so historical cost survives later
// product edits.
type SaleItemInput struct {
	ProductID     string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	UnitCostPrice decimal.Decimal
}

// Repository is the persistence boundary. Every mutating method that touches
// more than one entity commits or rolls back as a single unit.
type Repository interface {
	CreateCategory(ctx context.Context, category domain.ProductCategory) (*domain.ProductCategory, error)
	UpdateCategory(ctx context.Context, category domain.ProductCategory) (*domain.ProductCategory, error)
	GetCategoryByID(ctx context.Context, id string) (*domain.ProductCategory, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.ProductCategory, error)

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductByCode(ctx context.Context, code string) (*domain.Product, error)
	ListProducts(ctx context.Context, search string, activeOnly bool) ([]domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// CreateStockEntry appends the entry and increments the product's
	// running stock in the same unit of work.
	CreateStockEntry(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error)
	ListStockEntries(ctx context.Context, from time.Time, to time.Time) ([]domain.StockEntryWithProduct, error)

	// OpenCashSession fails with ErrConflict when a session is already open.
	OpenCashSession(ctx context.Context, session domain.CashSession) (*domain.CashSession, error)
	CloseCashSession(ctx context.Context, sessionID string, countedAmount decimal.Decimal, note string, closedAt time.Time) (*domain.CashSession, error)
	GetOpenCashSession(ctx context.Context) (*domain.CashSession, error)
	GetCashSessionByID(ctx context.Context, id string) (*domain.CashSession, error)
	ListCashSessions(ctx context.Context, from time.Time, to time.Time) ([]domain.CashSession, error)

	// CreateSale persists the sale, its items, and the product stock
	// decrements atomically.
	CreateSale(ctx context.Context, sale domain.Sale, items []SaleItemInput) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSessionSales(ctx context.Context, sessionID string) ([]domain.Sale, error)
	// RemoveSaleItem deletes the item, restores product stock, recomputes
	// the parent totals, and voids the sale when no pieces remain.
	RemoveSaleItem(ctx context.Context, saleID string, itemID string) (*domain.Sale, error)
	// VoidSale restores stock for every remaining item and marks the sale
	// voided; items are kept as the audit trail.
	VoidSale(ctx context.Context, saleID string, at time.Time) (*domain.Sale, error)
	UpdateSalePaymentType(ctx context.Context, saleID string, paymentType string) (*domain.Sale, error)

	// UpsertAccessoryBucket merges by adding quantity when a bucket at the
	// exact price already exists, appending an entry for the increase.
	UpsertAccessoryBucket(ctx context.Context, price decimal.Decimal, quantity decimal.Decimal, at time.Time) (*domain.AccessoryStock, error)
	SellAccessory(ctx context.Context, price decimal.Decimal, quantity decimal.Decimal, at time.Time) (*domain.AccessorySale, error)
	AdjustAccessoryStock(ctx context.Context, price decimal.Decimal, delta decimal.Decimal, at time.Time) (*domain.AccessoryStock, error)
	ToggleAccessoryRemittance(ctx context.Context, saleID string) (*domain.AccessorySale, error)
	ListAccessoryStock(ctx context.Context) ([]domain.AccessoryStock, error)
	ListAccessorySales(ctx context.Context, from time.Time, to time.Time) ([]domain.AccessorySale, error)

	CreatePayable(ctx context.Context, payable domain.AccountPayable) (*domain.AccountPayable, error)
	UpdatePayable(ctx context.Context, payable domain.AccountPayable) (*domain.AccountPayable, error)
	GetPayableByID(ctx context.Context, id string) (*domain.AccountPayable, error)
	ListPayables(ctx context.Context, from *time.Time, to *time.Time) ([]domain.AccountPayable, error)

	GetPeriodSummary(ctx context.Context, from time.Time, to time.Time) (domain.PeriodSummary, error)
	GetTopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error)
	GetStockValuation(ctx context.Context) (domain.StockValuation, error)
	GetSessionSalesTotal(ctx context.Context, sessionID string) (decimal.Decimal, int64, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
	SetUserActive(ctx context.Context, username string, active bool) error
}
