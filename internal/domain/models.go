package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleSalesperson = "salesperson"
)

const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)

const (
	SaleStatusCompleted = "completed"
	SaleStatusVoided    = "voided"
)

const (
	PaymentCash   = "cash"
	PaymentDebit  = "debit"
	PaymentCredit = "credit"
	PaymentPix    = "pix"
	PaymentOther  = "other"
)

const (
	PayableStatusPaid    = "paid"
	PayableStatusOverdue = "overdue"
	PayableStatusOpen    = "open"
)

// AccessoryProfitShare is the supplier profit split applied at read time to
// accessory sales. It is never stored.
var AccessoryProfitShare = decimal.NewFromFloat(0.5)

type ProductCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type Product struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"category_id,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	ImagePath    string          `json:"image_path,omitempty"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"category_id"`
	Brand        string          `json:"brand"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	InitialStock decimal.Decimal `json:"initial_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	ImagePath    string          `json:"image_path"`
}

type ProductUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	CategoryID   *string          `json:"category_id,omitempty"`
	Brand        *string          `json:"brand,omitempty"`
	CostPrice    *decimal.Decimal `json:"cost_price,omitempty"`
	SalePrice    *decimal.Decimal `json:"sale_price,omitempty"`
	CurrentStock *decimal.Decimal `json:"current_stock,omitempty"`
	MinStock     *decimal.Decimal `json:"min_stock,omitempty"`
	ImagePath    *string          `json:"image_path,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}

// StockEntry is an append-only audit record of a stock increase. Decreases
// from sales are never ledgered here; they show up only in SaleItem rows and
// the product's running stock.
type StockEntry struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	EntryDate time.Time       `json:"entry_date"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type StockEntryCreateRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	EntryDate string          `json:"entry_date,omitempty"`
	Note      string          `json:"note"`
}

type StockEntryWithProduct struct {
	Entry       StockEntry `json:"entry"`
	ProductCode string     `json:"product_code"`
	ProductName string     `json:"product_name"`
}

type CashSession struct {
	ID            string           `json:"id"`
	OpenedAt      time.Time        `json:"opened_at"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`
	OpeningAmount decimal.Decimal  `json:"opening_amount"`
	ClosingAmount *decimal.Decimal `json:"closing_amount,omitempty"`
	Status        string           `json:"status"`
	Note          string           `json:"note,omitempty"`
}

type SessionOpenRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount"`
	Note          string          `json:"note"`
}

type SessionCloseRequest struct {
	CountedAmount decimal.Decimal `json:"counted_amount"`
	Note          string          `json:"note"`
}

type CartLine struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type SaleCreateRequest struct {
	CartLines   []CartLine `json:"cart_lines"`
	PaymentType string     `json:"payment_type"`
}

type Sale struct {
	ID            string          `json:"id"`
	CashSessionID string          `json:"cash_session_id"`
	SaleDate      time.Time       `json:"sale_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	TotalPieces   decimal.Decimal `json:"total_pieces"`
	PaymentType   string          `json:"payment_type"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SaleItem      `json:"items,omitempty"`
}

type SaleItem struct {
	ID            string          `json:"id"`
	SaleID        string          `json:"sale_id"`
	ProductID     string          `json:"product_id"`
	ProductCode   string          `json:"product_code,omitempty"`
	ProductName   string          `json:"product_name,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	UnitCostPrice decimal.Decimal `json:"unit_cost_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	LineProfit    decimal.Decimal `json:"line_profit"`
}

type PaymentTypeUpdateRequest struct {
	PaymentType string `json:"payment_type"`
}

// AccessoryStock is an inventory row keyed by unit price instead of SKU.
type AccessoryStock struct {
	ID        string          `json:"id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type AccessorySale struct {
	ID        string          `json:"id"`
	SaleDate  time.Time       `json:"sale_date"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Remitted  bool            `json:"remitted"`
	CreatedAt time.Time       `json:"created_at"`
}

// AccessorySaleView annotates a sale with its read-time derived amounts.
type AccessorySaleView struct {
	AccessorySale
	Subtotal    decimal.Decimal `json:"subtotal"`
	ProfitShare decimal.Decimal `json:"profit_share"`
}

type AccessoryStockEntry struct {
	ID        string          `json:"id"`
	EntryDate time.Time       `json:"entry_date"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type AccessoryBucketRequest struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type AccessorySellRequest struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type AccessoryAdjustRequest struct {
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
}

type AccessorySalesSummary struct {
	Pieces       decimal.Decimal     `json:"pieces"`
	TotalSold    decimal.Decimal     `json:"total_sold"`
	ProfitShare  decimal.Decimal     `json:"profit_share"`
	PendingRemit decimal.Decimal     `json:"pending_remittance"`
	Sales        []AccessorySaleView `json:"sales"`
}

type AccountPayable struct {
	ID          string          `json:"id"`
	Supplier    string          `json:"supplier"`
	Description string          `json:"description,omitempty"`
	DueDate     time.Time       `json:"due_date"`
	PaidDate    *time.Time      `json:"paid_date,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Status derives the payable state from its dates at evaluation time.
// Overdue is time-relative so it is never stored.
func (p AccountPayable) Status(today time.Time) string {
	if p.PaidDate != nil {
		return PayableStatusPaid
	}
	if p.DueDate.Before(truncateDay(today)) {
		return PayableStatusOverdue
	}
	return PayableStatusOpen
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type PayableView struct {
	AccountPayable
	Status string `json:"status"`
}

type PayableCreateRequest struct {
	Supplier    string          `json:"supplier"`
	Description string          `json:"description"`
	DueDate     string          `json:"due_date"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
}

type PayableUpdateRequest struct {
	Supplier    *string          `json:"supplier,omitempty"`
	Description *string          `json:"description,omitempty"`
	DueDate     *string          `json:"due_date,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Note        *string          `json:"note,omitempty"`
}

type PeriodSummary struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	TotalPieces   decimal.Decimal `json:"total_pieces"`
	SaleCount     int64           `json:"sale_count"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
}

type TopProduct struct {
	ProductID    string          `json:"product_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
	AmountSold   decimal.Decimal `json:"amount_sold"`
}

type StockValuation struct {
	CostValue   decimal.Decimal `json:"cost_value"`
	RetailValue decimal.Decimal `json:"retail_value"`
	Products    int64           `json:"products"`
}

type SessionReport struct {
	Session    CashSession     `json:"session"`
	SalesTotal decimal.Decimal `json:"sales_total"`
	SaleCount  int64           `json:"sale_count"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type UserView struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
	Active      bool
	CreatedAt   time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type AgentAskRequest struct {
	Question string `json:"question"`
}

type AgentAskResponse struct {
	Answer string `json:"answer"`
}
