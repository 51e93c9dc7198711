package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"modastore/backend/internal/domain"
	"modastore/backend/internal/store"
	"modastore/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	categoriesByID   map[string]domain.ProductCategory
	productsByID     map[string]domain.Product
	stockEntries     []domain.StockEntry
	sessionsByID     map[string]domain.CashSession
	openSessionID    string
	salesByID        map[string]*domain.Sale
	accessoryBuckets map[string]domain.AccessoryStock
	accessorySales   map[string]domain.AccessorySale
	accessoryEntries []domain.AccessoryStockEntry
	payablesByID     map[string]domain.AccountPayable
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

// priceKey normalizes a bucket price to its natural-key form. Buckets are
// keyed by exact price at two decimal places.
func priceKey(price decimal.Decimal) string {
	return price.StringFixed(2)
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and
// SEED_SELLER_PASSWORD environment variables. If unset, hardcoded dev
// defaults are used with a warning printed to stdout. These credentials are
// never used in production (the backend uses PostgreSQL when DATABASE_URL is
// set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	sellerPwd := envOr("SEED_SELLER_PASSWORD", "seller123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SELLER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and SEED_SELLER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		display  string
		role     string
	}{
		{"admin", adminPwd, "Administrator", domain.RoleAdmin},
		{"manager", managerPwd, "Store Manager", domain.RoleManager},
		{"seller", sellerPwd, "Salesperson", domain.RoleSalesperson},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:    u.username,
			Password:    string(hash),
			DisplayName: u.display,
			Role:        u.role,
			Active:      true,
			CreatedAt:   now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		categoriesByID:   make(map[string]domain.ProductCategory),
		productsByID:     make(map[string]domain.Product),
		stockEntries:     make([]domain.StockEntry, 0, 64),
		sessionsByID:     make(map[string]domain.CashSession),
		salesByID:        make(map[string]*domain.Sale),
		accessoryBuckets: make(map[string]domain.AccessoryStock),
		accessorySales:   make(map[string]domain.AccessorySale),
		accessoryEntries: make([]domain.AccessoryStockEntry, 0, 64),
		payablesByID:     make(map[string]domain.AccountPayable),
		auditLogs:        make([]domain.AuditLog, 0, 128),
		usersByUsername:  seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	categories := []domain.ProductCategory{
		{ID: "cat-seed-tshirts", Name: "Camisetas", Description: "T-shirts and tops", Active: true, CreatedAt: now},
		{ID: "cat-seed-jeans", Name: "Jeans", Description: "Denim", Active: true, CreatedAt: now},
		{ID: "cat-seed-dresses", Name: "Vestidos", Description: "Dresses", Active: true, CreatedAt: now},
	}
	for _, c := range categories {
		s.categoriesByID[c.ID] = c
	}

	products := []domain.Product{
		{ID: "prod-seed-cam001", Code: "CAM001", Name: "Camiseta Basica Branca", CategoryID: "cat-seed-tshirts", Brand: "Hering", CostPrice: decimal.NewFromFloat(18.00), SalePrice: decimal.NewFromFloat(39.90), CurrentStock: decimal.NewFromInt(40), MinStock: decimal.NewFromInt(10), Active: true, CreatedAt: now},
		{ID: "prod-seed-cam002", Code: "CAM002", Name: "Camiseta Estampada", CategoryID: "cat-seed-tshirts", Brand: "Hering", CostPrice: decimal.NewFromFloat(22.50), SalePrice: decimal.NewFromFloat(49.90), CurrentStock: decimal.NewFromInt(25), MinStock: decimal.NewFromInt(8), Active: true, CreatedAt: now},
		{ID: "prod-seed-jea001", Code: "JEA001", Name: "Calca Jeans Skinny", CategoryID: "cat-seed-jeans", Brand: "Levi's", CostPrice: decimal.NewFromFloat(65.00), SalePrice: decimal.NewFromFloat(149.90), CurrentStock: decimal.NewFromInt(18), MinStock: decimal.NewFromInt(5), Active: true, CreatedAt: now},
		{ID: "prod-seed-ves001", Code: "VES001", Name: "Vestido Midi Floral", CategoryID: "cat-seed-dresses", Brand: "Farm", CostPrice: decimal.NewFromFloat(80.00), SalePrice: decimal.NewFromFloat(189.90), CurrentStock: decimal.NewFromInt(12), MinStock: decimal.NewFromInt(4), Active: true, CreatedAt: now},
	}
	for _, p := range products {
		s.productsByID[p.ID] = p
	}

	return s
}

func (s *Store) CreateCategory(_ context.Context, category domain.ProductCategory) (*domain.ProductCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categoriesByID {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrConflict
		}
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	s.categoriesByID[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.ProductCategory) (*domain.ProductCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.categoriesByID[category.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.categoriesByID {
		if id != category.ID && strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrConflict
		}
	}
	category.CreatedAt = current.CreatedAt
	s.categoriesByID[category.ID] = category
	updated := category
	return &updated, nil
}

func (s *Store) GetCategoryByID(_ context.Context, id string) (*domain.ProductCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categoriesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCategory := category
	return &copyCategory, nil
}

func (s *Store) ListCategories(_ context.Context, activeOnly bool) ([]domain.ProductCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.ProductCategory, 0, len(s.categoriesByID))
	for _, c := range s.categoriesByID {
		if activeOnly && !c.Active {
			continue
		}
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.ProductCategory) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.productsByID {
		if existing.Code == product.Code {
			return nil, store.ErrConflict
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.productsByID[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.productsByID {
		if id != product.ID && existing.Code == product.Code {
			return nil, store.ErrConflict
		}
	}
	product.CreatedAt = current.CreatedAt
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.productsByID {
		if product.Code == code {
			copyProduct := product
			return &copyProduct, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListProducts(_ context.Context, search string, activeOnly bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if activeOnly && !p.Active {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Code), needle) &&
			!strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Code, b.Code)
	})
	return products, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, exists := s.productsByID[id]; exists {
			result[id] = product
		}
	}
	return result, nil
}

func (s *Store) CreateStockEntry(_ context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[entry.ProductID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !entry.Quantity.IsPositive() {
		return nil, store.ErrValidation
	}
	if entry.ID == "" {
		entry.ID = xid.New("entry")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	product.CurrentStock = product.CurrentStock.Add(entry.Quantity)
	s.productsByID[product.ID] = product
	s.stockEntries = append(s.stockEntries, entry)

	created := entry
	return &created, nil
}

func (s *Store) ListStockEntries(_ context.Context, from time.Time, to time.Time) ([]domain.StockEntryWithProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockEntryWithProduct, 0, len(s.stockEntries))
	for _, entry := range s.stockEntries {
		if entry.EntryDate.Before(from) || entry.EntryDate.After(to) {
			continue
		}
		product := s.productsByID[entry.ProductID]
		result = append(result, domain.StockEntryWithProduct{
			Entry:       entry,
			ProductCode: product.Code,
			ProductName: product.Name,
		})
	}
	slices.SortFunc(result, func(a, b domain.StockEntryWithProduct) int {
		if a.Entry.EntryDate.Equal(b.Entry.EntryDate) {
			return cmpString(b.Entry.ID, a.Entry.ID)
		}
		if a.Entry.EntryDate.After(b.Entry.EntryDate) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) OpenCashSession(_ context.Context, session domain.CashSession) (*domain.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openSessionID != "" {
		return nil, store.ErrConflict
	}
	if session.ID == "" {
		session.ID = xid.New("sess")
	}
	session.Status = domain.SessionStatusOpen
	s.sessionsByID[session.ID] = session
	s.openSessionID = session.ID

	created := session
	return &created, nil
}

func (s *Store) CloseCashSession(_ context.Context, sessionID string, countedAmount decimal.Decimal, note string, closedAt time.Time) (*domain.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessionsByID[sessionID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if session.Status != domain.SessionStatusOpen {
		return nil, store.ErrInvalidState
	}

	session.Status = domain.SessionStatusClosed
	session.ClosedAt = &closedAt
	session.ClosingAmount = &countedAmount
	if note != "" {
		session.Note = note
	}
	s.sessionsByID[sessionID] = session
	if s.openSessionID == sessionID {
		s.openSessionID = ""
	}

	closed := session
	return &closed, nil
}

func (s *Store) GetOpenCashSession(_ context.Context) (*domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.openSessionID == "" {
		return nil, store.ErrNotFound
	}
	session := s.sessionsByID[s.openSessionID]
	copySession := session
	return &copySession, nil
}

func (s *Store) GetCashSessionByID(_ context.Context, id string) (*domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySession := session
	return &copySession, nil
}

func (s *Store) ListCashSessions(_ context.Context, from time.Time, to time.Time) ([]domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]domain.CashSession, 0, len(s.sessionsByID))
	for _, session := range s.sessionsByID {
		if session.OpenedAt.Before(from) || session.OpenedAt.After(to) {
			continue
		}
		sessions = append(sessions, session)
	}
	slices.SortFunc(sessions, func(a, b domain.CashSession) int {
		if a.OpenedAt.Equal(b.OpenedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.OpenedAt.After(b.OpenedAt) {
			return -1
		}
		return 1
	})
	return sessions, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, items []store.SaleItemInput) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessionsByID[sale.CashSessionID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if session.Status != domain.SessionStatusOpen {
		return nil, store.ErrInvalidState
	}
	if len(items) == 0 {
		return nil, store.ErrValidation
	}
	for _, item := range items {
		if _, ok := s.productsByID[item.ProductID]; !ok {
			return nil, store.ErrNotFound
		}
		if !item.Quantity.IsPositive() {
			return nil, store.ErrValidation
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	sale.Status = domain.SaleStatusCompleted
	sale.TotalAmount = decimal.Zero
	sale.TotalProfit = decimal.Zero
	sale.TotalPieces = decimal.Zero
	sale.Items = make([]domain.SaleItem, 0, len(items))

	for _, input := range items {
		product := s.productsByID[input.ProductID]
		// Stock may go negative here; overselling is reconciled by staff.
		product.CurrentStock = product.CurrentStock.Sub(input.Quantity)
		s.productsByID[product.ID] = product

		subtotal := input.UnitPrice.Mul(input.Quantity)
		lineProfit := input.UnitPrice.Sub(input.UnitCostPrice).Mul(input.Quantity)
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:            xid.New("item"),
			SaleID:        sale.ID,
			ProductID:     product.ID,
			ProductCode:   product.Code,
			ProductName:   product.Name,
			Quantity:      input.Quantity,
			UnitPrice:     input.UnitPrice,
			UnitCostPrice: input.UnitCostPrice,
			Subtotal:      subtotal,
			LineProfit:    lineProfit,
		})
		sale.TotalAmount = sale.TotalAmount.Add(subtotal)
		sale.TotalProfit = sale.TotalProfit.Add(lineProfit)
		sale.TotalPieces = sale.TotalPieces.Add(input.Quantity)
	}

	stored := sale
	s.salesByID[sale.ID] = &stored
	return cloneSale(&stored), nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSessionSales(_ context.Context, sessionID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 8)
	for _, sale := range s.salesByID {
		if sale.CashSessionID != sessionID {
			continue
		}
		sales = append(sales, *cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Store) RemoveSaleItem(_ context.Context, saleID string, itemID string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sale.Status == domain.SaleStatusVoided {
		return nil, store.ErrInvalidState
	}

	idx := -1
	for i, item := range sale.Items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, store.ErrNotFound
	}

	item := sale.Items[idx]
	if product, ok := s.productsByID[item.ProductID]; ok {
		product.CurrentStock = product.CurrentStock.Add(item.Quantity)
		s.productsByID[product.ID] = product
	}

	sale.TotalAmount = sale.TotalAmount.Sub(item.Subtotal)
	sale.TotalProfit = sale.TotalProfit.Sub(item.LineProfit)
	sale.TotalPieces = sale.TotalPieces.Sub(item.Quantity)
	sale.Items = append(sale.Items[:idx], sale.Items[idx+1:]...)
	if !sale.TotalPieces.IsPositive() {
		sale.Status = domain.SaleStatusVoided
	}

	return cloneSale(sale), nil
}

func (s *Store) VoidSale(_ context.Context, saleID string, _ time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sale.Status == domain.SaleStatusVoided {
		return nil, store.ErrInvalidState
	}

	for _, item := range sale.Items {
		if product, ok := s.productsByID[item.ProductID]; ok {
			product.CurrentStock = product.CurrentStock.Add(item.Quantity)
			s.productsByID[product.ID] = product
		}
	}
	sale.Status = domain.SaleStatusVoided

	return cloneSale(sale), nil
}

func (s *Store) UpdateSalePaymentType(_ context.Context, saleID string, paymentType string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sale.Status == domain.SaleStatusVoided {
		return nil, store.ErrInvalidState
	}

	sale.PaymentType = paymentType
	return cloneSale(sale), nil
}

func (s *Store) UpsertAccessoryBucket(_ context.Context, price decimal.Decimal, quantity decimal.Decimal, at time.Time) (*domain.AccessoryStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !price.IsPositive() || quantity.IsNegative() {
		return nil, store.ErrValidation
	}

	key := priceKey(price)
	bucket, exists := s.accessoryBuckets[key]
	if !exists {
		bucket = domain.AccessoryStock{
			ID:        xid.New("accs"),
			Price:     price,
			Quantity:  decimal.Zero,
			CreatedAt: at,
		}
	}
	bucket.Quantity = bucket.Quantity.Add(quantity)
	s.accessoryBuckets[key] = bucket

	if quantity.IsPositive() {
		s.accessoryEntries = append(s.accessoryEntries, domain.AccessoryStockEntry{
			ID:        xid.New("accentry"),
			EntryDate: at,
			Price:     price,
			Quantity:  quantity,
			CreatedAt: at,
		})
	}

	upserted := bucket
	return &upserted, nil
}

func (s *Store) SellAccessory(_ context.Context, price decimal.Decimal, quantity decimal.Decimal, at time.Time) (*domain.AccessorySale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !quantity.IsPositive() {
		return nil, store.ErrValidation
	}
	key := priceKey(price)
	bucket, exists := s.accessoryBuckets[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	if quantity.GreaterThan(bucket.Quantity) {
		return nil, store.ErrValidation
	}

	bucket.Quantity = bucket.Quantity.Sub(quantity)
	s.accessoryBuckets[key] = bucket

	sale := domain.AccessorySale{
		ID:        xid.New("accsale"),
		SaleDate:  at,
		Price:     bucket.Price,
		Quantity:  quantity,
		Remitted:  false,
		CreatedAt: at,
	}
	s.accessorySales[sale.ID] = sale

	created := sale
	return &created, nil
}

func (s *Store) AdjustAccessoryStock(_ context.Context, price decimal.Decimal, delta decimal.Decimal, at time.Time) (*domain.AccessoryStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := priceKey(price)
	bucket, exists := s.accessoryBuckets[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	next := bucket.Quantity.Add(delta)
	if next.IsNegative() {
		return nil, store.ErrValidation
	}

	bucket.Quantity = next
	s.accessoryBuckets[key] = bucket

	// Only increases are ledgered; shrink adjustments leave no entry.
	if delta.IsPositive() {
		s.accessoryEntries = append(s.accessoryEntries, domain.AccessoryStockEntry{
			ID:        xid.New("accentry"),
			EntryDate: at,
			Price:     bucket.Price,
			Quantity:  delta,
			CreatedAt: at,
		})
	}

	adjusted := bucket
	return &adjusted, nil
}

func (s *Store) ToggleAccessoryRemittance(_ context.Context, saleID string) (*domain.AccessorySale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.accessorySales[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	sale.Remitted = !sale.Remitted
	s.accessorySales[saleID] = sale

	toggled := sale
	return &toggled, nil
}

func (s *Store) ListAccessoryStock(_ context.Context) ([]domain.AccessoryStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make([]domain.AccessoryStock, 0, len(s.accessoryBuckets))
	for _, bucket := range s.accessoryBuckets {
		buckets = append(buckets, bucket)
	}
	slices.SortFunc(buckets, func(a, b domain.AccessoryStock) int {
		return a.Price.Cmp(b.Price)
	})
	return buckets, nil
}

func (s *Store) ListAccessorySales(_ context.Context, from time.Time, to time.Time) ([]domain.AccessorySale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.AccessorySale, 0, len(s.accessorySales))
	for _, sale := range s.accessorySales {
		if sale.SaleDate.Before(from) || sale.SaleDate.After(to) {
			continue
		}
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.AccessorySale) int {
		if a.SaleDate.Equal(b.SaleDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.SaleDate.After(b.SaleDate) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Store) CreatePayable(_ context.Context, payable domain.AccountPayable) (*domain.AccountPayable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payable.ID == "" {
		payable.ID = xid.New("ap")
	}
	if payable.CreatedAt.IsZero() {
		payable.CreatedAt = time.Now().UTC()
	}
	s.payablesByID[payable.ID] = payable

	created := payable
	return &created, nil
}

func (s *Store) UpdatePayable(_ context.Context, payable domain.AccountPayable) (*domain.AccountPayable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.payablesByID[payable.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	payable.CreatedAt = current.CreatedAt
	s.payablesByID[payable.ID] = payable

	updated := payable
	return &updated, nil
}

func (s *Store) GetPayableByID(_ context.Context, id string) (*domain.AccountPayable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payable, exists := s.payablesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyPayable := payable
	return &copyPayable, nil
}

func (s *Store) ListPayables(_ context.Context, from *time.Time, to *time.Time) ([]domain.AccountPayable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payables := make([]domain.AccountPayable, 0, len(s.payablesByID))
	for _, payable := range s.payablesByID {
		if from != nil && payable.DueDate.Before(*from) {
			continue
		}
		if to != nil && payable.DueDate.After(*to) {
			continue
		}
		payables = append(payables, payable)
	}
	slices.SortFunc(payables, func(a, b domain.AccountPayable) int {
		if a.DueDate.Equal(b.DueDate) {
			return cmpString(a.ID, b.ID)
		}
		if a.DueDate.Before(b.DueDate) {
			return -1
		}
		return 1
	})
	return payables, nil
}

func (s *Store) GetPeriodSummary(_ context.Context, from time.Time, to time.Time) (domain.PeriodSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.PeriodSummary{
		From:          from,
		To:            to,
		TotalAmount:   decimal.Zero,
		TotalProfit:   decimal.Zero,
		TotalPieces:   decimal.Zero,
		MarginPercent: decimal.Zero,
		AverageTicket: decimal.Zero,
	}
	for _, sale := range s.salesByID {
		if sale.Status == domain.SaleStatusVoided {
			continue
		}
		if sale.SaleDate.Before(from) || sale.SaleDate.After(to) {
			continue
		}
		summary.TotalAmount = summary.TotalAmount.Add(sale.TotalAmount)
		summary.TotalProfit = summary.TotalProfit.Add(sale.TotalProfit)
		summary.TotalPieces = summary.TotalPieces.Add(sale.TotalPieces)
		summary.SaleCount++
	}
	if summary.TotalAmount.IsPositive() {
		summary.MarginPercent = summary.TotalProfit.Div(summary.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if summary.SaleCount > 0 {
		summary.AverageTicket = summary.TotalAmount.Div(decimal.NewFromInt(summary.SaleCount)).Round(2)
	}
	return summary, nil
}

func (s *Store) GetTopProducts(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[string]*domain.TopProduct)
	for _, sale := range s.salesByID {
		if sale.Status == domain.SaleStatusVoided {
			continue
		}
		if sale.SaleDate.Before(from) || sale.SaleDate.After(to) {
			continue
		}
		for _, item := range sale.Items {
			top, exists := byProduct[item.ProductID]
			if !exists {
				product := s.productsByID[item.ProductID]
				top = &domain.TopProduct{
					ProductID:    item.ProductID,
					Code:         product.Code,
					Name:         product.Name,
					QuantitySold: decimal.Zero,
					AmountSold:   decimal.Zero,
				}
				byProduct[item.ProductID] = top
			}
			top.QuantitySold = top.QuantitySold.Add(item.Quantity)
			top.AmountSold = top.AmountSold.Add(item.Subtotal)
		}
	}

	result := make([]domain.TopProduct, 0, len(byProduct))
	for _, top := range byProduct {
		result = append(result, *top)
	}
	slices.SortFunc(result, func(a, b domain.TopProduct) int {
		if c := b.QuantitySold.Cmp(a.QuantitySold); c != 0 {
			return c
		}
		return cmpString(a.Code, b.Code)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetStockValuation(_ context.Context) (domain.StockValuation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	valuation := domain.StockValuation{
		CostValue:   decimal.Zero,
		RetailValue: decimal.Zero,
	}
	for _, product := range s.productsByID {
		valuation.CostValue = valuation.CostValue.Add(product.CostPrice.Mul(product.CurrentStock))
		valuation.RetailValue = valuation.RetailValue.Add(product.SalePrice.Mul(product.CurrentStock))
		valuation.Products++
	}
	return valuation, nil
}

func (s *Store) GetSessionSalesTotal(_ context.Context, sessionID string) (decimal.Decimal, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessionsByID[sessionID]; !exists {
		return decimal.Zero, 0, store.ErrNotFound
	}
	total := decimal.Zero
	var count int64
	for _, sale := range s.salesByID {
		if sale.CashSessionID != sessionID || sale.Status == domain.SaleStatusVoided {
			continue
		}
		total = total.Add(sale.TotalAmount)
		count++
	}
	return total, count, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
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

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) SetUserActive(_ context.Context, username string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Active = active
	s.usersByUsername[username] = user
	return nil
}

func cloneSale(sale *domain.Sale) *domain.Sale {
	copySale := *sale
	copySale.Items = make([]domain.SaleItem, len(sale.Items))
	copy(copySale.Items, sale.Items)
	return &copySale
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
