package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestVoidSaleRestoresProductStock(t *testing.T) {
	databaseURL := os.Getenv("MODASTORE_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MODASTORE_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-void-it-%d", stamp)
	code := fmt.Sprintf("VOID-IT-%d", stamp)
	sessionID := fmt.Sprintf("sess-void-it-%d", stamp)
	saleID := fmt.Sprintf("sale-void-it-%d", stamp)
	itemID := fmt.Sprintf("item-void-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cash_sessions WHERE id = $1`, sessionID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, code, name, cost_price, sale_price, current_stock, min_stock, active, created_at)
		VALUES ($1, $2, 'Camiseta Void IT', 18.00, 39.90, 10, 2, true, now())
	`, productID, code); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_sessions (id, opened_at, opening_amount, status)
		VALUES ($1, now(), 100.00, 'closed')
	`, sessionID); err != nil {
		t.Fatalf("insert session: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, cash_session_id, sale_date, total_amount, total_profit, total_pieces, payment_type, status, created_at)
		VALUES ($1, $2, now(), 79.80, 43.80, 2, 'cash', 'completed', now())
	`, saleID, sessionID); err != nil {
		t.Fatalf("insert sale: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, unit_cost_price, subtotal, line_profit)
		VALUES ($1, $2, $3, 2, 39.90, 18.00, 79.80, 43.80)
	`, itemID, saleID, productID); err != nil {
		t.Fatalf("insert sale item: %v", err)
	}

	if _, err := s.VoidSale(ctx, saleID, time.Now().UTC()); err != nil {
		t.Fatalf("void sale: %v", err)
	}

	var stock decimal.Decimal
	if err := s.db.QueryRowContext(ctx, `
		SELECT current_stock
		FROM products
		WHERE id = $1
	`, productID).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if !stock.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected stock 12 after void, got %s", stock)
	}

	var status string
	if err := s.db.QueryRowContext(ctx, `
		SELECT status
		FROM sales
		WHERE id = $1
	`, saleID).Scan(&status); err != nil {
		t.Fatalf("query sale status: %v", err)
	}
	if status != "voided" {
		t.Fatalf("expected sale status voided, got %s", status)
	}

	items, err := s.listSaleItems(ctx, saleID)
	if err != nil {
		t.Fatalf("list sale items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected voided sale to keep its items, got %d", len(items))
	}
}
