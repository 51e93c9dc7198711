package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"modastore/backend/internal/domain"
	"modastore/backend/internal/service"
	"modastore/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path. The
// report agent is left nil, matching a deployment without an API key.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, nil, "*")
}

func loginAs(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d (body: %s)", username, res.Code, res.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

// do runs an authenticated request with the CSRF token set for mutating methods.
func do(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost || method == http.MethodPatch || method == http.MethodPut {
		req.Header.Set("X-CSRF-Token", api.generateCSRFToken())
	}

	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	res := do(t, api, http.MethodGet, "/healthz", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	res := do(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", res.Code, res.Body.String())
	}
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	res := do(t, api, http.MethodGet, "/api/v1/products", "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}

	res = do(t, api, http.MethodGet, "/api/v1/products", "not-a-valid-token", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.Code)
	}
}

func TestListProductsWithValidToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "seller", "seller123")

	res := do(t, api, http.MethodGet, "/api/v1/products", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	var body struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Products) == 0 {
		t.Fatalf("expected seeded products in response")
	}
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "seller", "seller123")

	res := do(t, api, http.MethodPost, "/api/v1/sessions/open", token, domain.SessionOpenRequest{
		OpeningAmount: decimal.NewFromInt(100),
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = do(t, api, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{
		PaymentType: "cash",
		CartLines: []domain.CartLine{
			{ProductID: "prod-seed-cam001", Quantity: decimal.NewFromInt(2)},
		},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create sale: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	var created struct {
		Sale domain.Sale `json:"sale"`
	}
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if !created.Sale.TotalAmount.Equal(decimal.NewFromFloat(79.80)) {
		t.Fatalf("total amount = %s, want 79.80", created.Sale.TotalAmount)
	}

	res = do(t, api, http.MethodGet, "/api/v1/sales/"+created.Sale.ID+"/receipt", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("receipt content type = %s", ct)
	}
	if !strings.Contains(res.Body.String(), "CAM001") {
		t.Fatalf("receipt missing product code: %s", res.Body.String())
	}

	res = do(t, api, http.MethodPost, "/api/v1/sales/"+created.Sale.ID+"/void", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("void: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = do(t, api, http.MethodPost, "/api/v1/sales/"+created.Sale.ID+"/void", token, nil)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second void: expected 422, got %d", res.Code)
	}
}

func TestSecondSessionOpenConflicts(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "seller", "seller123")

	res := do(t, api, http.MethodPost, "/api/v1/sessions/open", token, domain.SessionOpenRequest{
		OpeningAmount: decimal.NewFromInt(100),
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d", res.Code)
	}

	res = do(t, api, http.MethodPost, "/api/v1/sessions/open", token, domain.SessionOpenRequest{
		OpeningAmount: decimal.NewFromInt(50),
	})
	if res.Code != http.StatusConflict {
		t.Fatalf("second open: expected 409, got %d (body: %s)", res.Code, res.Body.String())
	}
}

func TestGetUnknownSaleReturns404(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "seller", "seller123")

	res := do(t, api, http.MethodGet, "/api/v1/sales/sale-missing", token, nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSellerCannotReachManagerEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "seller", "seller123")

	res := do(t, api, http.MethodPost, "/api/v1/accessories/adjust", token, domain.AccessoryAdjustRequest{
		Price: decimal.NewFromFloat(5.00),
		Delta: decimal.NewFromInt(1),
	})
	if res.Code != http.StatusForbidden {
		t.Fatalf("accessory adjust: expected 403, got %d", res.Code)
	}

	res = do(t, api, http.MethodGet, "/api/v1/reports/summary", token, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("reports: expected 403, got %d", res.Code)
	}

	res = do(t, api, http.MethodGet, "/api/v1/users", token, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("users: expected 403, got %d", res.Code)
	}
}

func TestCreateCategoryValidationStatus(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "manager", "manager123")

	res := do(t, api, http.MethodPost, "/api/v1/categories", token, domain.CategoryCreateRequest{Name: "  "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("blank name: expected 400, got %d", res.Code)
	}

	res = do(t, api, http.MethodPost, "/api/v1/categories", token, domain.CategoryCreateRequest{Name: "Camisetas"})
	if res.Code != http.StatusConflict {
		t.Fatalf("duplicate name: expected 409, got %d", res.Code)
	}

	res = do(t, api, http.MethodPost, "/api/v1/categories", token, domain.CategoryCreateRequest{Name: "Acessorios"})
	if res.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
}

func TestReportSummaryCSVExport(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "manager", "manager123")

	res := do(t, api, http.MethodGet, "/api/v1/reports/summary?format=csv", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	if ct := res.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Fatalf("content type = %s, want text/csv", ct)
	}
	if cd := res.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("content disposition = %s, want attachment", cd)
	}
	if !strings.HasPrefix(res.Body.String(), "section,key,value") {
		t.Fatalf("unexpected csv body: %s", res.Body.String())
	}
}

func TestAgentAskUnavailableWithoutKey(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")

	res := do(t, api, http.MethodPost, "/api/v1/agent/ask", token, domain.AgentAskRequest{Question: "how were sales today?"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when agent is not configured, got %d", res.Code)
	}
}

func TestUserManagementOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")

	res := do(t, api, http.MethodPost, "/api/v1/users", token, domain.UserCreateRequest{
		Username:    "newseller",
		Password:    "longenough",
		DisplayName: "New Seller",
		Role:        "salesperson",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = do(t, api, http.MethodPost, "/api/v1/users/newseller/active", token, map[string]bool{"active": false})
	if res.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = do(t, api, http.MethodPost, "/api/v1/users/newseller/password", token, map[string]string{"password": "anotherlongpass"})
	if res.Code != http.StatusOK {
		t.Fatalf("reset password: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = do(t, api, http.MethodPost, "/api/v1/users/admin/active", token, map[string]bool{"active": false})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("self-deactivation: expected 400, got %d", res.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")

	res := do(t, api, http.MethodDelete, "/api/v1/products", token, nil)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "manager", "manager123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(`{"name":"X","bogus":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", api.generateCSRFToken())
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.Code)
	}
}
