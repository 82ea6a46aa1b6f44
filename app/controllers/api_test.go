package controllers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/app/controllers"
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/app/repositories/memory"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/internal/kernel"
	"github.com/pharmacare/pharmacare-api/pkg/auth"
	"github.com/pharmacare/pharmacare-api/pkg/storage"
	"github.com/pharmacare/pharmacare-api/pkg/workerpool"
)

var clock = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type api struct {
	t       *testing.T
	handler http.Handler
	store   *repositories.Store
	admin   string
}

// reply is the decoded envelope with data kept raw.
type reply struct {
	Success bool              `json:"success"`
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func (r reply) object(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.Data, &m))
	return m
}

func newAPI(t *testing.T) *api {
	t.Helper()
	st := memory.NewStore()
	disk := storage.NewLocalDisk(t.TempDir(), "/uploads")
	pool := workerpool.New(1, 4)
	t.Cleanup(pool.Shutdown)

	svc := services.New(services.Options{
		Store:   st,
		Disk:    disk,
		Reports: pool,
		Now:     func() time.Time { return clock },
	})
	r := kernel.NewHTTP(kernel.Options{
		Controllers:   controllers.New(svc),
		UploadsRoot:   disk.Root(),
		UploadsPrefix: "/uploads",
	})

	a := &api{t: t, handler: r.Handler(), store: st}
	admin := &models.User{Name: "Admin", Email: "admin@pharmacare.test", Role: models.RoleAdmin}
	require.NoError(t, st.Users.Create(t.Context(), admin))
	a.admin = a.token(admin)
	return a
}

func (a *api) token(u *models.User) string {
	tok, err := auth.GenerateToken(u.ID.Hex(), u.Role)
	require.NoError(a.t, err)
	return tok
}

func (a *api) raw(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *api) do(method, path, token string, body any) (int, reply) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := a.raw(req, token)

	var out reply
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

// customer registers through the API and returns the access token.
func (a *api) customer(email string) string {
	a.t.Helper()
	code, res := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Ana", "email": email, "password": "secret-pass",
	})
	require.Equal(a.t, http.StatusCreated, code, res.Message)
	return res.object(a.t)["accessToken"].(string)
}

func (a *api) create(path string, body any) string {
	a.t.Helper()
	code, res := a.do(http.MethodPost, path, a.admin, body)
	require.Equal(a.t, http.StatusCreated, code, "%s: %s %v", path, res.Message, res.Errors)
	return res.object(a.t)["id"].(string)
}

func (a *api) product(name string, price float64) string {
	return a.create("/api/v1/admin/products", map[string]any{
		"name": name, "category": models.CategoryMedicine, "price": price,
	})
}

func (a *api) supplier(email string) string {
	return a.create("/api/v1/admin/suppliers", map[string]any{
		"name": "MedSupply", "email": email, "phone": "555-0100",
	})
}

func (a *api) batch(productID, supplierID, number, mfg, exp string, qty int) string {
	return a.create("/api/v1/admin/batches", map[string]any{
		"productId": productID, "supplierId": supplierID, "batchNumber": number,
		"manufacturingDate": mfg, "expiryDate": exp,
		"quantity": qty, "costPrice": 5, "sellingPrice": 8,
	})
}

func (a *api) remaining(batchID string) float64 {
	a.t.Helper()
	code, res := a.do(http.MethodGet, "/api/v1/admin/batches/"+batchID, a.admin, nil)
	require.Equal(a.t, http.StatusOK, code)
	return res.object(a.t)["remainingQuantity"].(float64)
}

func (a *api) stock(productID string) float64 {
	a.t.Helper()
	code, res := a.do(http.MethodGet, "/api/v1/products/"+productID, "", nil)
	require.Equal(a.t, http.StatusOK, code)
	return res.object(a.t)["totalStock"].(float64)
}

var address = map[string]any{
	"street": "1 Main St", "city": "Springfield", "postalCode": "12345", "country": "US",
}

func order(items ...map[string]any) map[string]any {
	return map[string]any{
		"items":           items,
		"shippingAddress": address,
		"paymentMethod":   "visa",
		"cardNumber":      "4111111111111111",
	}
}

func item(productID string, qty int) map[string]any {
	return map[string]any{"productId": productID, "quantity": qty}
}

func TestCreateBatchEchoesRemainingAndStatus(t *testing.T) {
	a := newAPI(t)
	p, s := a.product("Paracetamol", 2.5), a.supplier("orders@medsupply.test")

	code, res := a.do(http.MethodPost, "/api/v1/admin/batches", a.admin, map[string]any{
		"productId": p, "supplierId": s, "batchNumber": "PCM-1",
		"manufacturingDate": "2024-01-01", "expiryDate": "2025-01-01",
		"quantity": 100, "costPrice": 5, "sellingPrice": 8,
	})
	require.Equal(t, http.StatusCreated, code)
	body := res.object(t)
	assert.Equal(t, float64(100), body["remainingQuantity"])
	assert.Equal(t, models.BatchActive, body["status"])
	assert.Equal(t, float64(100), a.stock(p))
}

func TestBatchDateRuleIsValidationError(t *testing.T) {
	a := newAPI(t)
	p, s := a.product("Paracetamol", 2.5), a.supplier("orders@medsupply.test")

	code, res := a.do(http.MethodPost, "/api/v1/admin/batches", a.admin, map[string]any{
		"productId": p, "supplierId": s, "batchNumber": "PCM-1",
		"manufacturingDate": "2025-01-01", "expiryDate": "2025-01-01",
		"quantity": 10, "costPrice": 5, "sellingPrice": 8,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors, "expiryDate")

	id := a.batch(p, s, "PCM-2", "2024-01-01", "2025-01-01", 10)
	code, res = a.do(http.MethodPut, "/api/v1/admin/batches/"+id, a.admin, map[string]any{
		"manufacturingDate": "2026-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Errors, "expiryDate")
}

func TestValidationErrorsAreFieldMaps(t *testing.T) {
	a := newAPI(t)
	code, res := a.do(http.MethodPost, "/api/v1/admin/products", a.admin, map[string]any{"category": "candy"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 400, res.Status)
	for _, field := range []string{"name", "category", "price"} {
		assert.Contains(t, res.Errors, field)
	}
}

func TestAuthAndRoles(t *testing.T) {
	a := newAPI(t)
	user := a.customer("ana@example.com")

	code, _ := a.do(http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, "/api/v1/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, "/api/v1/admin/batches", user, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res := a.do(http.MethodGet, "/api/v1/auth/me", user, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ana@example.com", res.object(t)["email"])
	assert.NotContains(t, string(res.Data), "password")
}

func TestLoginWithWrongPasswordIs401(t *testing.T) {
	a := newAPI(t)
	a.customer("ana@example.com")

	code, res := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "ana@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid email or password", res.Message)

	code, _ = a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Ana", "email": "ana@example.com", "password": "secret-pass",
	})
	assert.Equal(t, http.StatusConflict, code)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	a := newAPI(t)
	code, res := a.do(http.MethodGet, "/api/v1/products/not-an-id", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Product not found", res.Message)

	code, _ = a.do(http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrderLifecycleConsumesOldestBatch(t *testing.T) {
	a := newAPI(t)
	user := a.customer("ana@example.com")
	p, s := a.product("Ibuprofen", 3), a.supplier("orders@medsupply.test")
	old := a.batch(p, s, "IBU-OLD", "2024-01-01", "2025-06-01", 20)
	recent := a.batch(p, s, "IBU-NEW", "2024-03-01", "2025-06-01", 20)

	code, res := a.do(http.MethodPost, "/api/v1/orders", user, order(item(p, 5)))
	require.Equal(t, http.StatusCreated, code, res.Errors)
	o := res.object(t)
	id := o["id"].(string)
	assert.Equal(t, models.OrderPending, o["status"])
	assert.Equal(t, float64(15), o["totalAmount"])
	assert.Equal(t, float64(35), a.stock(p))

	code, _ = a.do(http.MethodPatch, "/api/v1/admin/orders/"+id+"/status", a.admin, map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, code, "pending cannot jump to shipped")

	code, _ = a.do(http.MethodPatch, "/api/v1/admin/orders/"+id+"/status", a.admin, map[string]any{"status": "processing"})
	require.Equal(t, http.StatusOK, code)
	code, res = a.do(http.MethodPatch, "/api/v1/admin/orders/"+id+"/status", a.admin, map[string]any{
		"status": "shipped", "updateStock": true,
	})
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Equal(t, true, res.object(t)["stockConsumed"])

	assert.Equal(t, float64(15), a.remaining(old))
	assert.Equal(t, float64(20), a.remaining(recent))
	assert.Equal(t, float64(35), a.stock(p))

	code, _ = a.do(http.MethodPost, "/api/v1/orders/"+id+"/cancel", user, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestShipmentShortageLeavesStockUntouched(t *testing.T) {
	a := newAPI(t)
	user := a.customer("ana@example.com")
	s := a.supplier("orders@medsupply.test")
	first, second := a.product("Paracetamol", 2), a.product("Amoxicillin", 9)
	b1 := a.batch(first, s, "PCM-1", "2024-01-01", "2025-06-01", 10)
	a.batch(second, s, "AMX-1", "2024-01-01", "2025-06-01", 4)
	a.batch(second, s, "AMX-2", "2024-02-01", "2025-06-01", 4)

	code, res := a.do(http.MethodPost, "/api/v1/orders", user, order(item(first, 2), item(second, 6)))
	require.Equal(t, http.StatusCreated, code, res.Errors)
	id := res.object(t)["id"].(string)

	a.do(http.MethodPatch, "/api/v1/admin/orders/"+id+"/status", a.admin, map[string]any{"status": "processing"})
	code, res = a.do(http.MethodPatch, "/api/v1/admin/orders/"+id+"/status", a.admin, map[string]any{
		"status": "shipped", "updateStock": true,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Message, "AMX-1")

	assert.Equal(t, float64(10), a.remaining(b1))
	code, res = a.do(http.MethodGet, "/api/v1/orders/"+id, user, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.OrderProcessing, res.object(t)["status"])
}

func TestOrdersAreVisibleToOwnerOnly(t *testing.T) {
	a := newAPI(t)
	owner, other := a.customer("ana@example.com"), a.customer("bo@example.com")
	p, s := a.product("Zinc", 4), a.supplier("orders@medsupply.test")
	a.batch(p, s, "ZN-1", "2024-01-01", "2025-06-01", 10)

	code, res := a.do(http.MethodPost, "/api/v1/orders", owner, order(item(p, 1)))
	require.Equal(t, http.StatusCreated, code)
	id := res.object(t)["id"].(string)

	code, _ = a.do(http.MethodGet, "/api/v1/orders/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodGet, "/api/v1/orders/"+id, a.admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodPost, "/api/v1/orders", owner, order(item(p, 50)))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeleteProductKeepsOrderSnapshots(t *testing.T) {
	a := newAPI(t)
	user := a.customer("ana@example.com")
	p, s := a.product("Vitamin C", 4), a.supplier("orders@medsupply.test")
	b := a.batch(p, s, "VC-1", "2024-01-01", "2025-06-01", 10)

	code, res := a.do(http.MethodPost, "/api/v1/orders", user, order(item(p, 2)))
	require.Equal(t, http.StatusCreated, code)
	id := res.object(t)["id"].(string)

	code, _ = a.do(http.MethodDelete, "/api/v1/admin/products/"+p, a.admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodGet, "/api/v1/admin/batches/"+b, a.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = a.do(http.MethodGet, "/api/v1/orders/"+id, user, nil)
	require.Equal(t, http.StatusOK, code)
	items := res.object(t)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Vitamin C", items[0].(map[string]any)["name"])
}

func TestReportStreamsPDF(t *testing.T) {
	a := newAPI(t)
	p, s := a.product("Paracetamol", 2.5), a.supplier("orders@medsupply.test")
	a.batch(p, s, "PCM-1", "2024-01-01", "2025-01-01", 100)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/inventory", nil)
	rec := a.raw(req, a.admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inventory-report.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	code, _ := a.do(http.MethodGet, "/api/v1/admin/reports/weather", a.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPrescriptionUploadIsServedFromUploads(t *testing.T) {
	a := newAPI(t)
	user := a.customer("ana@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("doctorName", "Dr. House"))
	require.NoError(t, mw.WriteField("patientName", "Ana"))
	fw, err := mw.CreateFormFile("file", "scan.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := a.raw(req, user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	url := res.object(t)["fileUrl"].(string)
	require.True(t, strings.HasPrefix(url, "/uploads/prescriptions/"), url)

	rec = a.raw(httptest.NewRequest(http.MethodGet, url, nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 test", rec.Body.String())
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	code, res := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", res.object(t)["status"])
}
