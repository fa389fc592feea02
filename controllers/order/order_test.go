package orderControllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Category{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		ID:    id,
		Email: id + "@example.com",
		Name:  "Test " + id,
		Role:  role,
		Cart:  models.Cart{UserID: id},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.Product {
	t.Helper()
	product := models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func addToCart(t *testing.T, db *gorm.DB, userID string, p models.Product, qty int) {
	t.Helper()
	var cart models.Cart
	require.NoError(t, db.Where("user_id = ?", userID).First(&cart).Error)
	require.NoError(t, db.Create(&models.CartItem{
		CartID:      cart.CartID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Price:       p.Price,
		Quantity:    qty,
	}).Error)
}

func productStock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p.Stock
}

func cartItemCount(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var cart models.Cart
	require.NoError(t, db.Where("user_id = ?", userID).First(&cart).Error)
	var n int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cart.CartID).Count(&n).Error)
	return n
}

func TestPlaceOrderCODCommitsStock(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	p := seedProduct(t, db, "Mug", 100, 5)
	addToCart(t, db, "usr_1", p, 2)

	order, err := PlaceOrder(db, "usr_1", models.PaymentMethodCOD)
	require.NoError(t, err)

	assert.Equal(t, 200.0, order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.NotEmpty(t, order.OrderRef)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 100.0, order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Equal(t, 3, productStock(t, db, p.ID))
	assert.Equal(t, int64(0), cartItemCount(t, db, "usr_1"))
}

func TestPlaceOrderOnlineDefersStockCommit(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	p := seedProduct(t, db, "Mug", 100, 5)
	addToCart(t, db, "usr_1", p, 2)

	order, err := PlaceOrder(db, "usr_1", models.PaymentMethodRazorpay)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	// Stock is only committed when the payment is captured.
	assert.Equal(t, 5, productStock(t, db, p.ID))
	assert.Equal(t, int64(0), cartItemCount(t, db, "usr_1"))
}

func TestPlaceOrderSnapshotsLiveProductPrice(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	p := seedProduct(t, db, "Mug", 100, 5)
	addToCart(t, db, "usr_1", p, 1)

	// The cart row holds a stale display price; the order must use the
	// current product price.
	require.NoError(t, db.Model(&models.CartItem{}).
		Where("product_id = ?", p.ID).Update("price", 10).Error)

	order, err := PlaceOrder(db, "usr_1", models.PaymentMethodCOD)
	require.NoError(t, err)
	assert.Equal(t, 100.0, order.TotalAmount)

	// A later price change must not touch the stored snapshot.
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", p.ID).Update("price", 250).Error)
	var item models.OrderItem
	require.NoError(t, db.First(&item, "order_id = ?", order.ID).Error)
	assert.Equal(t, 100.0, item.Price)
}

func TestPlaceOrderInsufficientStockLeavesNoTrace(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	cheap := seedProduct(t, db, "Mug", 100, 5)
	scarce := seedProduct(t, db, "Lamp", 300, 1)
	addToCart(t, db, "usr_1", cheap, 1)
	addToCart(t, db, "usr_1", scarce, 2)

	_, err := PlaceOrder(db, "usr_1", models.PaymentMethodCOD)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Lamp", stockErr.Product)

	// Nothing committed: no order rows, stock untouched, cart intact.
	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)
	assert.Equal(t, 5, productStock(t, db, cheap.ID))
	assert.Equal(t, 1, productStock(t, db, scarce.ID))
	assert.Equal(t, int64(2), cartItemCount(t, db, "usr_1"))
}

func TestPlaceOrderVanishedProduct(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	p := seedProduct(t, db, "Mug", 100, 5)
	addToCart(t, db, "usr_1", p, 1)
	require.NoError(t, db.Unscoped().Delete(&models.Product{}, p.ID).Error)

	_, err := PlaceOrder(db, "usr_1", models.PaymentMethodCOD)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)

	_, err := PlaceOrder(db, "usr_1", models.PaymentMethodCOD)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderInvalidPaymentMethod(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)

	_, err := PlaceOrder(db, "usr_1", "barter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "barter")
}

func TestDecrementStockFloor(t *testing.T) {
	db := setupTestDB(t)
	p := seedProduct(t, db, "Mug", 100, 1)

	require.NoError(t, DecrementStock(db, p.ID, p.Name, 1))
	assert.Equal(t, 0, productStock(t, db, p.ID))

	err := DecrementStock(db, p.ID, p.Name, 1)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, productStock(t, db, p.ID), "stock must never go below zero")
}

func TestSequentialOrdersCannotOversell(t *testing.T) {
	db := setupTestDB(t)
	p := seedProduct(t, db, "Lamp", 300, 1)
	seedUser(t, db, "usr_a", models.RoleUser)
	seedUser(t, db, "usr_b", models.RoleUser)
	addToCart(t, db, "usr_a", p, 1)
	addToCart(t, db, "usr_b", p, 1)

	_, err := PlaceOrder(db, "usr_a", models.PaymentMethodCOD)
	require.NoError(t, err)

	_, err = PlaceOrder(db, "usr_b", models.PaymentMethodCOD)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, productStock(t, db, p.ID))
}

func TestRestoreStock(t *testing.T) {
	db := setupTestDB(t)
	p := seedProduct(t, db, "Mug", 100, 3)

	require.NoError(t, RestoreStock(db, []models.OrderItem{
		{ProductID: p.ID, Quantity: 2},
	}))
	assert.Equal(t, 5, productStock(t, db, p.ID))
}

// -------- Handler tests --------

func newTestRouter(userID string, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", string(role))
	})
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateOrderStatusRejectsInvalidTransition(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	order := models.Order{UserID: "usr_1", Status: models.OrderStatusDelivered, PaymentMethod: models.PaymentMethodCOD}
	require.NoError(t, db.Create(&order).Error)

	r := newTestRouter("usr_admin", models.RoleAdmin)
	r.PUT("/admin/orders/:orderID/status", UpdateOrderStatusHandler(db))

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID),
		UpdateOrderStatusRequest{Status: "processing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "delivered")

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
}

func TestCancelCODOrderRestoresStock(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	p := seedProduct(t, db, "Mug", 100, 5)
	addToCart(t, db, "usr_1", p, 2)

	order, err := PlaceOrder(db, "usr_1", models.PaymentMethodCOD)
	require.NoError(t, err)
	require.Equal(t, 3, productStock(t, db, p.ID))

	r := newTestRouter("usr_admin", models.RoleAdmin)
	r.PUT("/admin/orders/:orderID/status", UpdateOrderStatusHandler(db))

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID),
		UpdateOrderStatusRequest{Status: "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 5, productStock(t, db, p.ID))
	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
}

func TestGetOrderByIDHidesOtherUsersOrders(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_owner", models.RoleUser)
	order := models.Order{UserID: "usr_owner", OrderRef: "ref-1", Status: models.OrderStatusPending}
	require.NoError(t, db.Create(&order).Error)

	r := newTestRouter("usr_other", models.RoleUser)
	r.GET("/orders/detail/:orderID", GetOrderByIDHandler(db))

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/orders/detail/%d", order.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "foreign orders must look like they do not exist")

	admin := newTestRouter("usr_admin", models.RoleAdmin)
	admin.GET("/orders/detail/:orderID", GetOrderByIDHandler(db))
	w = doJSON(t, admin, http.MethodGet, "/orders/detail/ref-1", nil)
	assert.Equal(t, http.StatusOK, w.Code, "admin may fetch any order, by ref too")
}

func TestGetOrderByIDAcceptsNumericIDAndRef(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	order := models.Order{
		UserID:   "usr_1",
		OrderRef: "20260830120000-6f1c9a2e-4f0d-4f6e-9f5a-0c9b8f7d6e5d",
		Status:   models.OrderStatusPending,
	}
	require.NoError(t, db.Create(&order).Error)

	r := newTestRouter("usr_1", models.RoleUser)
	r.GET("/orders/detail/:orderID", GetOrderByIDHandler(db))

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/orders/detail/%d", order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The ref is never numeric, so this path must hit the order_ref
	// column only: comparing it against the integer id column is a
	// cast error on postgres.
	w = doJSON(t, r, http.MethodGet, "/orders/detail/"+order.OrderRef, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.OrderRef)
}

func TestAssignCourierHandler(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	courier := seedUser(t, db, "usr_courier", models.RoleDelivery)
	shopper := seedUser(t, db, "usr_shopper", models.RoleUser)
	order := models.Order{UserID: "usr_1", Status: models.OrderStatusProcessing, PaymentMethod: models.PaymentMethodCOD}
	require.NoError(t, db.Create(&order).Error)

	r := newTestRouter("usr_admin", models.RoleAdmin)
	r.PUT("/admin/orders/:orderID/assign", AssignCourierHandler(db))

	// Assigning a non-courier is rejected.
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/admin/orders/%d/assign", order.ID),
		AssignCourierRequest{CourierID: shopper.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/admin/orders/%d/assign", order.ID),
		AssignCourierRequest{CourierID: courier.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, courier.ID, *got.AssignedToID)
	assert.Equal(t, models.OrderStatusShipped, got.Status, "assignment moves a processing order to shipped")
}

func TestAssignCourierRejectsPendingOrder(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)
	courier := seedUser(t, db, "usr_courier", models.RoleDelivery)
	order := models.Order{UserID: "usr_1", Status: models.OrderStatusPending}
	require.NoError(t, db.Create(&order).Error)

	r := newTestRouter("usr_admin", models.RoleAdmin)
	r.PUT("/admin/orders/:orderID/assign", AssignCourierHandler(db))

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/admin/orders/%d/assign", order.ID),
		AssignCourierRequest{CourierID: courier.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrderHandlerErrorMapping(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "usr_1", models.RoleUser)

	r := newTestRouter("usr_1", models.RoleUser)
	r.POST("/orders/place", PlaceOrderHandler(db))

	// Empty cart surfaces as a 400, not a 500.
	w := doJSON(t, r, http.MethodPost, "/orders/place", PlaceOrderRequest{PaymentMethod: "cod"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cart is empty")
}

func TestInsufficientStockErrorUnwrapping(t *testing.T) {
	var err error = &InsufficientStockError{Product: "Mug"}
	wrapped := fmt.Errorf("placing order: %w", err)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(wrapped, &stockErr))
	assert.Equal(t, "insufficient stock for product: Mug", stockErr.Error())
}
