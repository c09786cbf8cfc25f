package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())

	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func newTestOrder(id, key string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:               id,
		SessionID:        "session-a",
		IdempotencyKey:   key,
		Customer:         domain.CustomerInfo{Name: "Ama", Email: "ama@example.com", Phone: "0240000000", Address: "Accra"},
		PaymentReference: "MOMO-123",
		Items: []domain.OrderLine{
			{
				LineItem:    domain.LineItem{ProductID: "1", Quantity: 2, Size: domain.SizeL},
				ProductName: "Premium Cotton T-Shirt",
				UnitPrice:   decimal.RequireFromString("25.00"),
				Subtotal:    decimal.RequireFromString("50.00"),
			},
		},
		TotalAmount:   decimal.RequireFromString("50.00"),
		Currency:      domain.Currency,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusAwaitingVerification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRunMigrations_SeedsCatalog(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.GetAllProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 5)
	assert.Equal(t, "1", products[0].ID)
	assert.Equal(t, "Premium Cotton T-Shirt", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, domain.CategoryApparel, products[0].Category)

	// running again is a no-op
	require.NoError(t, repo.RunMigrations())
}

func TestProductCRUD(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p := &domain.Product{
		Name:     "Canvas Tote",
		Price:    decimal.RequireFromString("15.50"),
		Category: domain.CategoryAccessories,
		Stock:    10,
	}
	require.NoError(t, repo.CreateProduct(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Canvas Tote", got.Name)
	assert.Equal(t, "15.50", got.Price.StringFixed(2))

	got.Stock = 3
	got.Featured = true
	require.NoError(t, repo.UpdateProduct(ctx, got))

	got, err = repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	assert.True(t, got.Featured)

	require.NoError(t, repo.DeleteProduct(ctx, p.ID))
	_, err = repo.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, repo.DeleteProduct(ctx, p.ID), ErrProductNotFound)
	assert.ErrorIs(t, repo.UpdateProduct(ctx, &domain.Product{ID: "missing"}), ErrProductNotFound)
}

func TestListDesignAssets_Filter(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, a := range []*domain.DesignAsset{
		{Title: "Sunset Palms", Price: decimal.NewFromInt(10), Category: domain.DesignCategoryTShirt},
		{Title: "Kente 100%", Price: decimal.NewFromInt(12), Category: domain.DesignCategoryTShirt},
		{Title: "Sunset Cap", Price: decimal.NewFromInt(8), Category: domain.DesignCategoryCaps},
	} {
		require.NoError(t, repo.CreateDesignAsset(ctx, a))
	}

	all, err := repo.ListDesignAssets(ctx, DesignFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	shirts, err := repo.ListDesignAssets(ctx, DesignFilter{Category: domain.DesignCategoryTShirt})
	require.NoError(t, err)
	assert.Len(t, shirts, 2)

	sunset, err := repo.ListDesignAssets(ctx, DesignFilter{Query: "sunset"})
	require.NoError(t, err)
	assert.Len(t, sunset, 2)

	both, err := repo.ListDesignAssets(ctx, DesignFilter{Category: domain.DesignCategoryCaps, Query: "SUNSET"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "Sunset Cap", both[0].Title)

	// % is matched literally
	pct, err := repo.ListDesignAssets(ctx, DesignFilter{Query: "100%"})
	require.NoError(t, err)
	require.Len(t, pct, 1)
	assert.Equal(t, "Kente 100%", pct[0].Title)

	_, err = repo.GetDesignAsset(ctx, "missing")
	assert.ErrorIs(t, err, ErrDesignNotFound)
}

func TestImages(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	img := &domain.NormalizedImage{
		ID:             uuid.New(),
		Data:           []byte{0x89, 'P', 'N', 'G'},
		Width:          1200,
		Height:         800,
		MimeType:       "image/png",
		SourceMimeType: "image/jpeg",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.SaveImage(ctx, img))

	meta, err := repo.GetImageMeta(ctx, img.ID)
	require.NoError(t, err)
	assert.Nil(t, meta.Data)
	assert.Equal(t, 1200, meta.Width)

	full, err := repo.GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Data, full.Data)

	require.NoError(t, repo.SetImageMirrorURL(ctx, img.ID, "https://cdn.example.com/x.png"))
	meta, err = repo.GetImageMeta(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.png", meta.MirrorURL)

	_, err = repo.GetImageMeta(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestCarts(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.GetCart(ctx, "sess-1")
	require.ErrorIs(t, err, ErrCartNotFound)

	c := domain.NewCart("sess-1")
	c.Items = []domain.LineItem{{
		ProductID: "1",
		Quantity:  2,
		Design: &domain.LineDesign{
			DesignRef: domain.DesignRef{ImageID: uuid.New(), Width: 100, Height: 50},
			Transform: domain.NewPlacementTransform(150, 10, -20),
		},
	}}
	require.NoError(t, repo.UpsertCart(ctx, c))

	got, err := repo.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, c.Items[0].Design.ImageID, got.Items[0].DesignID())
	assert.Equal(t, 150, got.Items[0].Design.Transform.Scale)

	c.Items[0].Quantity = 5
	require.NoError(t, repo.UpsertCart(ctx, c))
	got, err = repo.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Items[0].Quantity)

	require.NoError(t, repo.DeleteCart(ctx, "sess-1"))
	_, err = repo.GetCart(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetCart_MalformedRow(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO carts (session_id, data, updated_at) VALUES ('bad', '{not json', ?)`, formatTime(time.Now()))
	require.NoError(t, err)

	got, err := repo.GetCart(ctx, "bad")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Equal(t, "bad", got.SessionID)
}

func TestSettings(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	s, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s)

	s.SiteName = "Teetot Print GH"
	require.NoError(t, repo.SaveSettings(ctx, s))

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Teetot Print GH", got.SiteName)

	_, err = repo.db.ExecContext(ctx, `UPDATE site_settings SET data = 'garbage' WHERE id = 1`)
	require.NoError(t, err)

	got, err = repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)
}

func TestCreateOrder_WritesOutboxEvent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	o := newTestOrder("ORD-AAAA1111", "key-1")
	require.NoError(t, repo.CreateOrder(ctx, o, []byte(`{"order_id":"ORD-AAAA1111"}`)))

	got, err := repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Customer, got.Customer)
	assert.Equal(t, "50.00", got.TotalAmount.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, domain.SizeL, got.Items[0].Size)
	assert.Equal(t, "25.00", got.Items[0].UnitPrice.StringFixed(2))

	byKey, err := repo.GetOrderByIdempotencyKey(ctx, "session-a", "key-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byKey.ID)
	assert.Equal(t, "session-a", byKey.SessionID)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCreated, events[0].EventType)
	assert.Equal(t, o.ID, events[0].AggregateID)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateOrder_DuplicateIdempotencyKey(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("ORD-00000001", "same"), []byte(`{}`)))
	err := repo.CreateOrder(ctx, newTestOrder("ORD-00000002", "same"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// the failed insert leaves no event behind
	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	// empty keys never collide
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("ORD-00000003", ""), []byte(`{}`)))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("ORD-00000004", ""), []byte(`{}`)))

	_, err = repo.GetOrderByIdempotencyKey(ctx, "session-a", "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrders_ScopedToSession(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("ORD-0000000A", "shared-key"), []byte(`{}`)))

	got, err := repo.GetSessionOrder(ctx, "session-a", "ORD-0000000A")
	require.NoError(t, err)
	assert.Equal(t, "ORD-0000000A", got.ID)

	_, err = repo.GetSessionOrder(ctx, "session-b", "ORD-0000000A")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = repo.GetSessionOrder(ctx, "", "ORD-0000000A")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = repo.GetOrderByIdempotencyKey(ctx, "session-b", "shared-key")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// the same key from another session is a different order
	other := newTestOrder("ORD-0000000B", "shared-key")
	other.SessionID = "session-b"
	require.NoError(t, repo.CreateOrder(ctx, other, []byte(`{}`)))

	byKey, err := repo.GetOrderByIdempotencyKey(ctx, "session-b", "shared-key")
	require.NoError(t, err)
	assert.Equal(t, "ORD-0000000B", byKey.ID)
}

func TestListOrders_NewestFirstSkipsMalformed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	older := newTestOrder("ORD-00000001", "")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newTestOrder("ORD-00000002", "")
	require.NoError(t, repo.CreateOrder(ctx, older, []byte(`{}`)))
	require.NoError(t, repo.CreateOrder(ctx, newer, []byte(`{}`)))

	_, err := repo.db.ExecContext(ctx, `UPDATE orders SET items = 'oops' WHERE id = 'ORD-00000001'`)
	require.NoError(t, err)
	broken := newTestOrder("ORD-00000003", "")
	broken.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.CreateOrder(ctx, broken, []byte(`{}`)))

	orders, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-00000002", orders[0].ID)
	assert.Equal(t, "ORD-00000003", orders[1].ID)
}

func TestUpdateOrderStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	o := newTestOrder("ORD-00000001", "")
	require.NoError(t, repo.CreateOrder(ctx, o, []byte(`{}`)))

	require.NoError(t, repo.UpdateOrderStatus(ctx, o.ID, domain.OrderStatusShipped))
	require.NoError(t, repo.UpdatePaymentStatus(ctx, o.ID, domain.PaymentStatusVerified))

	got, err := repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, got.Status)
	assert.Equal(t, domain.PaymentStatusVerified, got.PaymentStatus)
	// the snapshot itself is untouched
	assert.Equal(t, o.Items[0].Quantity, got.Items[0].Quantity)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventOrderStatusChanged, events[2].EventType)

	var payload statusChangedEvent
	require.NoError(t, json.Unmarshal(events[2].Payload, &payload))
	assert.Equal(t, "Shipped", payload.Status)
	assert.Equal(t, "Verified", payload.PaymentStatus)

	assert.ErrorIs(t, repo.UpdateOrderStatus(ctx, "ORD-MISSING0", domain.OrderStatusShipped), ErrOrderNotFound)
}

func TestDeleteOrder(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("ORD-00000001", ""), []byte(`{}`)))
	require.NoError(t, repo.DeleteOrder(ctx, "ORD-00000001"))

	_, err := repo.GetOrder(ctx, "ORD-00000001")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, repo.DeleteOrder(ctx, "ORD-00000001"), ErrOrderNotFound)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderDeleted, events[1].EventType)
}

func TestReset_RestoresSeedState(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteProduct(ctx, "1"))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("ORD-00000001", ""), []byte(`{}`)))
	s := domain.DefaultSettings()
	s.SiteName = "Changed"
	require.NoError(t, repo.SaveSettings(ctx, s))

	require.NoError(t, repo.Reset(ctx))

	products, err := repo.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 5)

	orders, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)
}
