package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/Mohaabaprint/Teetot-Print/internal/cache"
	"github.com/Mohaabaprint/Teetot-Print/internal/cart"
	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type testEnv struct {
	repo     *repository.Repository
	carts    *cart.CartService
	checkout *CheckoutService
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	log := zaptest.NewLogger(t)
	repo, err := repository.NewRepository(filepath.Join(t.TempDir(), "checkout.db"), log)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())
	t.Cleanup(func() { repo.Close() })

	carts := cart.NewCartService(repo, cache.Nop{}, repo, repo, log)
	return &testEnv{
		repo:     repo,
		carts:    carts,
		checkout: NewCheckoutService(carts, repo, repo, log),
	}
}

func (e *testEnv) saveDesign(t *testing.T) uuid.UUID {
	t.Helper()
	img := &domain.NormalizedImage{
		ID:       uuid.New(),
		Data:     []byte("png"),
		Width:    1200,
		Height:   600,
		MimeType: "image/png",
	}
	require.NoError(t, e.repo.SaveImage(context.Background(), img))
	return img.ID
}

var testCustomer = domain.CustomerInfo{
	Name:    "Kwame Mensah",
	Email:   "kwame@example.com",
	Phone:   "0244000000",
	Address: "Teshie, Accra",
}

func TestCheckout_SnapshotsCart(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	design := env.saveDesign(t)

	moved := domain.NewPlacementTransform(150, 20, -10)
	_, err := env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "1", Quantity: 1, Size: domain.SizeM, DesignID: design, Transform: &moved})
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "1", Quantity: 2, Size: domain.SizeM, DesignID: design, Transform: &moved})
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "3", Quantity: 1})
	require.NoError(t, err)

	order, err := env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-778899", "")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORD-[0-9A-F]{8}$`), order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusAwaitingVerification, order.PaymentStatus)
	assert.Equal(t, domain.Currency, order.Currency)
	require.Len(t, order.Items, 2)

	shirt := order.Items[0]
	assert.Equal(t, 3, shirt.Quantity)
	assert.Equal(t, "Premium Cotton T-Shirt", shirt.ProductName)
	assert.Equal(t, "75.00", shirt.Subtotal.StringFixed(2))
	assert.Equal(t, design, shirt.DesignID())
	assert.Equal(t, moved, shirt.Design.Transform)

	// 3 x 25.00 + 1 x 12.00
	assert.Equal(t, "87.00", order.TotalAmount.StringFixed(2))

	c, err := env.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty(), "cart emptied after checkout")

	stored, err := env.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "87.00", stored.TotalAmount.StringFixed(2))
	assert.Equal(t, testCustomer, stored.Customer)
}

func TestCheckout_OrderIsIndependentOfLaterChanges(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	design := env.saveDesign(t)

	_, err := env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "2", Quantity: 2, DesignID: design})
	require.NoError(t, err)

	order, err := env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-1", "")
	require.NoError(t, err)

	// price change in the catalog
	p, err := env.repo.GetProduct(ctx, "2")
	require.NoError(t, err)
	p.Price = decimal.RequireFromString("99.00")
	require.NoError(t, env.repo.UpdateProduct(ctx, p))

	// new cart activity with the same design
	moved := domain.NewPlacementTransform(10, -100, 100)
	_, err = env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "2", Quantity: 5, DesignID: design, Transform: &moved})
	require.NoError(t, err)

	// caller mutating its copy
	order.Items[0].Design.Transform.Scale = 200

	stored, err := env.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "90.00", stored.TotalAmount.StringFixed(2))
	assert.Equal(t, "45.00", stored.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, domain.DefaultTransform(), stored.Items[0].Design.Transform)
}

func TestCheckout_Errors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.checkout.Checkout(ctx, "empty", testCustomer, "MOMO-1", "")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "1", Quantity: 1})
	require.NoError(t, err)

	bad := testCustomer
	bad.Address = "   "
	_, err = env.checkout.Checkout(ctx, "s1", bad, "MOMO-1", "")
	assert.ErrorIs(t, err, ErrInvalidCustomer)
	assert.ErrorContains(t, err, "address")

	_, err = env.checkout.Checkout(ctx, "s1", testCustomer, "", "")
	assert.ErrorIs(t, err, ErrInvalidCustomer)

	require.NoError(t, env.repo.DeleteProduct(ctx, "1"))
	_, err = env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-1", "")
	assert.ErrorIs(t, err, ErrProductNotFound)

	c, err := env.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1, "failed checkout keeps the cart")
}

func TestCheckout_Idempotent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "5", Quantity: 1})
	require.NoError(t, err)

	first, err := env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-1", "idem-1")
	require.NoError(t, err)

	second, err := env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-1", "idem-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	orders, err := env.repo.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckout_IdempotencyKeyIsPerSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "5", Quantity: 1})
	require.NoError(t, err)
	first, err := env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-1", "idem-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", first.SessionID)

	// another visitor reusing the key does not see the first order
	_, err = env.checkout.Checkout(ctx, "s2", testCustomer, "MOMO-2", "idem-1")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = env.carts.AddItem(ctx, "s2", cart.AddItemInput{ProductID: "4", Quantity: 1})
	require.NoError(t, err)
	second, err := env.checkout.Checkout(ctx, "s2", testCustomer, "MOMO-2", "idem-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "s2", second.SessionID)
}

func TestCheckout_ConcurrentSameSessionPlacesOneOrder(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "4", Quantity: 2})
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-1", "")
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrEmptyCart), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
}

func TestCheckout_WritesOrderCreatedEvent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "3", Quantity: 4})
	require.NoError(t, err)
	order, err := env.checkout.Checkout(ctx, "s1", testCustomer, "MOMO-9", "")
	require.NoError(t, err)

	events, err := env.repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, repository.EventOrderCreated, events[0].EventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, order.ID, payload["order_id"])
	assert.Equal(t, "48.00", payload["total_amount"])
	assert.Equal(t, "MOMO-9", payload["payment_ref"])
}

type failingOrders struct {
	err error
}

func (f failingOrders) CreateOrder(context.Context, *domain.Order, []byte) error { return f.err }
func (f failingOrders) GetOrderByIdempotencyKey(context.Context, string, string) (*domain.Order, error) {
	return nil, repository.ErrOrderNotFound
}

func TestCheckout_StoreFailureKeepsCart(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sut := NewCheckoutService(env.carts, env.repo, failingOrders{err: errors.New("disk full")}, zap.NewNop())

	_, err := env.carts.AddItem(ctx, "s1", cart.AddItemInput{ProductID: "1", Quantity: 1})
	require.NoError(t, err)

	_, err = sut.Checkout(ctx, "s1", testCustomer, "MOMO-1", "")
	require.ErrorContains(t, err, "disk full")

	c, err := env.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}
