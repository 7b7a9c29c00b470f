package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/agrikart/api/models"
	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/services/payments"
)

const testSecret = "test_gateway_secret"

type fakeGateway struct {
	mu          sync.Mutex
	refundErr   error
	refundCalls int
	fetchIntent *payments.Intent
	fetchErr    error
}

func (f *fakeGateway) CreateOrder(_ context.Context, amount float64, currency string) (*payments.Intent, error) {
	return &payments.Intent{ID: "order_test", Amount: payments.ToMinorUnits(amount), Currency: currency}, nil
}

func (f *fakeGateway) FetchOrder(_ context.Context, id string) (*payments.Intent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchIntent != nil {
		return f.fetchIntent, nil
	}
	return nil, errors.New("order not found at gateway")
}

func (f *fakeGateway) Refund(_ context.Context, paymentID string, amount float64, notes map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls++
	if f.refundErr != nil {
		return "", f.refundErr
	}
	return "rfnd_test_1", nil
}

func (f *fakeGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return signature == payments.Sign(testSecret, gatewayOrderID, paymentID)
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []string
	statusUpdates []string
	refunds       []string
}

func (f *fakeNotifier) OrderConfirmation(o *models.Order, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, email)
}

func (f *fakeNotifier) StatusUpdate(o *models.Order, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates = append(f.statusUpdates, email)
}

func (f *fakeNotifier) RefundConfirmation(o *models.Order, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, email)
}

type testEnv struct {
	store    *repository.MemoryStore
	svc      *Service
	gateway  *fakeGateway
	notifier *fakeNotifier
	user     *models.User
	admin    *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	users := repository.NewMemoryUsers(store)

	user := &models.User{Name: "Ravi", Email: "ravi@example.com", Role: models.RoleUser}
	require.NoError(t, users.Create(ctx, user))
	admin := &models.User{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, users.Create(ctx, admin))

	gateway := &fakeGateway{fetchErr: errors.New("gateway fetch disabled in test")}
	notifier := &fakeNotifier{}
	svc := NewService(store, repository.NewMemoryOrders(store), users, gateway, notifier, zap.NewNop())

	return &testEnv{store: store, svc: svc, gateway: gateway, notifier: notifier, user: user, admin: admin}
}

func (e *testEnv) addProduct(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Category: models.CategorySeeds, Price: price, Stock: stock, Active: true}
	require.NoError(t, e.store.Create(context.Background(), p))
	return p
}

func (e *testEnv) stockOf(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := e.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func placeInput(items ...ItemInput) PlaceInput {
	return PlaceInput{
		Items: items,
		ShippingAddress: models.ShippingAddress{
			FullName:      "Ravi",
			StreetAddress: "12 Canal Road",
			City:          "Nashik",
			State:         "MH",
			ZipCode:       "422001",
		},
	}
}

func TestPlaceCOD(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentCOD, order.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 240.0, order.TotalAmount)
	assert.Equal(t, 3, e.stockOf(t, p.ID))
	assert.Equal(t, []string{"ravi@example.com"}, e.notifier.confirmations)

	// Total always equals the sum of persisted line subtotals.
	var sum float64
	for _, item := range order.Items {
		assert.Equal(t, item.Price*float64(item.Quantity), item.Subtotal)
		sum += item.Subtotal
	}
	assert.Equal(t, order.TotalAmount, sum)
}

func TestPlaceInsufficientStock(t *testing.T) {
	e := newTestEnv(t)
	p := e.addProduct(t, "Drip Kit", 2500, 3)

	_, err := e.svc.Place(context.Background(), e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 4}))
	require.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Equal(t, 3, e.stockOf(t, p.ID))
	assert.Empty(t, e.notifier.confirmations)
}

func TestPlaceUnknownProduct(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.svc.Place(context.Background(), e.user.Id, placeInput(ItemInput{ProductID: primitive.NewObjectID().Hex(), Quantity: 1}))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPlaceInactiveProduct(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Old Sprayer", 900, 5)
	require.NoError(t, e.store.Deactivate(ctx, p.ID))

	_, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 1}))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPlaceAdminBarred(t *testing.T) {
	e := newTestEnv(t)
	p := e.addProduct(t, "Urea 45kg", 300, 10)

	_, err := e.svc.Place(context.Background(), e.admin.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 1}))
	require.ErrorIs(t, err, ErrAdminCannotOrder)
	assert.Equal(t, 10, e.stockOf(t, p.ID))
}

func TestPlaceEmptyOrder(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.svc.Place(context.Background(), e.user.Id, placeInput())
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPlaceReleasesReservedStockOnLaterFailure(t *testing.T) {
	e := newTestEnv(t)
	p1 := e.addProduct(t, "Wheat Seeds", 80, 10)
	p2 := e.addProduct(t, "Neem Oil", 150, 1)

	_, err := e.svc.Place(context.Background(), e.user.Id, placeInput(
		ItemInput{ProductID: p1.ID.Hex(), Quantity: 2},
		ItemInput{ProductID: p2.ID.Hex(), Quantity: 5},
	))
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	// The first line's reservation must have been released.
	assert.Equal(t, 10, e.stockOf(t, p1.ID))
	assert.Equal(t, 1, e.stockOf(t, p2.ID))
}

func TestConcurrentPlacementCannotOversell(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Hand Tiller", 1800, 1)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 1}))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, repository.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, e.stockOf(t, p.ID))
}

func verifyInput(p *models.Product, qty int) VerifyInput {
	return VerifyInput{
		GatewayOrderID: "order_G1",
		PaymentID:      "pay_P1",
		Signature:      payments.Sign(testSecret, "order_G1", "pay_P1"),
		Order:          placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: qty}),
	}
}

func TestVerifyAndPlace(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.VerifyAndPlace(ctx, e.user.Id, verifyInput(p, 2))
	require.NoError(t, err)

	assert.Equal(t, models.OrderConfirmed, order.Status)
	assert.Equal(t, models.PaymentOnline, order.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "order_G1", order.GatewayOrderID)
	assert.Equal(t, "pay_P1", order.PaymentID)
	assert.Equal(t, 240.0, order.TotalAmount)
	assert.Equal(t, 3, e.stockOf(t, p.ID))
	assert.Equal(t, []string{"ravi@example.com"}, e.notifier.confirmations)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	e := newTestEnv(t)
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	in := verifyInput(p, 2)
	in.Signature = "deadbeef"
	_, err := e.svc.VerifyAndPlace(context.Background(), e.user.Id, in)
	require.ErrorIs(t, err, ErrSignatureMismatch)

	// No stock mutation, no notification.
	assert.Equal(t, 5, e.stockOf(t, p.ID))
	assert.Empty(t, e.notifier.confirmations)
}

func TestVerifyRejectsAmountMismatch(t *testing.T) {
	e := newTestEnv(t)
	p := e.addProduct(t, "Tomato Seeds", 120, 5)
	e.gateway.fetchErr = nil
	e.gateway.fetchIntent = &payments.Intent{ID: "order_G1", Amount: 99, Currency: "INR"}

	_, err := e.svc.VerifyAndPlace(context.Background(), e.user.Id, verifyInput(p, 2))
	require.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, 5, e.stockOf(t, p.ID))
}

func TestVerifyAcceptsMatchingGatewayAmount(t *testing.T) {
	e := newTestEnv(t)
	p := e.addProduct(t, "Tomato Seeds", 120, 5)
	e.gateway.fetchErr = nil
	e.gateway.fetchIntent = &payments.Intent{ID: "order_G1", Amount: 24000, Currency: "INR"}

	order, err := e.svc.VerifyAndPlace(context.Background(), e.user.Id, verifyInput(p, 2))
	require.NoError(t, err)
	assert.Equal(t, 240.0, order.TotalAmount)
}

func TestCancelRestocksAndRefunds(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.VerifyAndPlace(ctx, e.user.Id, verifyInput(p, 2))
	require.NoError(t, err)

	cancelled, refunded, err := e.svc.Cancel(ctx, order.ID, e.user.Id, false)
	require.NoError(t, err)

	assert.True(t, refunded)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, models.RefundProcessed, cancelled.RefundStatus)
	assert.Equal(t, "rfnd_test_1", cancelled.RefundID)
	assert.Equal(t, 5, e.stockOf(t, p.ID))
	assert.Equal(t, 1, e.gateway.refundCalls)
	assert.Equal(t, []string{"ravi@example.com"}, e.notifier.refunds)
}

func TestCancelWithRefundFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.VerifyAndPlace(ctx, e.user.Id, verifyInput(p, 2))
	require.NoError(t, err)

	e.gateway.refundErr = errors.New("gateway exploded")
	cancelled, _, err := e.svc.Cancel(ctx, order.ID, e.user.Id, false)
	require.NoError(t, err)

	// The order's own state change commits even though the refund failed.
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, models.RefundFailed, cancelled.RefundStatus)
	assert.Equal(t, 5, e.stockOf(t, p.ID))
	assert.Empty(t, e.notifier.refunds)
	assert.NotEmpty(t, e.notifier.statusUpdates)
}

func TestCancelWithGatewayUnavailable(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.VerifyAndPlace(ctx, e.user.Id, verifyInput(p, 2))
	require.NoError(t, err)

	// Drop the gateway before cancellation.
	noGateway := NewService(e.store, repository.NewMemoryOrders(e.store), repository.NewMemoryUsers(e.store), nil, e.notifier, zap.NewNop())
	cancelled, _, err := noGateway.Cancel(ctx, order.ID, e.user.Id, false)
	require.NoError(t, err)

	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, models.RefundPending, cancelled.RefundStatus)
}

func TestCancelCODNoRefund(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)

	cancelled, refunded, err := e.svc.Cancel(ctx, order.ID, e.user.Id, false)
	require.NoError(t, err)

	assert.False(t, refunded)
	assert.Equal(t, models.RefundNone, cancelled.RefundStatus)
	assert.Equal(t, 0, e.gateway.refundCalls)
	assert.Equal(t, 5, e.stockOf(t, p.ID))
}

func TestSelfCancelShippedRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)

	order.Status = models.OrderShipped
	require.NoError(t, repository.NewMemoryOrders(e.store).Update(ctx, order))

	_, _, err = e.svc.Cancel(ctx, order.ID, e.user.Id, false)
	require.ErrorIs(t, err, ErrCannotCancel)

	// Order unchanged, stock untouched.
	after, err := repository.NewMemoryOrders(e.store).GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, after.Status)
	assert.Equal(t, 3, e.stockOf(t, p.ID))
}

func TestDoubleCancelDoesNotDoubleRestock(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)

	_, _, err = e.svc.Cancel(ctx, order.ID, e.user.Id, false)
	require.NoError(t, err)
	_, _, err = e.svc.Cancel(ctx, order.ID, e.user.Id, false)
	require.ErrorIs(t, err, ErrCannotCancel)

	assert.Equal(t, 5, e.stockOf(t, p.ID))
}

func TestCancelNotOwner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 1}))
	require.NoError(t, err)

	stranger := &models.User{Name: "Someone", Email: "other@example.com", Role: models.RoleUser}
	require.NoError(t, repository.NewMemoryUsers(e.store).Create(ctx, stranger))

	_, _, err = e.svc.Cancel(ctx, order.ID, stranger.Id, false)
	require.ErrorIs(t, err, ErrNotOwner)

	// An admin may cancel on the customer's behalf.
	_, _, err = e.svc.Cancel(ctx, order.ID, stranger.Id, true)
	require.NoError(t, err)
}

func TestAdminUpdateStatus(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)

	updated, refunded, err := e.svc.UpdateStatus(ctx, order.ID, models.OrderConfirmed)
	require.NoError(t, err)
	assert.False(t, refunded)
	assert.Equal(t, models.OrderConfirmed, updated.Status)
	assert.Equal(t, []string{"ravi@example.com"}, e.notifier.statusUpdates)

	_, _, err = e.svc.UpdateStatus(ctx, order.ID, "teleported")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAdminCancelPaidOrderRefundFailureStillCancels(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.VerifyAndPlace(ctx, e.user.Id, verifyInput(p, 2))
	require.NoError(t, err)
	require.Equal(t, models.OrderConfirmed, order.Status)

	e.gateway.refundErr = errors.New("gateway exploded")
	updated, refunded, err := e.svc.UpdateStatus(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)

	assert.True(t, refunded)
	assert.Equal(t, models.OrderCancelled, updated.Status)
	assert.Equal(t, models.RefundFailed, updated.RefundStatus)
	assert.Equal(t, 5, e.stockOf(t, p.ID))
}

func TestAdminDoubleCancelRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)

	_, _, err = e.svc.UpdateStatus(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)
	_, _, err = e.svc.UpdateStatus(ctx, order.ID, models.OrderCancelled)
	require.ErrorIs(t, err, ErrCannotCancel)

	assert.Equal(t, 5, e.stockOf(t, p.ID))
}

func TestGetEnforcesOwnership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 5)

	order, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 1}))
	require.NoError(t, err)

	_, err = e.svc.Get(ctx, order.ID, primitive.NewObjectID(), false)
	require.ErrorIs(t, err, ErrNotOwner)

	got, err := e.svc.Get(ctx, order.ID, primitive.NewObjectID(), true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestListAllStats(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addProduct(t, "Tomato Seeds", 120, 100)

	for i := 0; i < 3; i++ {
		_, err := e.svc.Place(ctx, e.user.Id, placeInput(ItemInput{ProductID: p.ID.Hex(), Quantity: 1}))
		require.NoError(t, err)
	}
	orders, _, err := e.svc.ListMine(ctx, e.user.Id, repository.OrderFilter{})
	require.NoError(t, err)
	_, _, err = e.svc.Cancel(ctx, orders[0].ID, e.user.Id, false)
	require.NoError(t, err)

	all, total, stats, err := e.svc.ListAll(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.ByStatus[models.OrderPending])
	assert.Equal(t, int64(1), stats.ByStatus[models.OrderCancelled])
	// Cancelled orders do not count toward revenue.
	assert.Equal(t, 240.0, stats.TotalRevenue)
}
