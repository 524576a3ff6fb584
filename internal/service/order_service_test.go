package service

import (
	"context"
	"math/rand"
	"regexp"
	"testing"
	"time"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func registrarAt(station int64) authctx.CurrentUser {
	return authctx.CurrentUser{ID: 10, Username: "reg", Role: domain.RoleRegistrar, StationID: ptr(station)}
}

func adminAt(station int64) authctx.CurrentUser {
	return authctx.CurrentUser{ID: 20, Username: "admin", Role: domain.RoleStationAdmin, StationID: ptr(station)}
}

func printerAt(station int64) authctx.CurrentUser {
	return authctx.CurrentUser{ID: 30, Username: "printer", Role: domain.RolePrinter, StationID: ptr(station)}
}

func newOrderFixture(t *testing.T) (*OrderService, *repository.MemoryCitizenStore, *repository.MemoryOrderStore) {
	t.Helper()
	citizens, orders := repository.NewMemoryStores()
	svc := &OrderService{
		Orders:   orders,
		Currency: "ETB",
		Now:      func() time.Time { return time.UnixMilli(1700000000000) },
		Rand:     rand.New(rand.NewSource(42)),
	}
	return svc, citizens, orders
}

func seedCitizen(t *testing.T, citizens *repository.MemoryCitizenStore, station int64, status domain.Status) *domain.Citizen {
	t.Helper()
	c, err := citizens.Create(context.Background(), domain.Citizen{
		StationID:  station,
		RegNumber:  "REG-001",
		FirstName:  "Abebe",
		LastName:   "Kebede",
		Gender:     "male",
		BirthDate:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Phone:      "0911000000",
		IsVerified: status,
	})
	require.NoError(t, err)
	return c
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	got := NewOrderNumber(now, rand.New(rand.NewSource(1)))
	assert.Regexp(t, regexp.MustCompile(`^ORD-1700000000000-[0-9a-z]{9}$`), got)

	// Same clock and seed reproduce the same number.
	again := NewOrderNumber(now, rand.New(rand.NewSource(1)))
	assert.Equal(t, got, again)

	// A different seed changes only the suffix.
	other := NewOrderNumber(now, rand.New(rand.NewSource(2)))
	assert.NotEqual(t, got, other)
	assert.Regexp(t, regexp.MustCompile(`^ORD-1700000000000-[0-9a-z]{9}$`), other)
}

func TestCreateOrderRequiresApprovedCitizen(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	pending := seedCitizen(t, citizens, 1, domain.StatusPending)

	_, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     pending.ID,
		PaymentMethod: "cash",
		Amount:        200,
	})
	require.ErrorIs(t, err, repository.ErrCitizenNotApproved)
	assert.EqualError(t, err, "Only approved citizens can create orders")
}

func TestCreateOrderHappyPath(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	o, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
		Amount:        200,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.OrderStatus)
	assert.Equal(t, domain.StatusPending, o.IsPrinted)
	assert.Equal(t, domain.StatusPending, o.IsAccepted)
	assert.Equal(t, domain.OrderTypeNew, o.OrderType)
	assert.Equal(t, int64(10), o.RegistrarID)
	assert.Equal(t, "ETB", o.Amount.Currency)
	assert.Regexp(t, regexp.MustCompile(`^ORD-1700000000000-[0-9a-z]{9}$`), o.OrderNumber)
	require.NotNil(t, o.Citizen)
	assert.Equal(t, "Abebe Kebede", o.Citizen.FullName)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	_, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID: approved.ID,
		Amount:    200,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
		Amount:        -1,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderRoleAndStation(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	_, err := svc.Create(context.Background(), adminAt(1), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, ErrRoleDenied)

	// Registrar from another station never sees the citizen.
	_, err = svc.Create(context.Background(), registrarAt(2), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, repository.ErrStationMismatch)
}

func TestDeleteOrderOnlyPendingAndOwner(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	registrar := registrarAt(1)
	o, err := svc.Create(context.Background(), registrar, CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	other := registrar
	other.ID = 99
	err = svc.Delete(context.Background(), other, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotOrderOwner)

	_, err = svc.UpdateStatus(context.Background(), adminAt(1), o.ID, domain.StatusApproved)
	require.NoError(t, err)
	err = svc.Delete(context.Background(), registrar, o.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotPending)
}

func TestPrintWorkflowBindsPrinter(t *testing.T) {
	svc, citizens, orders := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)
	orders.SetPrinterName(30, "printer")

	o, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	printer := printerAt(1)
	printed, err := svc.ApprovePrint(context.Background(), printer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, printed.IsPrinted)
	require.NotNil(t, printed.PrinterID)
	assert.Equal(t, printer.ID, *printed.PrinterID)
	require.NotNil(t, printed.Printer)
	assert.Equal(t, "printer", printed.Printer.Username)

	rejected, err := svc.RejectPrint(context.Background(), printer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.IsPrinted)
	assert.Nil(t, rejected.PrinterID)

	accepted, err := svc.Accept(context.Background(), printer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, accepted.IsAccepted)

	_, err = svc.ApprovePrint(context.Background(), registrarAt(1), o.ID)
	assert.ErrorIs(t, err, ErrRoleDenied)
}

func TestCrossStationPrinterSpansStations(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	o, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	// A printer from another station cannot touch the order.
	_, err = svc.ApprovePrint(context.Background(), printerAt(2), o.ID)
	assert.ErrorIs(t, err, repository.ErrStationMismatch)

	// A printer with no station assignment works across every station.
	roaming := authctx.CurrentUser{ID: 31, Username: "hq-printer", Role: domain.RolePrinter}
	printed, err := svc.ApprovePrint(context.Background(), roaming, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, printed.IsPrinted)
}

func TestBulkStatusKeepsGoingPastFailures(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	var ids []int64
	for i := 0; i < 3; i++ {
		o, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
			CitizenID:     approved.ID,
			PaymentMethod: "cash",
		})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	// One id that does not exist fails without stopping the rest.
	ids = append(ids, 9999)

	res, err := svc.BulkApprove(context.Background(), adminAt(1), ids)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, int64(9999), res.Failed[0].ID)

	for _, id := range ids[:3] {
		o, err := svc.GetByID(context.Background(), adminAt(1), id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, o.OrderStatus)
	}
}

func TestTrackByPhone(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	_, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	found, err := svc.TrackByPhone(context.Background(), registrarAt(1), "0911000000")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	none, err := svc.TrackByPhone(context.Background(), registrarAt(1), "0911999999")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetOrderFromOtherStationReadsAsMissing(t *testing.T) {
	svc, citizens, _ := newOrderFixture(t)
	approved := seedCitizen(t, citizens, 1, domain.StatusApproved)

	o, err := svc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     approved.ID,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), registrarAt(2), o.ID)
	assert.ErrorIs(t, err, repository.ErrStationMismatch)

	got, err := svc.GetByID(context.Background(), registrarAt(1), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestStationScopeRequired(t *testing.T) {
	svc, _, _ := newOrderFixture(t)
	// A registrar without a station assignment cannot act.
	unassigned := authctx.CurrentUser{ID: 5, Username: "lost", Role: domain.RoleRegistrar}
	_, err := svc.Create(context.Background(), unassigned, CreateOrderInput{CitizenID: 1, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, authctx.ErrStationRequired)
}
