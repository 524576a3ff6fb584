package service

import (
	"context"
	"testing"
	"time"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCitizenFixture(t *testing.T) (CitizenService, *OrderService, *repository.MemoryCitizenStore) {
	t.Helper()
	citizens, orders := repository.NewMemoryStores()
	csvc := CitizenService{Citizens: citizens}
	osvc := &OrderService{Orders: orders, Currency: "ETB"}
	return csvc, osvc, citizens
}

func validFields() CitizenFields {
	return CitizenFields{
		RegNumber: "REG-100",
		FirstName: "Sara",
		LastName:  "Tesfaye",
		Gender:    "female",
		BirthDate: time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC),
		Phone:     "0922000000",
	}
}

func TestCreateCitizenStartsPendingWithBarcode(t *testing.T) {
	svc, _, _ := newCitizenFixture(t)

	c, err := svc.Create(context.Background(), registrarAt(1), validFields())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, c.IsVerified)
	assert.NotEmpty(t, c.Barcode)
	assert.Equal(t, int64(1), c.StationID)

	// Reading it back returns the submitted fields unchanged.
	got, err := svc.GetByID(context.Background(), registrarAt(1), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "REG-100", got.RegNumber)
	assert.Equal(t, "Sara", got.FirstName)
	assert.Equal(t, "Tesfaye", got.LastName)
	assert.Equal(t, "female", got.Gender)
	assert.Equal(t, "0922000000", got.Phone)
	assert.Equal(t, domain.StatusPending, got.IsVerified)

	// Each registration gets its own barcode payload.
	in := validFields()
	in.RegNumber = "REG-101"
	c2, err := svc.Create(context.Background(), registrarAt(1), in)
	require.NoError(t, err)
	assert.NotEqual(t, c.Barcode, c2.Barcode)
}

func TestCreateCitizenValidation(t *testing.T) {
	svc, _, _ := newCitizenFixture(t)

	for _, tc := range []struct {
		name   string
		mutate func(*CitizenFields)
	}{
		{"regNumber", func(f *CitizenFields) { f.RegNumber = "" }},
		{"firstName", func(f *CitizenFields) { f.FirstName = "" }},
		{"lastName", func(f *CitizenFields) { f.LastName = "" }},
		{"gender", func(f *CitizenFields) { f.Gender = "" }},
		{"birthDate", func(f *CitizenFields) { f.BirthDate = time.Time{} }},
		{"phone", func(f *CitizenFields) { f.Phone = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			in := validFields()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), registrarAt(1), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateCitizenRoleDenied(t *testing.T) {
	svc, _, _ := newCitizenFixture(t)
	_, err := svc.Create(context.Background(), printerAt(1), validFields())
	assert.ErrorIs(t, err, ErrRoleDenied)
}

func TestVerificationAdminOnly(t *testing.T) {
	svc, _, _ := newCitizenFixture(t)
	c, err := svc.Create(context.Background(), registrarAt(1), validFields())
	require.NoError(t, err)

	_, err = svc.SetVerification(context.Background(), registrarAt(1), c.ID, domain.StatusApproved)
	assert.ErrorIs(t, err, ErrRoleDenied)

	approved, err := svc.SetVerification(context.Background(), adminAt(1), c.ID, domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.IsVerified)

	// Re-applying the current state is a no-op, not an error.
	again, err := svc.SetVerification(context.Background(), adminAt(1), c.ID, domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, again.IsVerified)

	_, err = svc.SetVerification(context.Background(), adminAt(1), c.ID, domain.Status("MAYBE"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCitizenStationIsolation(t *testing.T) {
	svc, _, _ := newCitizenFixture(t)
	c, err := svc.Create(context.Background(), registrarAt(1), validFields())
	require.NoError(t, err)

	// Another station's registrar cannot read, update, or delete it.
	_, err = svc.GetByID(context.Background(), registrarAt(2), c.ID)
	assert.ErrorIs(t, err, repository.ErrStationMismatch)
	_, err = svc.Update(context.Background(), registrarAt(2), c.ID, validFields())
	assert.ErrorIs(t, err, repository.ErrStationMismatch)
	err = svc.Delete(context.Background(), registrarAt(2), c.ID)
	assert.ErrorIs(t, err, repository.ErrStationMismatch)

	// superAdmin is unscoped and sees it.
	super := authctx.CurrentUser{ID: 1, Username: "root", Role: domain.RoleSuperAdmin}
	got, err := svc.GetByID(context.Background(), super, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestDeleteCitizenRefusedWhileOrdersExist(t *testing.T) {
	csvc, osvc, _ := newCitizenFixture(t)
	c, err := csvc.Create(context.Background(), registrarAt(1), validFields())
	require.NoError(t, err)
	_, err = csvc.SetVerification(context.Background(), adminAt(1), c.ID, domain.StatusApproved)
	require.NoError(t, err)

	_, err = osvc.Create(context.Background(), registrarAt(1), CreateOrderInput{
		CitizenID:     c.ID,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	err = csvc.Delete(context.Background(), registrarAt(1), c.ID)
	assert.ErrorIs(t, err, repository.ErrCitizenHasOrders)

	// A caller from another station reads the citizen as missing, not as a
	// citizen with orders.
	err = csvc.Delete(context.Background(), registrarAt(2), c.ID)
	assert.ErrorIs(t, err, repository.ErrStationMismatch)
}

func TestCitizenSearchScopesAndPaginates(t *testing.T) {
	svc, _, _ := newCitizenFixture(t)

	for i, reg := range []string{"A-1", "A-2", "A-3"} {
		in := validFields()
		in.RegNumber = reg
		in.Phone = "091100000" + string(rune('0'+i))
		_, err := svc.Create(context.Background(), registrarAt(1), in)
		require.NoError(t, err)
	}
	in := validFields()
	in.RegNumber = "B-1"
	_, err := svc.Create(context.Background(), registrarAt(2), in)
	require.NoError(t, err)

	items, total, err := svc.Search(context.Background(), registrarAt(1), repository.CitizenQuery{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, "A-1", items[0].RegNumber)

	page2, _, err := svc.Search(context.Background(), registrarAt(1), repository.CitizenQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "A-3", page2[0].RegNumber)
}
