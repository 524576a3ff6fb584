package authctx

import (
	"context"
	"testing"

	"idstation-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationScope(t *testing.T) {
	three := int64(3)
	for _, tc := range []struct {
		name    string
		user    CurrentUser
		want    *int64
		wantErr error
	}{
		{"superAdmin unscoped", CurrentUser{Role: domain.RoleSuperAdmin}, nil, nil},
		{"superAdmin with station", CurrentUser{Role: domain.RoleSuperAdmin, StationID: &three}, &three, nil},
		{"developer unscoped", CurrentUser{Role: domain.RoleDeveloper}, nil, nil},
		{"printer with station", CurrentUser{Role: domain.RolePrinter, StationID: &three}, &three, nil},
		{"cross-station printer", CurrentUser{Role: domain.RolePrinter}, nil, nil},
		{"registrar with station", CurrentUser{Role: domain.RoleRegistrar, StationID: &three}, &three, nil},
		{"registrar without station", CurrentUser{Role: domain.RoleRegistrar}, nil, ErrStationRequired},
		{"stationAdmin without station", CurrentUser{Role: domain.RoleStationAdmin}, nil, ErrStationRequired},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.user.StationScope()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCurrentUserContextRoundTrip(t *testing.T) {
	u := CurrentUser{ID: 7, Username: "printer1", Role: domain.RolePrinter}
	ctx := WithCurrentUser(context.Background(), u)
	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, u, *got)

	assert.Nil(t, FromContext(context.Background()))
}
