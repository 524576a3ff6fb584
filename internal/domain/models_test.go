package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	cases := map[string]UserRole{
		"superAdmin":       RoleSuperAdmin,
		"stationAdmin":     RoleStationAdmin,
		"stationRegistrar": RoleRegistrar,
		"stationRegistral": RoleRegistrar,
		"stationPrinter":   RolePrinter,
		"stationPrintral":  RolePrinter,
		"developer":        RoleDeveloper,
	}
	for raw, want := range cases {
		got, ok := NormalizeRole(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "admin", "SuperAdmin", "registrar"} {
		_, ok := NormalizeRole(raw)
		assert.False(t, ok, raw)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusApproved))
	assert.True(t, ValidStatus(StatusRejected))
	assert.False(t, ValidStatus("approved"))
	assert.False(t, ValidStatus(""))
}

func TestFullName(t *testing.T) {
	c := Citizen{FirstName: "Abebe", MiddleName: "Bikila", LastName: "Kebede"}
	assert.Equal(t, "Abebe Bikila Kebede", c.FullName())

	c.MiddleName = ""
	assert.Equal(t, "Abebe Kebede", c.FullName())
}
