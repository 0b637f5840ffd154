package database

import (
	"testing"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRolePermissions_AdminHasEveryPermission(t *testing.T) {
	all := make(map[string]bool)
	for _, perms := range RolePermissions {
		for _, p := range perms {
			all[p] = true
		}
	}

	admin := make(map[string]bool)
	for _, p := range RolePermissions[entity.RoleAdmin] {
		admin[p] = true
	}

	assert.Equal(t, all, admin)
}

func TestRolePermissions_PatientIsReadOnly(t *testing.T) {
	assert.Equal(t, []string{entity.PermViewOrders}, RolePermissions[entity.RolePatient])
	assert.NotContains(t, RolePermissions[entity.RoleLabTechnician], entity.PermVerifyResults)
	assert.Contains(t, RolePermissions[entity.RoleDoctor], entity.PermVerifyResults)
}

func TestStarterTests_PricesParse(t *testing.T) {
	codes := make(map[string]bool)
	for _, st := range starterTests {
		assert.False(t, codes[st.code], "duplicate code %s", st.code)
		codes[st.code] = true

		price, err := decimal.NewFromString(st.price)
		assert.NoError(t, err)
		assert.True(t, price.IsPositive())
	}
	assert.True(t, codes["CBC"] && codes["FBS"] && codes["LIPID"])
}
