package auth

import (
	"testing"
	"time"

	"branch-pos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	branchID := uint(3)
	m := NewTokenManager("test-secret-0123456789", time.Hour)

	token, err := m.GenerateToken(&models.User{ID: 42, Role: models.RoleCashier, BranchID: &branchID})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleCashier, claims.Role)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, branchID, *claims.BranchID)
}

func TestValidateToken_Rejects(t *testing.T) {
	m := NewTokenManager("test-secret-0123456789", time.Hour)
	token, err := m.GenerateToken(&models.User{ID: 1, Role: models.RoleOwner})
	require.NoError(t, err)

	other := NewTokenManager("another-secret-987654321", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager("test-secret-0123456789", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.Error(t, err, "expired")

	_, err = m.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestCan(t *testing.T) {
	assert.True(t, Can(models.RoleOwner, CapManageUsers))
	assert.True(t, Can(models.RoleCashier, CapCreateSale))
	assert.False(t, Can(models.RoleCashier, CapVoidSale))
	assert.False(t, Can(models.RoleCashier, CapManageInventory))
	assert.True(t, Can(models.RoleAuditor, CapViewReports))
	assert.False(t, Can(models.RoleAuditor, CapCreateSale))
	assert.False(t, Can(models.Role("intern"), CapViewSales))
}
