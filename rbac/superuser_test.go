package rbac

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confportal/authcore/services/password"
	"github.com/confportal/authcore/testutils"
)

func newTestProvisioner(t *testing.T) *Provisioner {
	t.Helper()

	db := testutils.SetupTestDB(t, Models()...)
	passwordService := password.NewService(testutils.GetTestConfig(), nil)
	return NewProvisioner(db, passwordService, nil)
}

func TestProvisioner_CreateSuperuser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates verified active superuser", func(t *testing.T) {
		provisioner := newTestProvisioner(t)

		user, created, err := provisioner.CreateSuperuser(ctx, "admin@example.com", "+886912345678", "Abc1234*", "Admin")

		require.NoError(t, err)
		assert.True(t, created)
		assert.True(t, user.IsSuperuser)
		assert.True(t, user.Verified)
		assert.True(t, user.IsActive)
		assert.False(t, user.IsAdmin)
		assert.Equal(t, "Admin", user.DisplayName)
		assert.Len(t, user.PasswordHash, 512)
		assert.True(t, strings.HasPrefix(user.PasswordHash, "pbkdf2_sha256$"))
	})

	t.Run("existing email is returned unchanged", func(t *testing.T) {
		provisioner := newTestProvisioner(t)

		first, created, err := provisioner.CreateSuperuser(ctx, "admin@example.com", "+886912345678", "Abc1234*", "")
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := provisioner.CreateSuperuser(ctx, "admin@example.com", "+886987654321", "Other123!", "Else")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.PasswordHash, second.PasswordHash)
	})

	t.Run("existing phone number is returned unchanged", func(t *testing.T) {
		provisioner := newTestProvisioner(t)

		first, _, err := provisioner.CreateSuperuser(ctx, "one@example.com", "+886912345678", "Abc1234*", "")
		require.NoError(t, err)

		second, created, err := provisioner.CreateSuperuser(ctx, "two@example.com", "+886912345678", "Abc1234*", "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("display name defaults to email", func(t *testing.T) {
		provisioner := newTestProvisioner(t)

		user, _, err := provisioner.CreateSuperuser(ctx, "noname@example.com", "+886911111111", "Abc1234*", "")

		require.NoError(t, err)
		assert.Equal(t, "noname@example.com", user.DisplayName)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		provisioner := newTestProvisioner(t)

		_, _, err := provisioner.CreateSuperuser(ctx, "not-an-email", "+886911111111", "Abc1234*", "")

		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("rejects weak password", func(t *testing.T) {
		provisioner := newTestProvisioner(t)

		_, _, err := provisioner.CreateSuperuser(ctx, "weak@example.com", "+886911111111", testutils.TestPasswords.TooShort, "")

		assert.Error(t, err)
	})
}
