package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub/userhub/web/service"
)

func TestUserCommandsReturnErrors(t *testing.T) {
	t.Setenv("USERHUB_DB_PATH", filepath.Join(t.TempDir(), "user.db"))
	t.Setenv("USERHUB_PASSWORD_HASH", "sha256")

	require.NoError(t, addUser("alice", "pw123", "admin"))
	assert.ErrorIs(t, addUser("alice", "other", "reader"), service.ErrUserExists)
	assert.NoError(t, listUsers())

	t.Setenv("USERHUB_PASSWORD_HASH", "md5")
	assert.Error(t, addUser("bob", "pw", "reader"))
	assert.Error(t, listUsers())
}
