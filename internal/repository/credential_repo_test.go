package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/testutil"
)

func TestCredentialRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCredentialRepository(db)
	hash := "$2a$10$hash"
	require.NoError(t, repo.Create(&model.Credential{Email: "a@x.com", PasswordHash: &hash}))

	exists, err := repo.ExistsByEmail("a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	c, err := repo.GetByEmail("a@x.com")
	require.NoError(t, err)
	gh := "42"
	c.GithubID = &gh
	require.NoError(t, repo.Update(c))

	byGithub, err := repo.GetByGithubID("42")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byGithub.Email)

	_, err = repo.GetByGithubID("missing")
	assert.Error(t, err)
}
