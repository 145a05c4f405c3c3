package seed

import (
	"context"
	"testing"

	"snapgram/internal/gateway"
	"snapgram/internal/identity"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/storage"
	"snapgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newGateway(t *testing.T) (*gateway.Gateway, *gorm.DB, *storage.MemoryStore) {
	t.Helper()
	db := testutil.NewTestDB(t)
	files := storage.NewMemoryStore("media")
	gw := gateway.New(gateway.Platform{
		Identity:  identity.NewProvider(db, nil, identity.Options{Secret: "seed-test-secret-0123456789abcdefgh", BcryptCost: bcrypt.MinCost}),
		Users:     repository.NewUserRepository(db, nil),
		Posts:     repository.NewPostRepository(db, nil),
		Saves:     repository.NewSaveRepository(db),
		Follows:   repository.NewFollowRepository(db),
		Files:     files,
		PublicURL: "http://snapgram.test",
	})
	return gw, db, files
}

func TestSeeder_Run(t *testing.T) {
	gw, db, files := newGateway(t)
	ctx := context.Background()

	res, err := NewSeeder(gw, Options{Users: 3, Posts: 5, Seed: 42}).Run(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Users, 3)
	assert.Len(t, res.Posts, 5)
	assert.Equal(t, 5, files.Len())
	assert.Equal(t, 3, res.Follows)
	assert.Positive(t, res.Likes)

	for _, p := range res.Posts {
		assert.GreaterOrEqual(t, len(p.Caption), 5)
		assert.NotEmpty(t, p.ImageURL)
	}

	_, err = gw.SignInAccount(ctx, res.Users[0].Email, DefaultPassword)
	assert.NoError(t, err)

	var saves int64
	require.NoError(t, db.Model(&models.Save{}).Count(&saves).Error)
	assert.EqualValues(t, res.Saves, saves)
}

func TestSeeder_NoUsers(t *testing.T) {
	gw, _, files := newGateway(t)
	res, err := NewSeeder(gw, Options{Posts: 3}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Posts)
	assert.Zero(t, files.Len())
}

func TestClear(t *testing.T) {
	gw, db, _ := newGateway(t)
	_, err := NewSeeder(gw, Options{Users: 2, Posts: 2, Seed: 7}).Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, Clear(db))
	for _, m := range []interface{}{&models.Account{}, &models.User{}, &models.Post{}, &models.Save{}, &models.Follow{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}
