package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"

	"snapgram/internal/events"
	"snapgram/internal/identity"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/storage"
	"snapgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubPosts struct {
	repository.PostRepository
	createFn func(ctx context.Context, post *models.Post) error
}

func (s *stubPosts) Create(ctx context.Context, post *models.Post) error {
	if s.createFn != nil {
		return s.createFn(ctx, post)
	}
	return s.PostRepository.Create(ctx, post)
}

type stubFiles struct {
	*storage.MemoryStore
	deleteFn func(ctx context.Context, fileID string) error
}

func (s *stubFiles) DeleteFile(ctx context.Context, fileID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, fileID)
	}
	return s.MemoryStore.DeleteFile(ctx, fileID)
}

type fixture struct {
	gw       *Gateway
	posts    *stubPosts
	files    *stubFiles
	recorder *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &fixture{
		posts:    &stubPosts{PostRepository: repository.NewPostRepository(db, nil)},
		files:    &stubFiles{MemoryStore: storage.NewMemoryStore("media")},
		recorder: &events.Recorder{},
	}
	f.gw = New(Platform{
		Identity:       identity.NewProvider(db, nil, identity.Options{Secret: "gateway-test-secret-0123456789abcdef", BcryptCost: bcrypt.MinCost}),
		Users:          repository.NewUserRepository(db, nil),
		Posts:          f.posts,
		Saves:          repository.NewSaveRepository(db),
		Follows:        repository.NewFollowRepository(db),
		Files:          f.files,
		Events:         f.recorder,
		PublicURL:      "http://snapgram.test",
		MaxUploadBytes: 1 << 20,
	})
	return f
}

func pngUpload(t *testing.T) storage.Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return storage.Upload{Name: "photo.png", ContentType: "image/png", Size: int64(buf.Len()), Body: &buf}
}

func (f *fixture) signUp(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.gw.CreateUserAccount(context.Background(), NewUser{
		Name:     "User " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return u
}

func TestAccountLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.signUp(t, "jane")
	assert.Equal(t, "http://snapgram.test/api/avatars/initials?name=User+jane", user.ImageURL)

	session, err := f.gw.SignInAccount(ctx, "jane@example.com", "password123")
	require.NoError(t, err)

	current, err := f.gw.GetCurrentUser(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	require.NoError(t, f.gw.SignOutAccount(ctx, session.Token))
	_, err = f.gw.GetCurrentUser(ctx, session.Token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = f.gw.SignInAccount(ctx, "jane@example.com", "wrong-password")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestCreateUserAccount_DuplicateUsernameRemovesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "jane")

	_, err := f.gw.CreateUserAccount(ctx, NewUser{Name: "Other", Username: "jane", Email: "other@example.com", Password: "password123"})
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)

	_, err = f.gw.SignInAccount(ctx, "other@example.com", "password123")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized), "account was rolled back")
}

func TestCreateUserAccount_MissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.gw.CreateUserAccount(context.Background(), NewUser{Name: "x"})

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")

	post, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, Caption: "Hello world", Location: "Paris", Tags: "art, travel ,food", File: pngUpload(t)})
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"art", "travel", "food"}, post.Tags)
	assert.Equal(t, storage.PreviewURL("http://snapgram.test", post.ImageID, storage.DefaultPreview), post.ImageURL)
	assert.Equal(t, 1, f.files.Len())
	assert.Contains(t, f.recorder.Types(), events.PostCreated)

	got, err := f.gw.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Creator)
	assert.Equal(t, "jane", got.Creator.Username)
}

func TestCreatePost_FailedWriteDeletesUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")
	f.posts.createFn = func(context.Context, *models.Post) error {
		return models.NewUnavailableError("document store", errors.New("connection reset"))
	}

	_, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, Caption: "lost", File: pngUpload(t)})
	assert.True(t, models.IsCode(err, models.CodeUnavailable))
	assert.Equal(t, 0, f.files.Len(), "uploaded file is removed")

	list, err := f.gw.GetInfinitePosts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list.Documents)
	assert.NotContains(t, f.recorder.Types(), events.PostCreated)
}

func TestCreatePost_CleanupFailureLeavesOrphan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")
	f.posts.createFn = func(context.Context, *models.Post) error {
		return models.NewUnavailableError("document store", errors.New("timeout"))
	}
	f.files.deleteFn = func(context.Context, string) error {
		return models.NewUnavailableError("storage", errors.New("timeout"))
	}

	_, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, File: pngUpload(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document store", "the write failure is reported, not the cleanup failure")
	assert.Equal(t, 1, f.files.Len())
}

func TestCreatePost_RejectsBadUpload(t *testing.T) {
	f := newFixture(t)
	user := f.signUp(t, "jane")

	_, err := f.gw.CreatePost(context.Background(), NewPost{CreatorID: user.ID, File: storage.Upload{Name: "doc.pdf", ContentType: "application/pdf", Size: 3, Body: bytes.NewReader([]byte("pdf"))}})
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Equal(t, 0, f.files.Len())
}

func TestUpdatePost_ReplacesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")
	post, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, Caption: "v1", File: pngUpload(t)})
	require.NoError(t, err)

	upload := pngUpload(t)
	updated, err := f.gw.UpdatePost(ctx, PostUpdate{PostID: post.ID, Caption: "v2", Tags: "x", ImageID: post.ImageID, ImageURL: post.ImageURL, File: &upload})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Caption)
	assert.NotEqual(t, post.ImageID, updated.ImageID)
	assert.Equal(t, 1, f.files.Len())
	_, _, err = f.files.GetFile(ctx, post.ImageID)
	assert.True(t, models.IsCode(err, models.CodeNotFound), "old image is deleted")

	kept, err := f.gw.UpdatePost(ctx, PostUpdate{PostID: post.ID, Caption: "v3"})
	require.NoError(t, err)
	assert.Equal(t, updated.ImageID, kept.ImageID, "image fields are untouched without a new file")
}

func TestUpdatePost_FailedWriteKeepsOldImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")
	post, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, File: pngUpload(t)})
	require.NoError(t, err)

	upload := pngUpload(t)
	_, err = f.gw.UpdatePost(ctx, PostUpdate{PostID: "missing", ImageID: post.ImageID, File: &upload})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.Equal(t, 1, f.files.Len())
	_, _, err = f.files.GetFile(ctx, post.ImageID)
	assert.NoError(t, err)
}

func TestUpdateUser_ReplacesAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")

	first := pngUpload(t)
	u1, err := f.gw.UpdateUser(ctx, UserUpdate{UserID: user.ID, Name: "Jane", Bio: "hi", File: &first})
	require.NoError(t, err)
	assert.Equal(t, "hi", u1.Bio)
	assert.NotEmpty(t, u1.ImageID)

	second := pngUpload(t)
	u2, err := f.gw.UpdateUser(ctx, UserUpdate{UserID: user.ID, Name: "Jane", Bio: "hey", ImageID: u1.ImageID, ImageURL: u1.ImageURL, File: &second})
	require.NoError(t, err)
	assert.NotEqual(t, u1.ImageID, u2.ImageID)
	assert.Equal(t, 1, f.files.Len())
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")
	post, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, File: pngUpload(t)})
	require.NoError(t, err)

	assert.True(t, models.IsCode(f.gw.DeletePost(ctx, post.ID, ""), models.CodeValidation))

	require.NoError(t, f.gw.DeletePost(ctx, post.ID, post.ImageID))
	assert.Equal(t, 0, f.files.Len())
	_, err = f.gw.GetPostByID(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestGetInfinitePosts_Pages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")
	for i := 0; i < 14; i++ {
		_, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, Caption: "post", File: pngUpload(t)})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	cursor := ""
	var sizes []int
	for {
		page, err := f.gw.GetInfinitePosts(ctx, cursor)
		require.NoError(t, err)
		sizes = append(sizes, len(page.Documents))
		for _, p := range page.Documents {
			assert.False(t, seen[p.ID], "duplicate %s", p.ID)
			seen[p.ID] = true
		}
		if len(page.Documents) < f.gw.PageSize() {
			break
		}
		cursor = page.Documents[len(page.Documents)-1].ID
	}
	assert.Equal(t, []int{6, 6, 2}, sizes)
	assert.Len(t, seen, 14)

	recent, err := f.gw.GetRecentPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, recent.Documents, 14)
	assert.Equal(t, int64(14), recent.Total)
}

func TestSearchAndLikes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "jane")
	cat, err := f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, Caption: "My Cat sleeping", File: pngUpload(t)})
	require.NoError(t, err)
	_, err = f.gw.CreatePost(ctx, NewPost{CreatorID: user.ID, Caption: "A dog", File: pngUpload(t)})
	require.NoError(t, err)

	found, err := f.gw.SearchPosts(ctx, "cat")
	require.NoError(t, err)
	require.Len(t, found.Documents, 1)
	assert.Equal(t, cat.ID, found.Documents[0].ID)

	liked, err := f.gw.LikePost(ctx, cat.ID, []string{user.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StringList{user.ID}, liked.Likes)

	unliked, err := f.gw.LikePost(ctx, cat.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, unliked.Likes)

	mine, err := f.gw.GetUserPosts(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine.Documents, 2)
}

func TestSavesAndFollows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.signUp(t, "jane")
	john := f.signUp(t, "john")
	post, err := f.gw.CreatePost(ctx, NewPost{CreatorID: john.ID, File: pngUpload(t)})
	require.NoError(t, err)

	save, err := f.gw.SavePost(ctx, jane.ID, post.ID)
	require.NoError(t, err)
	_, err = f.gw.SavePost(ctx, jane.ID, post.ID)
	assert.True(t, models.IsCode(err, models.CodeConflict))

	saved, err := f.gw.GetSavedPosts(ctx, jane.ID)
	require.NoError(t, err)
	require.Len(t, saved.Documents, 1)
	assert.Equal(t, post.ID, saved.Documents[0].Post.ID)

	require.NoError(t, f.gw.DeleteSavedPost(ctx, save.ID))
	assert.True(t, models.IsCode(f.gw.DeleteSavedPost(ctx, save.ID), models.CodeNotFound))

	follow, err := f.gw.FollowUser(ctx, jane.ID, john.ID)
	require.NoError(t, err)
	_, err = f.gw.FollowUser(ctx, jane.ID, jane.ID)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	follows, err := f.gw.GetFollows(ctx, jane.ID)
	require.NoError(t, err)
	require.Len(t, follows.Documents, 1)
	assert.Equal(t, john.ID, follows.Documents[0].FollowedID)

	require.NoError(t, f.gw.DeleteFollowUser(ctx, follow.ID))

	users, err := f.gw.GetUsers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, users.Documents, 1)
	assert.Equal(t, int64(2), users.Total)
}

func TestFindRecords_PastDefaultLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.signUp(t, "jane")

	var firstPost, firstFollowed string
	for i := 0; i < repository.DefaultLimit+1; i++ {
		other := f.signUp(t, fmt.Sprintf("user%02d", i))
		post, err := f.gw.CreatePost(ctx, NewPost{CreatorID: other.ID, File: pngUpload(t)})
		require.NoError(t, err)
		_, err = f.gw.SavePost(ctx, jane.ID, post.ID)
		require.NoError(t, err)
		_, err = f.gw.FollowUser(ctx, jane.ID, other.ID)
		require.NoError(t, err)
		if i == 0 {
			firstPost, firstFollowed = post.ID, other.ID
		}
	}

	all, err := f.gw.GetSavedPosts(ctx, jane.ID)
	require.NoError(t, err)
	assert.Len(t, all.Documents, repository.DefaultLimit)

	saves, err := f.gw.FindSaveRecord(ctx, jane.ID, firstPost)
	require.NoError(t, err)
	require.Len(t, saves.Documents, 1)
	assert.Equal(t, firstPost, saves.Documents[0].PostID)

	byID, err := f.gw.GetSaveByID(ctx, saves.Documents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, jane.ID, byID.UserID)

	follows, err := f.gw.FindFollowRecord(ctx, jane.ID, firstFollowed)
	require.NoError(t, err)
	require.Len(t, follows.Documents, 1)

	follow, err := f.gw.GetFollowByID(ctx, follows.Documents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, firstFollowed, follow.FollowedID)

	none, err := f.gw.FindFollowRecord(ctx, firstFollowed, jane.ID)
	require.NoError(t, err)
	assert.Empty(t, none.Documents)

	_, err = f.gw.GetFollowByID(ctx, "missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestCall_WrapsPlainErrors(t *testing.T) {
	f := newFixture(t)
	f.posts.createFn = func(context.Context, *models.Post) error { return errors.New("boom") }
	user := f.signUp(t, "jane")

	_, err := f.gw.CreatePost(context.Background(), NewPost{CreatorID: user.ID, File: pngUpload(t)})
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.Equal(t, 0, f.files.Len())
}

func TestFilePreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.GetFilePreview(ctx, "")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	file, err := f.gw.UploadFile(ctx, pngUpload(t))
	require.NoError(t, err)
	u, err := f.gw.GetFilePreview(ctx, file.ID)
	require.NoError(t, err)
	assert.Contains(t, u, "/api/files/"+file.ID+"/preview")

	body, ct, err := f.gw.RenderFilePreview(ctx, file.ID, storage.DefaultPreview)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.NotEmpty(t, body)

	require.NoError(t, f.gw.DeleteFile(ctx, file.ID))
	_, _, err = f.gw.RenderFilePreview(ctx, file.ID, storage.DefaultPreview)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
