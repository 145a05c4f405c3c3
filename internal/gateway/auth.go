package gateway

import (
	"context"

	"snapgram/internal/events"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/storage"
)

// NewUser is the sign-up form.
type NewUser struct {
	Name     string
	Username string
	Email    string
	Password string
}

// CreateUserAccount registers an account and its profile document. The
// profile starts with an initials avatar. If the profile write fails the
// account is deleted again.
func (g *Gateway) CreateUserAccount(ctx context.Context, in NewUser) (*models.User, error) {
	return call(ctx, g, "create_user_account", map[string]interface{}{"username": in.Username}, func(ctx context.Context) (*models.User, error) {
		if err := required(map[string]string{"name": in.Name, "username": in.Username, "email": in.Email, "password": in.Password}); err != nil {
			return nil, err
		}

		account, err := g.p.Identity.CreateAccount(ctx, in.Email, in.Password, in.Name)
		if err != nil {
			return nil, err
		}

		user, err := g.SaveUserToDB(ctx, &models.User{
			AccountID: account.ID,
			Email:     account.Email,
			Name:      account.Name,
			Username:  in.Username,
			ImageURL:  storage.AvatarURL(g.p.PublicURL, account.Name),
		})
		if err != nil {
			if delErr := g.p.Identity.DeleteAccount(ctx, account.ID); delErr != nil {
				g.log.LogError(ctx, "create_user_account.compensate", models.CodeOf(delErr), delErr, map[string]interface{}{"account_id": account.ID})
			}
			return nil, err
		}
		return user, nil
	})
}

// SaveUserToDB writes a profile document.
func (g *Gateway) SaveUserToDB(ctx context.Context, user *models.User) (*models.User, error) {
	return call(ctx, g, "save_user_to_db", map[string]interface{}{"account_id": user.AccountID}, func(ctx context.Context) (*models.User, error) {
		if err := g.p.Users.Create(ctx, user); err != nil {
			return nil, err
		}
		g.publish(ctx, events.UserCreated, "users", user.ID, user.ID)
		return user, nil
	})
}

// SignInAccount opens a session for the credentials.
func (g *Gateway) SignInAccount(ctx context.Context, email, password string) (*models.Session, error) {
	return call(ctx, g, "sign_in_account", nil, func(ctx context.Context) (*models.Session, error) {
		if err := required(map[string]string{"email": email, "password": password}); err != nil {
			return nil, err
		}
		return g.p.Identity.CreateSession(ctx, email, password)
	})
}

// GetCurrentUser resolves a session token to the signed-in user's profile.
func (g *Gateway) GetCurrentUser(ctx context.Context, token string) (*models.User, error) {
	return call(ctx, g, "get_current_user", nil, func(ctx context.Context) (*models.User, error) {
		account, err := g.p.Identity.GetAccount(ctx, token)
		if err != nil {
			return nil, err
		}
		list, err := g.p.Users.List(ctx, repository.Equal("accountId", account.ID), repository.Limit(1))
		if err != nil {
			return nil, err
		}
		if len(list.Documents) == 0 {
			return nil, models.NewNotFoundError("User for account", account.ID)
		}
		return &list.Documents[0], nil
	})
}

// SignOutAccount ends the session behind token.
func (g *Gateway) SignOutAccount(ctx context.Context, token string) error {
	return exec(ctx, g, "sign_out_account", nil, func(ctx context.Context) error {
		return g.p.Identity.DeleteSession(ctx, token)
	})
}
