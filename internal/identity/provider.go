// Package identity is the account and session provider: bcrypt credentials,
// database-backed sessions and signed JWT session tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snapgram/internal/cache"
	"snapgram/internal/models"
	"snapgram/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	tokenIssuer   = "snapgram-api"
	tokenAudience = "snapgram-client"

	minPasswordLength = 8
)

// Options configures a Provider.
type Options struct {
	Secret     string
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Provider manages accounts and login sessions.
type Provider struct {
	db     *gorm.DB
	cache  *cache.Cache
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	log    *observability.OperationLogger
}

// NewProvider returns a Provider storing accounts in db. The cache records
// revoked sessions; it may wrap a nil client.
func NewProvider(db *gorm.DB, c *cache.Cache, opts Options) *Provider {
	p := &Provider{
		db:     db,
		cache:  c,
		secret: []byte(opts.Secret),
		ttl:    opts.SessionTTL,
		cost:   opts.BcryptCost,
		now:    opts.Now,
		log:    observability.NewOperationLogger("identity"),
	}
	if p.ttl <= 0 {
		p.ttl = 7 * 24 * time.Hour
	}
	if p.cost == 0 {
		p.cost = bcrypt.DefaultCost
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount registers credentials for a new account.
func (p *Provider) CreateAccount(ctx context.Context, email, password, name string) (*models.Account, error) {
	email = normalizeEmail(email)
	if email == "" || name == "" {
		return nil, models.NewValidationError("email and name are required")
	}
	if len(password) < minPasswordLength {
		return nil, models.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	account := &models.Account{Email: email, Name: name, PasswordHash: string(hash)}
	if err := p.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError("An account with this email already exists", err)
		}
		p.log.LogError(ctx, "create_account", models.CodeUnavailable, err, nil)
		return nil, models.NewUnavailableError("identity", err)
	}
	return account, nil
}

// DeleteAccount removes an account and all of its sessions.
func (p *Provider) DeleteAccount(ctx context.Context, accountID string) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", accountID).Delete(&models.Account{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Account", accountID)
		}
		return nil
	})
	var appErr *models.AppError
	if err != nil && !errors.As(err, &appErr) {
		return models.NewUnavailableError("identity", err)
	}
	return err
}

// CreateSession checks credentials and issues a new session token.
func (p *Provider) CreateSession(ctx context.Context, email, password string) (*models.Session, error) {
	var account models.Account
	err := p.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err != nil {
		return nil, models.NewUnavailableError("identity", err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	now := p.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		ExpiresAt: now.Add(p.ttl),
		CreatedAt: now,
	}
	if err := p.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, models.NewUnavailableError("identity", err)
	}

	token, err := p.signToken(session, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	session.Token = token
	return session, nil
}

// GetAccount resolves a session token to its account.
func (p *Provider) GetAccount(ctx context.Context, token string) (*models.Account, error) {
	claims, err := p.parseToken(token)
	if err != nil {
		return nil, err
	}
	session, err := p.liveSession(ctx, claims.ID)
	if err != nil {
		return nil, err
	}

	var account models.Account
	err = p.db.WithContext(ctx).Where("id = ?", session.AccountID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewUnauthorizedError("Account no longer exists")
	}
	if err != nil {
		return nil, models.NewUnavailableError("identity", err)
	}
	return &account, nil
}

// DeleteSession ends the session behind token. The token is rejected from then on.
func (p *Provider) DeleteSession(ctx context.Context, token string) error {
	claims, err := p.parseToken(token)
	if err != nil {
		return err
	}

	res := p.db.WithContext(ctx).Where("id = ?", claims.ID).Delete(&models.Session{})
	if res.Error != nil {
		return models.NewUnavailableError("identity", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewUnauthorizedError("Session not found")
	}

	if claims.ExpiresAt != nil {
		if ttl := claims.ExpiresAt.Sub(p.now()); ttl > 0 {
			if err := p.cache.SetJSON(ctx, cache.RevokedSessionKey(claims.ID), true, ttl); err != nil {
				p.log.LogWarn(ctx, "delete_session", "failed to record revoked session", map[string]interface{}{"error": err.Error()})
			}
		}
	}
	return nil
}

func (p *Provider) liveSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var revoked bool
	if found, err := p.cache.GetJSON(ctx, cache.RevokedSessionKey(sessionID), &revoked); err == nil && found && revoked {
		return nil, models.NewUnauthorizedError("Session has been revoked")
	}

	var session models.Session
	err := p.db.WithContext(ctx).Where("id = ?", sessionID).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewUnauthorizedError("Session not found")
	}
	if err != nil {
		return nil, models.NewUnavailableError("identity", err)
	}
	if !session.ExpiresAt.After(p.now()) {
		return nil, models.NewUnauthorizedError("Session expired")
	}
	return &session, nil
}

func (p *Provider) signToken(session *models.Session, now time.Time) (string, error) {
	if len(p.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   session.AccountID,
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        session.ID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *Provider) parseToken(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, models.NewUnauthorizedError("Session token required")
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, models.NewUnauthorizedError("Invalid token structure")
	}
	return claims, nil
}
