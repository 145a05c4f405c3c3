// Package gateway wraps the identity provider, document store and blob store
// behind one function per platform operation. Every operation returns its
// result or a *models.AppError; failures are also logged here.
package gateway

import (
	"context"
	"errors"
	"time"

	"snapgram/internal/events"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
	"snapgram/internal/storage"
)

// Identity is the account and session provider.
type Identity interface {
	CreateAccount(ctx context.Context, email, password, name string) (*models.Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
	CreateSession(ctx context.Context, email, password string) (*models.Session, error)
	GetAccount(ctx context.Context, token string) (*models.Account, error)
	DeleteSession(ctx context.Context, token string) error
}

// Platform holds the external service handles the gateway talks to. It is
// built once at startup and passed in explicitly.
type Platform struct {
	Identity Identity
	Users    repository.UserRepository
	Posts    repository.PostRepository
	Saves    repository.SaveRepository
	Follows  repository.FollowRepository
	Files    storage.BlobStore
	Events   events.Publisher

	// PublicURL prefixes generated preview and avatar URLs.
	PublicURL string
	// MaxUploadBytes caps uploaded file size; 0 disables the check.
	MaxUploadBytes int64
	// PageSize is the infinite feed page size.
	PageSize int
}

const (
	DefaultPageSize  = 6
	RecentPostsLimit = 20
)

// Gateway executes platform operations.
type Gateway struct {
	p   Platform
	log *observability.OperationLogger
}

// New returns a Gateway over p.
func New(p Platform) *Gateway {
	if p.Events == nil {
		p.Events = events.NopPublisher{}
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	return &Gateway{p: p, log: observability.NewOperationLogger("gateway")}
}

// PageSize returns the infinite feed page size.
func (g *Gateway) PageSize() int {
	return g.p.PageSize
}

// call runs one gateway operation with tracing, metrics and failure logging.
// Errors that are not already AppErrors are wrapped as INTERNAL_ERROR.
func call[T any](ctx context.Context, g *Gateway, op string, fields map[string]interface{}, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, finish := observability.StartOperation(ctx, "gateway", op)
	track := observability.TrackGatewayCall(op)

	out, err := fn(ctx)
	if err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
		finish(err)
		code := models.CodeOf(err)
		track(code)
		g.log.LogError(ctx, op, code, err, fields)
		var zero T
		return zero, err
	}

	finish(nil)
	track("ok")
	g.log.LogSuccess(ctx, op, fields)
	return out, nil
}

// exec is call for operations without a result.
func exec(ctx context.Context, g *Gateway, op string, fields map[string]interface{}, fn func(ctx context.Context) error) error {
	_, err := call(ctx, g, op, fields, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (g *Gateway) publish(ctx context.Context, eventType, collection, documentID, actorID string) {
	err := g.p.Events.Publish(ctx, events.Event{
		Type:       eventType,
		Collection: collection,
		DocumentID: documentID,
		ActorID:    actorID,
		At:         time.Now().UTC(),
	})
	if err != nil {
		observability.EventPublishFailures.WithLabelValues(eventType).Inc()
		g.log.LogWarn(ctx, "publish", "failed to publish event", map[string]interface{}{
			"type":  eventType,
			"id":    documentID,
			"error": err.Error(),
		})
	}
}

func required(fields map[string]string) error {
	missing := map[string]string{}
	for name, v := range fields {
		if v == "" {
			missing[name] = name + " is required"
		}
	}
	if len(missing) > 0 {
		return models.NewFieldValidationError(missing)
	}
	return nil
}
