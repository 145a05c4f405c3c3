// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snapgram/internal/cache"
	"snapgram/internal/models"
	"snapgram/internal/observability"

	"gorm.io/gorm"
)

// Fields is a partial update keyed by document attribute name.
type Fields map[string]any

// Store is the document-store contract for a single collection.
type Store[T any] interface {
	Create(ctx context.Context, doc *T) error
	Get(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, fields Fields) (*T, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, queries ...Query) (*models.DocumentList[T], error)
}

// collectionSpec describes how a collection maps onto its table.
type collectionSpec struct {
	// resource is the human name used in NOT_FOUND messages.
	resource string
	table    string
	// columns maps attribute names to column names. Only mapped attributes
	// can be filtered, sorted, searched or updated.
	columns  map[string]string
	readOnly map[string]bool
	preload  []string
	cacheKey func(id string) string
	cacheTTL time.Duration
}

type collection[T any] struct {
	db    *gorm.DB
	cache *cache.Cache
	spec  collectionSpec
	log   *observability.OperationLogger
}

func newCollection[T any](db *gorm.DB, c *cache.Cache, spec collectionSpec) *collection[T] {
	return &collection[T]{
		db:    db,
		cache: c,
		spec:  spec,
		log:   observability.NewOperationLogger("documents." + spec.table),
	}
}

func (r *collection[T]) Create(ctx context.Context, doc *T) (err error) {
	ctx, finish := observability.StartOperation(ctx, "documents", r.spec.table+".create")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return r.fail(ctx, "create", r.translate(err, ""), nil)
	}
	return nil
}

func (r *collection[T]) Get(ctx context.Context, id string) (_ *T, err error) {
	ctx, finish := observability.StartOperation(ctx, "documents", r.spec.table+".get")
	defer func() { finish(err) }()

	var doc T
	load := func() error {
		if err := r.withPreload(r.db.WithContext(ctx)).Where("id = ?", id).Take(&doc).Error; err != nil {
			return r.translate(err, id)
		}
		return nil
	}

	if r.spec.cacheKey != nil {
		err = r.cache.Aside(ctx, r.spec.cacheKey(id), &doc, r.spec.cacheTTL, load)
	} else {
		err = load()
	}
	if err != nil {
		return nil, r.fail(ctx, "get", err, map[string]interface{}{"id": id})
	}
	return &doc, nil
}

func (r *collection[T]) Update(ctx context.Context, id string, fields Fields) (_ *T, err error) {
	ctx, finish := observability.StartOperation(ctx, "documents", r.spec.table+".update")
	defer func() { finish(err) }()

	if len(fields) == 0 {
		return nil, models.NewValidationError("update requires at least one field")
	}
	updates := make(map[string]any, len(fields))
	for attr, v := range fields {
		col, ok := r.spec.columns[attr]
		if !ok || r.spec.readOnly[attr] {
			return nil, models.NewValidationError(fmt.Sprintf("attribute %q cannot be updated", attr))
		}
		updates[col] = v
	}

	var model T
	res := r.db.WithContext(ctx).Model(&model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, r.fail(ctx, "update", r.translate(res.Error, id), map[string]interface{}{"id": id})
	}
	if res.RowsAffected == 0 {
		return nil, r.fail(ctx, "update", models.NewNotFoundError(r.spec.resource, id), map[string]interface{}{"id": id})
	}
	r.invalidate(ctx, id)

	var doc T
	if err := r.withPreload(r.db.WithContext(ctx)).Where("id = ?", id).Take(&doc).Error; err != nil {
		return nil, r.fail(ctx, "update", r.translate(err, id), map[string]interface{}{"id": id})
	}
	return &doc, nil
}

func (r *collection[T]) Delete(ctx context.Context, id string) (err error) {
	ctx, finish := observability.StartOperation(ctx, "documents", r.spec.table+".delete")
	defer func() { finish(err) }()

	var model T
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model)
	if res.Error != nil {
		return r.fail(ctx, "delete", r.translate(res.Error, id), map[string]interface{}{"id": id})
	}
	if res.RowsAffected == 0 {
		return r.fail(ctx, "delete", models.NewNotFoundError(r.spec.resource, id), map[string]interface{}{"id": id})
	}
	r.invalidate(ctx, id)
	return nil
}

type orderKey struct {
	column string
	desc   bool
}

func (r *collection[T]) List(ctx context.Context, queries ...Query) (_ *models.DocumentList[T], err error) {
	ctx, finish := observability.StartOperation(ctx, "documents", r.spec.table+".list")
	defer func() { finish(err) }()

	filtered := r.db.WithContext(ctx).Model(new(T))
	limit := DefaultLimit
	var orders []orderKey
	cursor := ""

	for _, q := range queries {
		switch q.kind {
		case kindEqual:
			col, err := r.column(q.field)
			if err != nil {
				return nil, err
			}
			if len(q.values) == 0 {
				return nil, models.NewValidationError(fmt.Sprintf("equal(%s) requires a value", q.field))
			}
			if len(q.values) == 1 {
				filtered = filtered.Where(col+" = ?", q.values[0])
			} else {
				filtered = filtered.Where(col+" IN ?", q.values)
			}
		case kindSearch:
			col, err := r.column(q.field)
			if err != nil {
				return nil, err
			}
			filtered = filtered.Where("LOWER("+col+") LIKE ? ESCAPE '\\'", likePattern(q.term))
		case kindOrderDesc, kindOrderAsc:
			col, err := r.column(q.field)
			if err != nil {
				return nil, err
			}
			orders = append(orders, orderKey{column: col, desc: q.kind == kindOrderDesc})
		case kindLimit:
			if q.n < 1 || q.n > MaxLimit {
				return nil, models.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
			}
			limit = q.n
		case kindCursorAfter:
			cursor = q.cursor
		}
	}

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, r.fail(ctx, "list", r.translate(err, ""), nil)
	}

	// Ties on the sort keys are broken by id in the direction of the last key.
	tieDesc := len(orders) > 0 && orders[len(orders)-1].desc
	orders = append(orders, orderKey{column: "id", desc: tieDesc})

	page := r.withPreload(filtered.Session(&gorm.Session{}))
	if cursor != "" {
		where, args, err := r.cursorCondition(ctx, cursor, orders)
		if err != nil {
			return nil, r.fail(ctx, "list", err, map[string]interface{}{"cursor": cursor})
		}
		page = page.Where(where, args...)
	}
	for _, o := range orders {
		dir := " ASC"
		if o.desc {
			dir = " DESC"
		}
		page = page.Order(r.spec.table + "." + o.column + dir)
	}

	docs := make([]T, 0, limit)
	if err := page.Limit(limit).Find(&docs).Error; err != nil {
		return nil, r.fail(ctx, "list", r.translate(err, ""), nil)
	}

	r.log.LogSuccess(ctx, "list", map[string]interface{}{"total": total, "returned": len(docs)})
	return &models.DocumentList[T]{Total: total, Documents: docs}, nil
}

// cursorCondition builds the keyset predicate selecting rows strictly after
// the cursor document: (k1 > v1) OR (k1 = v1 AND k2 > v2) OR ...
func (r *collection[T]) cursorCondition(ctx context.Context, cursorID string, orders []orderKey) (string, []any, error) {
	cols := make([]string, len(orders))
	for i, o := range orders {
		cols[i] = o.column
	}

	row := map[string]any{}
	res := r.db.WithContext(ctx).Table(r.spec.table).Select(cols).Where("id = ?", cursorID).Take(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return "", nil, models.NewValidationError(fmt.Sprintf("cursor document %s not found", cursorID))
		}
		return "", nil, r.translate(res.Error, "")
	}

	var clauses []string
	var args []any
	for i, o := range orders {
		parts := make([]string, 0, i+1)
		for _, prev := range orders[:i] {
			parts = append(parts, r.spec.table+"."+prev.column+" = ?")
			args = append(args, row[prev.column])
		}
		op := " > ?"
		if o.desc {
			op = " < ?"
		}
		parts = append(parts, r.spec.table+"."+o.column+op)
		args = append(args, row[o.column])
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args, nil
}

func (r *collection[T]) column(attr string) (string, error) {
	col, ok := r.spec.columns[attr]
	if !ok {
		return "", models.NewValidationError(fmt.Sprintf("unknown attribute %q on %s", attr, r.spec.table))
	}
	return col, nil
}

func (r *collection[T]) withPreload(db *gorm.DB) *gorm.DB {
	for _, p := range r.spec.preload {
		db = db.Preload(p)
	}
	return db
}

func (r *collection[T]) invalidate(ctx context.Context, id string) {
	if r.spec.cacheKey != nil {
		r.cache.Invalidate(ctx, r.spec.cacheKey(id))
	}
}

// translate maps a gorm error onto an AppError.
func (r *collection[T]) translate(err error, id string) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(r.spec.resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewConflictError(r.spec.resource+" already exists", err)
	default:
		return models.NewUnavailableError("document store", err)
	}
}

func (r *collection[T]) fail(ctx context.Context, op string, err error, fields map[string]interface{}) error {
	code := models.CodeOf(err)
	if code == models.CodeNotFound {
		r.log.LogWarn(ctx, op, err.Error(), fields)
	} else {
		r.log.LogError(ctx, op, code, err, fields)
	}
	return err
}

// likePattern lowercases term and escapes LIKE wildcards.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}
