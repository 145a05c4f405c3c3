package repository

import "fmt"

type queryKind int

const (
	kindEqual queryKind = iota
	kindOrderDesc
	kindOrderAsc
	kindLimit
	kindCursorAfter
	kindSearch
)

const (
	// DefaultLimit applies when a list query carries no Limit clause.
	DefaultLimit = 25
	// MaxLimit is the largest page a single list query may request.
	MaxLimit = 100
)

// Query is one clause of a List call. Field names are document attribute
// names ("creator", "$createdAt"), not column names.
type Query struct {
	kind   queryKind
	field  string
	values []any
	n      int
	cursor string
	term   string
}

// Equal matches documents whose field equals any of values.
func Equal(field string, values ...any) Query {
	return Query{kind: kindEqual, field: field, values: values}
}

// OrderDesc sorts by field, newest or largest first.
func OrderDesc(field string) Query {
	return Query{kind: kindOrderDesc, field: field}
}

// OrderAsc sorts by field ascending.
func OrderAsc(field string) Query {
	return Query{kind: kindOrderAsc, field: field}
}

// Limit caps the number of returned documents.
func Limit(n int) Query {
	return Query{kind: kindLimit, n: n}
}

// CursorAfter starts the page after the document with the given id in the
// query's sort order.
func CursorAfter(id string) Query {
	return Query{kind: kindCursorAfter, cursor: id}
}

// Search matches documents whose field contains term, case-insensitively.
func Search(field, term string) Query {
	return Query{kind: kindSearch, field: field, term: term}
}

func (q Query) String() string {
	switch q.kind {
	case kindEqual:
		return fmt.Sprintf("equal(%s,%v)", q.field, q.values)
	case kindOrderDesc:
		return "orderDesc(" + q.field + ")"
	case kindOrderAsc:
		return "orderAsc(" + q.field + ")"
	case kindLimit:
		return fmt.Sprintf("limit(%d)", q.n)
	case kindCursorAfter:
		return "cursorAfter(" + q.cursor + ")"
	case kindSearch:
		return "search(" + q.field + "," + q.term + ")"
	default:
		return "unknown"
	}
}
