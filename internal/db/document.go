package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
	"github.com/yigit/applytrack/internal/pkg/dberrors"
)

// IDField is the document key carrying the store-assigned identifier.
const IDField = "_id"

// Document is one loosely-typed stored record. Backends return the
// identifier under IDField as a string.
type Document map[string]any

// ID returns the identifier carried by the document, if any.
func (d Document) ID() string {
	if id, ok := d[IDField].(string); ok {
		return id
	}
	return ""
}

// Clone returns a deep copy of d. Nested maps and slices are copied, other
// values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// withoutID returns a copy of d with IDField removed.
func (d Document) withoutID() Document {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	delete(out, IDField)
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Filter selects documents. All conditions must hold. The zero Filter
// matches every document.
type Filter struct {
	// Eq holds field == value conditions. A nil value matches documents
	// where the field is null or absent.
	Eq map[string]any
	// NonEmpty lists fields that must be present, not null and not "".
	NonEmpty []string
}

// All matches every document.
var All = Filter{}

// Where starts a filter with a single equality condition.
func Where(field string, value any) Filter {
	return Filter{}.And(field, value)
}

// And returns a copy of f with an added equality condition.
func (f Filter) And(field string, value any) Filter {
	eq := make(map[string]any, len(f.Eq)+1)
	for k, v := range f.Eq {
		eq[k] = v
	}
	eq[field] = value
	return Filter{Eq: eq, NonEmpty: append([]string(nil), f.NonEmpty...)}
}

// AndNonEmpty returns a copy of f that also requires field to be non-empty.
func (f Filter) AndNonEmpty(field string) Filter {
	return Filter{Eq: f.Eq, NonEmpty: append(append([]string(nil), f.NonEmpty...), field)}
}

// IsZero reports whether f has no conditions.
func (f Filter) IsZero() bool {
	return len(f.Eq) == 0 && len(f.NonEmpty) == 0
}

// eqFields returns the equality field names in a stable order.
func (f Filter) eqFields() []string {
	keys := make([]string, 0, len(f.Eq))
	for k := range f.Eq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GroupCount is one bucket of a grouping query. Key is nil when the grouped
// field was absent or null.
type GroupCount struct {
	Key   *string
	Count int64
}

// Collection is a named set of documents in the store.
type Collection interface {
	Name() string
	// InsertOne stores doc (ignoring any IDField) and returns the assigned id.
	InsertOne(ctx context.Context, doc Document) (string, error)
	// UpdateByID overwrites the fields present in doc on the document with
	// the given id; other fields are left untouched. A missing document is
	// not an error.
	UpdateByID(ctx context.Context, id string, doc Document) error
	FindByID(ctx context.Context, id string) (Document, error)
	FindOne(ctx context.Context, filter Filter) (Document, error)
	Find(ctx context.Context, filter Filter) ([]Document, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	GroupCount(ctx context.Context, field string, filter Filter) ([]GroupCount, error)
	EnsureIndex(ctx context.Context, field string, unique bool) error
}

// Backend is a document store implementation.
type Backend interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// wrapError classifies a driver error for the given collection operation.
func wrapError(collection, op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case dberrors.IsDuplicateKeyError(err):
		return apperrors.NewConstraintError(collection, err)
	case dberrors.IsConnectivityError(err):
		return apperrors.NewUnavailableError(collection+" "+op, err)
	default:
		return fmt.Errorf("%s %s: %w", collection, op, err)
	}
}

// stringKey renders a grouped value as a bucket key.
func stringKey(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case time.Time:
		s := t.UTC().Format(time.RFC3339)
		return &s
	default:
		s := fmt.Sprint(t)
		return &s
	}
}
