package db

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

// Operation outcomes used as the "outcome" label.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// Metrics holds the Prometheus collectors for store operations.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the store collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "applytrack",
				Subsystem: "db",
				Name:      "operations_total",
				Help:      "Total number of document store operations.",
			},
			[]string{"collection", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "applytrack",
				Subsystem: "db",
				Name:      "operation_duration_seconds",
				Help:      "Duration of document store operations.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"collection", "operation"},
		),
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Instrument wraps c so that every call is counted and timed.
func (m *Metrics) Instrument(c Collection) Collection {
	if m == nil {
		return c
	}
	return &instrumentedCollection{next: c, metrics: m}
}

func (m *Metrics) observe(collection, op string, start time.Time, err error) {
	m.duration.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
	m.operations.WithLabelValues(collection, op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case apperrors.IsNotFound(err):
		return outcomeNotFound
	case errors.Is(err, apperrors.ErrConstraintViolation):
		return outcomeConflict
	default:
		return outcomeError
	}
}

type instrumentedCollection struct {
	next    Collection
	metrics *Metrics
}

func (c *instrumentedCollection) Name() string { return c.next.Name() }

func (c *instrumentedCollection) InsertOne(ctx context.Context, doc Document) (_ string, err error) {
	defer c.observe("insert_one", time.Now(), &err)
	return c.next.InsertOne(ctx, doc)
}

func (c *instrumentedCollection) UpdateByID(ctx context.Context, id string, doc Document) (err error) {
	defer c.observe("update_by_id", time.Now(), &err)
	return c.next.UpdateByID(ctx, id, doc)
}

func (c *instrumentedCollection) FindByID(ctx context.Context, id string) (_ Document, err error) {
	defer c.observe("find_by_id", time.Now(), &err)
	return c.next.FindByID(ctx, id)
}

func (c *instrumentedCollection) FindOne(ctx context.Context, filter Filter) (_ Document, err error) {
	defer c.observe("find_one", time.Now(), &err)
	return c.next.FindOne(ctx, filter)
}

func (c *instrumentedCollection) Find(ctx context.Context, filter Filter) (_ []Document, err error) {
	defer c.observe("find", time.Now(), &err)
	return c.next.Find(ctx, filter)
}

func (c *instrumentedCollection) DeleteByID(ctx context.Context, id string) (_ int64, err error) {
	defer c.observe("delete_by_id", time.Now(), &err)
	return c.next.DeleteByID(ctx, id)
}

func (c *instrumentedCollection) DeleteMany(ctx context.Context, filter Filter) (_ int64, err error) {
	defer c.observe("delete_many", time.Now(), &err)
	return c.next.DeleteMany(ctx, filter)
}

func (c *instrumentedCollection) Count(ctx context.Context, filter Filter) (_ int64, err error) {
	defer c.observe("count", time.Now(), &err)
	return c.next.Count(ctx, filter)
}

func (c *instrumentedCollection) GroupCount(ctx context.Context, field string, filter Filter) (_ []GroupCount, err error) {
	defer c.observe("group_count", time.Now(), &err)
	return c.next.GroupCount(ctx, field, filter)
}

func (c *instrumentedCollection) EnsureIndex(ctx context.Context, field string, unique bool) (err error) {
	defer c.observe("ensure_index", time.Now(), &err)
	return c.next.EnsureIndex(ctx, field, unique)
}

// observe reads *errp when the deferred call runs, after the result is set.
func (c *instrumentedCollection) observe(op string, start time.Time, errp *error) {
	c.metrics.observe(c.next.Name(), op, start, *errp)
}
