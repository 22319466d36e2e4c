package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yigit/applytrack/internal/config"
)

// Logical collection names.
const (
	UsersCollection        = "users"
	ApplicationsCollection = "applications"
	FilesCollection        = "files"
)

// Collections lists every collection the application uses.
var Collections = []string{UsersCollection, ApplicationsCollection, FilesCollection}

// Connector is the process-wide handle to the document store. It is created
// once at startup, passed to the repositories and closed at exit. It adds
// no locking around store calls; concurrency guarantees are the driver's.
type Connector struct {
	backend Backend
	metrics *Metrics
	lgr     zerolog.Logger

	mu          sync.Mutex
	collections map[string]Collection
}

// NewConnector wraps an opened backend. metrics may be nil.
func NewConnector(backend Backend, metrics *Metrics, lgr zerolog.Logger) *Connector {
	return &Connector{
		backend:     backend,
		metrics:     metrics,
		lgr:         lgr,
		collections: make(map[string]Collection),
	}
}

// Connect opens the backend selected by cfg.Database.Driver and pings it,
// failing fast when the store is unreachable.
func Connect(ctx context.Context, cfg *config.Config, metrics *Metrics, lgr zerolog.Logger) (*Connector, error) {
	timeout := cfg.ConnectTimeoutDuration()

	var (
		backend Backend
		err     error
	)
	switch cfg.Database.Driver {
	case config.DriverMongo:
		backend, err = OpenMongo(ctx, MongoOptions{
			URI:            cfg.Database.URI,
			Database:       cfg.Database.Name,
			ConnectTimeout: timeout,
			MaxPoolSize:    cfg.Database.MaxPoolSize,
		})
	case config.DriverPostgres:
		backend, err = OpenPostgres(ctx, PostgresOptions{
			URI:            cfg.Database.URI,
			ConnectTimeout: timeout,
			MaxConns:       cfg.Database.MaxPoolSize,
			Collections:    Collections,
		})
	case config.DriverMemory:
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}

	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Document store connection established")
	return NewConnector(backend, metrics, lgr), nil
}

// Collection returns the named collection, resolving it on first access.
func (c *Connector) Collection(name string) Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[name]
	if !ok {
		coll = c.metrics.Instrument(c.backend.Collection(name))
		c.collections[name] = coll
	}
	return coll
}

// Users returns the account collection.
func (c *Connector) Users() Collection { return c.Collection(UsersCollection) }

// Applications returns the application collection.
func (c *Connector) Applications() Collection { return c.Collection(ApplicationsCollection) }

// Files returns the uploaded-file metadata collection.
func (c *Connector) Files() Collection { return c.Collection(FilesCollection) }

// Ping checks that the store is reachable.
func (c *Connector) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Close releases the underlying driver resources.
func (c *Connector) Close(ctx context.Context) error {
	if err := c.backend.Close(ctx); err != nil {
		c.lgr.Error().Err(err).Msg("Failed to close document store connection")
		return err
	}
	c.lgr.Info().Msg("Document store connection closed")
	return nil
}
