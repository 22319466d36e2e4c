package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	appRepos "github.com/yigit/applytrack/internal/app/repositories"
	"github.com/yigit/applytrack/internal/config"
	"github.com/yigit/applytrack/internal/db"
	pkgAuth "github.com/yigit/applytrack/internal/pkg/auth"
	"github.com/yigit/applytrack/internal/pkg/logger"
	"github.com/yigit/applytrack/internal/seed"
)

// Index describes one index created by Initialize.
type Index struct {
	Collection string
	Field      string
	Unique     bool
}

// Indexes lists the indexes every deployment needs.
var Indexes = []Index{
	{Collection: db.UsersCollection, Field: "email", Unique: true},
	{Collection: db.ApplicationsCollection, Field: "user_id"},
	{Collection: db.ApplicationsCollection, Field: "enrollment_status"},
	{Collection: db.FilesCollection, Field: "user_id"},
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Connector *db.Connector
	Repos     *appRepos.Repositories
	Hasher    pkgAuth.PasswordHasher
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
// out receives log output; nil means stdout.
func LoadConfigAndSetupLogger(configPath, envFile string, out io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath, envFile)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: cfg.PrettyLogs(),
		Output: out,
	})

	lgr.Debug().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the document store selected by cfg. Store operation
// metrics are registered on reg when it is not nil.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger, reg prometheus.Registerer) (*db.Connector, error) {
	var metrics *db.Metrics
	if reg != nil {
		var err error
		metrics, err = db.NewMetrics(reg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to register store metrics")
			return nil, err
		}
	}

	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Establishing document store connection...")
	conn, err := db.Connect(ctx, cfg, metrics, logger.Component(lgr, "db"))
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to document store")
		return nil, err
	}
	return conn, nil
}

// Initialize creates the indexes and, on an empty store, the default admin
// account. It is safe to run on every startup.
func Initialize(ctx context.Context, conn *db.Connector, hasher pkgAuth.PasswordHasher, admin seed.Admin, lgr zerolog.Logger) (bool, error) {
	for _, idx := range Indexes {
		if err := conn.Collection(idx.Collection).EnsureIndex(ctx, idx.Field, idx.Unique); err != nil {
			lgr.Error().Err(err).Str("collection", idx.Collection).Str("field", idx.Field).Msg("Failed to create index")
			return false, fmt.Errorf("creating index %s.%s: %w", idx.Collection, idx.Field, err)
		}
	}
	lgr.Info().Int("indexes", len(Indexes)).Msg("Indexes ensured")

	accounts := appRepos.NewAccountRepository(conn)
	return seed.EnsureDefaultAdmin(ctx, accounts, hasher, admin, logger.Component(lgr, "seed"))
}

// AdminFromConfig returns the seed admin configured in cfg.
func AdminFromConfig(cfg *config.Config) seed.Admin {
	return seed.Admin{
		Email:     cfg.Seed.AdminEmail,
		Password:  cfg.Seed.AdminPassword,
		FirstName: cfg.Seed.AdminFirstName,
		LastName:  cfg.Seed.AdminLastName,
	}
}

// BuildDependencies wires repositories and the password hasher on an open
// connector and runs Initialize.
func BuildDependencies(ctx context.Context, cfg *config.Config, conn *db.Connector, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    lgr,
		Connector: conn,
		Repos:     appRepos.NewRepositories(conn),
		Hasher:    pkgAuth.NewBcryptHasher(cfg.Security.BcryptCost),
	}

	if _, err := Initialize(ctx, conn, deps.Hasher, AdminFromConfig(cfg), lgr); err != nil {
		return nil, err
	}
	return deps, nil
}

// Close releases the store connection.
func (d *Dependencies) Close(ctx context.Context) error {
	return d.Connector.Close(ctx)
}
