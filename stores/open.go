// Package stores picks a habitbuddy.Store backend from a connection string.
package stores

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"cloud.google.com/go/datastore"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/logger"

	hb "github.com/panyam/habitbuddy"
	"github.com/panyam/habitbuddy/stores/fs"
	"github.com/panyam/habitbuddy/stores/gae"
	gormstore "github.com/panyam/habitbuddy/stores/gorm"
	"github.com/panyam/habitbuddy/stores/mongo"
)

// Backend names a store implementation
type Backend string

const (
	BackendMongo     Backend = "mongo"
	BackendPostgres  Backend = "postgres"
	BackendSQLite    Backend = "sqlite"
	BackendDatastore Backend = "datastore"
	BackendFS        Backend = "fs"
)

// BackendFor returns the backend selected by the scheme of databaseURL
func BackendFor(databaseURL string) (Backend, error) {
	scheme, _, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return "", fmt.Errorf("database url %q has no scheme", databaseURL)
	}
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return BackendMongo, nil
	case "postgres", "postgresql":
		return BackendPostgres, nil
	case "sqlite":
		return BackendSQLite, nil
	case "datastore":
		return BackendDatastore, nil
	case "file":
		return BackendFS, nil
	}
	return "", fmt.Errorf("unsupported database scheme %q", scheme)
}

// Open connects to the store named by cfg.DatabaseURL.
//
//	mongodb://host/db          cfg.DatabaseName overrides db
//	postgres://user:pw@host/db
//	sqlite://path/to/file.db   or sqlite://:memory:
//	datastore://project-id     optional ?namespace=tenant
//	file://path/to/dir
func Open(ctx context.Context, cfg *hb.Config) (hb.Store, error) {
	backend, err := BackendFor(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	_, rest, _ := strings.Cut(cfg.DatabaseURL, "://")
	slog.Info("Opening store", "backend", backend)

	switch backend {
	case BackendMongo:
		return mongo.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	case BackendPostgres:
		return openGorm(postgres.Open(cfg.DatabaseURL))
	case BackendSQLite:
		return openGorm(sqlite.Open(rest))
	case BackendDatastore:
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid datastore url: %w", err)
		}
		client, err := datastore.NewClient(ctx, u.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		return gae.NewStore(client, u.Query().Get("namespace")), nil
	default:
		return fs.New(rest)
	}
}

func openGorm(dialector gormlib.Dialector) (hb.Store, error) {
	db, err := gormlib.Open(dialector, &gormlib.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return gormstore.NewStore(db), nil
}
