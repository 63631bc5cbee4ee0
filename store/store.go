// Package store persists directory records. One Backend owns the
// connection; Records binds it to a single variant (personnel or users).
package store

import (
	"context"
	"fmt"
	"time"

	"hermes-backend/models"
)

// Store is the record store of one variant.
//
// Lookups return (nil, nil) when nothing matches. Writes return errors from
// the models taxonomy: ErrNotFound, ErrConflict (unique constraint),
// ErrValidation, ErrUnsupported and ErrTransient.
type Store interface {
	Variant() models.Variant

	List(ctx context.Context) ([]models.Record, error)
	GetByID(ctx context.Context, id int64) (*models.Record, error)
	GetByNaturalKey(ctx context.Context, key string) (*models.Record, error)
	GetByChatIdentity(ctx context.Context, handle string) (*models.Record, error)
	SearchByName(ctx context.Context, fragment string) ([]models.Record, error)
	ListByStatus(ctx context.Context, status string) ([]models.Record, error)
	// FindByMetadata lists records whose additional_data[key] equals value.
	FindByMetadata(ctx context.Context, key string, value any) ([]models.Record, error)

	Create(ctx context.Context, in models.Input) (*models.Record, error)
	Replace(ctx context.Context, id int64, in models.Input) (*models.Record, error)
	Patch(ctx context.Context, id int64, p *models.Patch) (*models.Record, error)
	PatchMetadataKey(ctx context.Context, id int64, key string, value any) error
	Delete(ctx context.Context, id int64) error
}

// Backend is an open connection to one persistence engine.
type Backend interface {
	Records(v models.Variant) Store
	Migrate(ctx context.Context, variants ...models.Variant) error
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver string // postgres, sqlite or mongo

	PostgresDSN string
	SQLitePath  string

	MongoURI      string
	MongoDatabase string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	switch opts.Driver {
	case DriverPostgres, "":
		return OpenPostgres(ctx, opts)
	case DriverSQLite:
		return OpenSQLite(ctx, opts)
	case DriverMongo:
		return OpenMongo(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}

// nullable maps empty strings to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func statusOrDefault(s string) string {
	if s == "" {
		return models.DefaultStatus
	}
	return s
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// validateMetadataKey rejects keys that cannot be addressed as a single
// path segment by every backend.
func validateMetadataKey(key string) error {
	if key == "" {
		return models.Invalid("metadata key must not be empty")
	}
	if key[0] == '$' {
		return models.Invalid("metadata key %q must not start with '$'", key)
	}
	for _, r := range key {
		if r == '.' || r == '"' {
			return models.Invalid("metadata key %q must not contain %q", key, r)
		}
	}
	return nil
}
