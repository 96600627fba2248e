package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// PGConfig is bound from the environment with the POSTGRES prefix.
type PGConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Enabled reports whether a database source is configured at all.
func (c PGConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

// serviceRecord is the user_services row backing one capability descriptor.
type serviceRecord struct {
	bun.BaseModel `bun:"table:user_services,alias:us"`

	ID       int64  `bun:"id,pk,autoincrement"`
	UserID   int64  `bun:"user_id,notnull"`
	Name     string `bun:"name,notnull"`
	Category string `bun:"category,notnull"`
}

// PGSource reads capability descriptors from the product Postgres database
// for deployments where the server API is not in the path.
type PGSource struct {
	db      *bun.DB
	timeout time.Duration
}

func NewPGSource(cfg PGConfig) (*PGSource, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PGSource{db: db, timeout: timeout}, nil
}

func (s *PGSource) UserCapabilities(ctx context.Context, userID int64) ([]contractx.CapabilityDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var records []serviceRecord
	if err := s.db.NewSelect().
		Model(&records).
		Where("us.user_id = ?", userID).
		Order("us.id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}

	descriptors := make([]contractx.CapabilityDescriptor, 0, len(records))
	for _, rec := range records {
		descriptors = append(descriptors, contractx.CapabilityDescriptor{
			ID:       rec.ID,
			Name:     rec.Name,
			Category: rec.Category,
		})
	}
	return descriptors, nil
}

// Close releases the underlying connection pool.
func (s *PGSource) Close() error {
	return s.db.Close()
}
