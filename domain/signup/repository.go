package signup

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/buntdb"
	"gorm.io/gorm"

	"github.com/akeren/waitlist-signup/internal/models"
	"github.com/akeren/waitlist-signup/pkg/csvstore"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=signup

// SignupRepository is the append-only signup store. No backend offers update
// or delete.
type SignupRepository interface {
	// Init creates an empty store with its header when none exists.
	Init(ctx context.Context) error
	// Append persists one record. A duplicate normalized email returns ErrDuplicateSignup
	// on backends that enforce uniqueness themselves.
	Append(ctx context.Context, signup *models.Signup) error
	// ListAll returns every record in acceptance order.
	ListAll(ctx context.Context) ([]*models.Signup, error)
	// HasEmail reports whether a normalized email is already stored.
	HasEmail(ctx context.Context, normalizedEmail string) (bool, error)
	// Count returns the number of data records, never negative.
	Count(ctx context.Context) (int, error)
	// Exists reports whether the store is present at all.
	Exists(ctx context.Context) (bool, error)
	// Export writes the store as CSV, header first.
	Export(ctx context.Context, w io.Writer) error
}

const (
	DriverCSV      = "csv"
	DriverBuntDB   = "buntdb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// RepositoryConfig carries the handle for the selected driver.
type RepositoryConfig struct {
	Driver string
	Table  *csvstore.Table
	Bunt   *buntdb.DB
	DB     *gorm.DB
}

func NewSignupRepository(cfg RepositoryConfig) (SignupRepository, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverCSV:
		if cfg.Table == nil {
			return nil, fmt.Errorf("signup: csv driver needs a table")
		}
		return NewCSVSignupRepository(cfg.Table), nil
	case DriverBuntDB:
		if cfg.Bunt == nil {
			return nil, fmt.Errorf("signup: buntdb driver needs a database")
		}
		return NewBuntSignupRepository(cfg.Bunt), nil
	case DriverSQLite, DriverPostgres:
		if cfg.DB == nil {
			return nil, fmt.Errorf("signup: %s driver needs a database", cfg.Driver)
		}
		return NewGormSignupRepository(cfg.DB), nil
	default:
		return nil, fmt.Errorf("signup: unknown store driver %q", cfg.Driver)
	}
}

func rowsOf(signups []*models.Signup) [][]string {
	rows := make([][]string, 0, len(signups))
	for _, s := range signups {
		rows = append(rows, s.Row())
	}
	return rows
}
