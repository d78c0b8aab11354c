package signup

import (
	"context"
	"io"

	"github.com/akeren/waitlist-signup/internal/models"
	"github.com/akeren/waitlist-signup/pkg/csvstore"
)

type csvSignupRepository struct {
	table *csvstore.Table
}

func NewCSVSignupRepository(table *csvstore.Table) SignupRepository {
	return &csvSignupRepository{table: table}
}

func (r *csvSignupRepository) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.table.Init()
}

func (r *csvSignupRepository) Append(ctx context.Context, signup *models.Signup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.table.Append(signup.Row())
}

func (r *csvSignupRepository) ListAll(ctx context.Context) ([]*models.Signup, error) {
	header := r.table.Header()
	var signups []*models.Signup

	err := r.table.Scan(func(row []string) bool {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		s := models.SignupFromRecord(rec)
		s.EmailNormalized = NormalizeEmail(s.Email)
		signups = append(signups, s)
		return ctx.Err() == nil
	})
	if err != nil {
		return nil, err
	}
	return signups, ctx.Err()
}

// HasEmail is a linear scan; the file has no index.
func (r *csvSignupRepository) HasEmail(ctx context.Context, normalizedEmail string) (bool, error) {
	emailCol := indexOf(r.table.Header(), "Email")
	found := false

	err := r.table.Scan(func(row []string) bool {
		if NormalizeEmail(row[emailCol]) == normalizedEmail {
			found = true
			return false
		}
		return ctx.Err() == nil
	})
	if err != nil {
		return false, err
	}
	return found, ctx.Err()
}

func (r *csvSignupRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.table.Count()
}

func (r *csvSignupRepository) Exists(context.Context) (bool, error) {
	return r.table.Exists()
}

// Export copies the file byte for byte.
func (r *csvSignupRepository) Export(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.table.CopyTo(w)
	return err
}

func indexOf(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return 0
}
