package signup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/buntdb"

	"github.com/akeren/waitlist-signup/internal/models"
	"github.com/akeren/waitlist-signup/pkg/csvstore"
)

const (
	buntSeqKey       = "meta:seq"
	buntSignupPrefix = "signup:"
	buntEmailPrefix  = "email:"
)

// buntSignupRepository keeps each record under signup:<zero-padded seq> so
// key order is acceptance order, plus an email:<normalized> index entry.
type buntSignupRepository struct {
	db *buntdb.DB
}

func NewBuntSignupRepository(db *buntdb.DB) SignupRepository {
	return &buntSignupRepository{db: db}
}

type buntRecord struct {
	Timestamp     string `json:"timestamp"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Accreditation string `json:"accreditation"`
	Comments      string `json:"comments"`
	IP            string `json:"ip"`
}

func signupKey(seq uint64) string {
	return fmt.Sprintf("%s%020d", buntSignupPrefix, seq)
}

func (r *buntSignupRepository) Init(context.Context) error {
	return r.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(buntSeqKey); errors.Is(err, buntdb.ErrNotFound) {
			_, _, err = tx.Set(buntSeqKey, "0", nil)
			return err
		} else if err != nil {
			return err
		}
		return nil
	})
}

func (r *buntSignupRepository) Append(ctx context.Context, signup *models.Signup) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := signup.Row()
	payload, err := json.Marshal(buntRecord{
		Timestamp:     row[0],
		Email:         signup.Email,
		Name:          signup.Name,
		Role:          signup.Role,
		Accreditation: signup.Accreditation,
		Comments:      signup.Comments,
		IP:            signup.IP,
	})
	if err != nil {
		return err
	}

	normalized := signup.EmailNormalized
	if normalized == "" {
		normalized = NormalizeEmail(signup.Email)
	}

	return r.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(buntEmailPrefix + normalized); err == nil {
			return ErrDuplicateSignup
		} else if !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}

		seq, err := nextSeq(tx)
		if err != nil {
			return err
		}

		key := signupKey(seq)
		if _, _, err := tx.Set(key, string(payload), nil); err != nil {
			return err
		}
		_, _, err = tx.Set(buntEmailPrefix+normalized, key, nil)
		return err
	})
}

func nextSeq(tx *buntdb.Tx) (uint64, error) {
	var seq uint64
	raw, err := tx.Get(buntSeqKey)
	switch {
	case errors.Is(err, buntdb.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		seq, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("signup: corrupt sequence %q: %w", raw, err)
		}
	}
	seq++
	_, _, err = tx.Set(buntSeqKey, strconv.FormatUint(seq, 10), nil)
	return seq, err
}

func (r *buntSignupRepository) ListAll(ctx context.Context) ([]*models.Signup, error) {
	var signups []*models.Signup
	var decodeErr error

	err := r.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(buntSignupPrefix+"*", func(_, value string) bool {
			var rec buntRecord
			if err := json.Unmarshal([]byte(value), &rec); err != nil {
				decodeErr = err
				return false
			}
			s := models.SignupFromRecord(map[string]string{
				"Timestamp":            rec.Timestamp,
				"Email":                rec.Email,
				"Name":                 rec.Name,
				"Role":                 rec.Role,
				"Accreditation Number": rec.Accreditation,
				"Comments":             rec.Comments,
				"IP Address":           rec.IP,
			})
			s.EmailNormalized = NormalizeEmail(s.Email)
			signups = append(signups, s)
			return ctx.Err() == nil
		})
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("signup: decode record: %w", decodeErr)
	}
	return signups, ctx.Err()
}

func (r *buntSignupRepository) HasEmail(_ context.Context, normalizedEmail string) (bool, error) {
	found := false
	err := r.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(buntEmailPrefix + normalizedEmail)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (r *buntSignupRepository) Count(context.Context) (int, error) {
	count := 0
	err := r.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(buntSignupPrefix+"*", func(_, _ string) bool {
			count++
			return true
		})
	})
	return count, err
}

// Exists is true once the database is open; buntdb creates its file on open.
func (r *buntSignupRepository) Exists(context.Context) (bool, error) {
	return r.db != nil, nil
}

func (r *buntSignupRepository) Export(ctx context.Context, w io.Writer) error {
	signups, err := r.ListAll(ctx)
	if err != nil {
		return err
	}
	return csvstore.WriteAll(w, models.SignupHeader, rowsOf(signups))
}
