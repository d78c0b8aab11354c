package signup

import (
	"context"
	"errors"
	"io"

	"gorm.io/gorm"

	"github.com/akeren/waitlist-signup/internal/models"
	"github.com/akeren/waitlist-signup/pkg/csvstore"
	apperrors "github.com/akeren/waitlist-signup/pkg/errors"
)

// gormSignupRepository stores signups in the signups table. The unique index
// on email_normalized closes the duplicate race across instances.
type gormSignupRepository struct {
	db *gorm.DB
}

func NewGormSignupRepository(db *gorm.DB) SignupRepository {
	return &gormSignupRepository{db: db}
}

func (r *gormSignupRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(models.ModelRegistry...)
}

func (r *gormSignupRepository) Append(ctx context.Context, signup *models.Signup) error {
	if signup.EmailNormalized == "" {
		signup.EmailNormalized = NormalizeEmail(signup.Email)
	}
	if err := r.db.WithContext(ctx).Create(signup).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSignup
		}
		return err
	}
	return nil
}

func (r *gormSignupRepository) ListAll(ctx context.Context) ([]*models.Signup, error) {
	var signups []*models.Signup
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&signups).Error; err != nil {
		return nil, err
	}
	return signups, nil
}

func (r *gormSignupRepository) HasEmail(ctx context.Context, normalizedEmail string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Signup{}).
		Where("email_normalized = ?", normalizedEmail).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *gormSignupRepository) Count(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Signup{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *gormSignupRepository) Exists(ctx context.Context) (bool, error) {
	return r.db.WithContext(ctx).Migrator().HasTable(&models.Signup{}), nil
}

func (r *gormSignupRepository) Export(ctx context.Context, w io.Writer) error {
	signups, err := r.ListAll(ctx)
	if err != nil {
		return err
	}
	return csvstore.WriteAll(w, models.SignupHeader, rowsOf(signups))
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
