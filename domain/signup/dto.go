package signup

import (
	"time"

	"github.com/akeren/waitlist-signup/internal/models"
	apperrors "github.com/akeren/waitlist-signup/pkg/errors"
)

// SignupRequest is bound from JSON or urlencoded form bodies. Role is a
// pointer so a missing key can be told apart from an explicit "".
type SignupRequest struct {
	Email         string  `json:"email" form:"email" binding:"required,email,max=254"`
	Name          string  `json:"name" form:"name" binding:"omitempty,max=200"`
	Role          *string `json:"role" form:"role" binding:"required,signup_role"`
	Accreditation string  `json:"accreditation" form:"accreditation" binding:"omitempty,max=100"`
	Comments      string  `json:"comments" form:"comments" binding:"omitempty,max=2000"`
}

type SubmitResponse struct {
	Success bool                                `json:"success"`
	Message string                              `json:"message,omitempty"`
	Errors  []apperrors.ValidationErrorResponse `json:"errors,omitempty"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ExportErrorResponse struct {
	Error string `json:"error"`
}

// ========================================
// Mappers
// ========================================

// ToSignupModel sanitizes the free-text fields and normalizes the email.
func ToSignupModel(req *SignupRequest, at time.Time, clientIP string) *models.Signup {
	if req == nil {
		return nil
	}

	role := ""
	if req.Role != nil {
		role = *req.Role
	}

	email := NormalizeEmail(req.Email)

	return &models.Signup{
		Timestamp:       at.UTC(),
		Email:           email,
		EmailNormalized: email,
		Name:            Sanitize(req.Name),
		Role:            role,
		Accreditation:   Sanitize(req.Accreditation),
		Comments:        Sanitize(req.Comments),
		IP:              clientIP,
	}
}
