package models

import (
	"time"

	"github.com/akeren/waitlist-signup/pkg/constants"
)

// Roles accepted on a signup. An empty role is allowed.
const (
	RoleAspiring = "aspiring"
	RoleLicensed = "licensed"
	RoleProvider = "provider"
)

var AllowedRoles = []string{RoleAspiring, RoleLicensed, RoleProvider, ""}

// SignupHeader is the fixed column order of the signup store.
var SignupHeader = []string{
	"Timestamp",
	"Email",
	"Name",
	"Role",
	"Accreditation Number",
	"Comments",
	"IP Address",
}

// Signup is one accepted waitlist submission. It is append-only.
type Signup struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	Timestamp       time.Time `gorm:"column:submitted_at;not null;index" json:"timestamp"`
	Email           string    `gorm:"size:254;not null" json:"email"`
	EmailNormalized string    `gorm:"size:254;not null;uniqueIndex:idx_signups_email_normalized" json:"-"`
	Name            string    `gorm:"not null;default:''" json:"name"`
	Role            string    `gorm:"size:32;not null;default:''" json:"role"`
	Accreditation   string    `gorm:"not null;default:''" json:"accreditation"`
	Comments        string    `gorm:"not null;default:''" json:"comments"`
	IP              string    `gorm:"column:ip_address;size:64;not null;default:''" json:"ip"`
}

func (Signup) TableName() string {
	return "signups"
}

// Row renders the record in SignupHeader order.
func (s *Signup) Row() []string {
	return []string{
		s.Timestamp.UTC().Format(constants.ISO8601MillisFormat),
		s.Email,
		s.Name,
		s.Role,
		s.Accreditation,
		s.Comments,
		s.IP,
	}
}

// SignupFromRecord builds a Signup from a header-keyed row. Missing columns
// read as empty; an unparseable timestamp reads as the zero time.
func SignupFromRecord(rec map[string]string) *Signup {
	s := &Signup{
		Email:         rec["Email"],
		Name:          rec["Name"],
		Role:          rec["Role"],
		Accreditation: rec["Accreditation Number"],
		Comments:      rec["Comments"],
		IP:            rec["IP Address"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, rec["Timestamp"]); err == nil {
		s.Timestamp = ts.UTC()
	}
	return s
}
