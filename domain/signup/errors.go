package signup

import "errors"

var (
	// ErrDuplicateSignup means the normalized email is already in the store.
	ErrDuplicateSignup = errors.New("signup: email already on the waitlist")
	// ErrStoreEmpty means there is nothing to export yet.
	ErrStoreEmpty = errors.New("signup: store is absent or empty")
)

// Public messages. These are part of the HTTP contract.
const (
	MessageAccepted     = "Thank you for joining our waitlist! We'll be in touch soon."
	MessageDuplicate    = "This email is already on the waitlist!"
	MessageServerError  = "Server error. Please try again later."
	MessageInvalid      = "Invalid request payload"
	MessageUnauthorized = "Unauthorized"
	MessageNoSignups    = "No signups yet"
)
