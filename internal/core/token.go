package core

import "time"

// TokenPurpose separates the independent token slots a user can hold.
type TokenPurpose string

const (
	PurposeOTP           TokenPurpose = "otp"
	PurposeEmailLink     TokenPurpose = "email_link"
	PurposePasswordReset TokenPurpose = "password_reset"
)

const (
	OTPTTL           = time.Hour
	EmailLinkTTL     = 6 * time.Hour
	PasswordResetTTL = time.Hour
)

// TTL is how long a freshly issued token of this purpose stays redeemable.
func (p TokenPurpose) TTL() time.Duration {
	switch p {
	case PurposeEmailLink:
		return EmailLinkTTL
	case PurposePasswordReset:
		return PasswordResetTTL
	default:
		return OTPTTL
	}
}

func (p TokenPurpose) Valid() bool {
	switch p {
	case PurposeOTP, PurposeEmailLink, PurposePasswordReset:
		return true
	}
	return false
}

// TokenRecord is the single active token slot for (UserID, Purpose).
// Only the bcrypt hash of the token is stored.
type TokenRecord struct {
	UserID    string
	Purpose   TokenPurpose
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (r TokenRecord) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// VerificationStatus doubles as the response envelope status for the
// token endpoints.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusVerified VerificationStatus = "VERIFIED"
	StatusExpired  VerificationStatus = "EXPIRED"
	StatusInvalid  VerificationStatus = "INVALID"
)
