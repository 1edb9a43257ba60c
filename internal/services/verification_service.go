package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mywallet/internal/auth"
	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/mail"
	"mywallet/internal/storage"
)

const (
	msgOTPSent          = "Verification otp email sent"
	msgLinkSent         = "Verification email sent"
	msgResetSent        = "Password reset email sent"
	msgSendFailed       = "Verification email failed to send"
	msgEmptyOTP         = "Empty otp details are not allowed"
	msgEmptyUserDetails = "Empty user details are not allowed"
	msgEmptyReset       = "Empty password reset details are not allowed"
	msgVerified         = "User email verified successfully."
	msgPasswordReset    = "Password reset successfully"
	msgResetFailed      = "An error occurred while resetting the password"
	msgVerifyFailed     = "An error occurred while verifying the account"
	msgResendOTPPrefix  = "Verification OTP Resend Error. "
	msgResendLinkPrefix = "Verification Link Resend Error. "
)

// redemptionMessages are the user-facing texts for the failed outcomes of
// each token purpose.
var redemptionMessages = map[core.TokenPurpose]map[core.VerificationStatus]string{
	core.PurposeOTP: {
		core.StatusPending: "Account record doesnt exist or has been verified already. Please sign up or log in.",
		core.StatusExpired: "Code has expired. Please Request again",
		core.StatusInvalid: "Invalid code passed. Check your Inbox",
	},
	core.PurposeEmailLink: {
		core.StatusPending: "Account record doesn't exist or has been verified already. Please sign up or log in.",
		core.StatusExpired: "Link has expired. Please sign up again.",
		core.StatusInvalid: "Invalid verification Details passed. Check your Inbox.",
	},
	core.PurposePasswordReset: {
		core.StatusPending: "Password reset record doesn't exist or has been used already. Please request a new one.",
		core.StatusExpired: "Password reset code has expired. Please request again",
		core.StatusInvalid: "Invalid password reset code passed. Check your Inbox",
	},
}

// redemptionMessage returns the text for a failed redemption. StatusPending
// stands for "no record".
func redemptionMessage(purpose core.TokenPurpose, status core.VerificationStatus) string {
	return redemptionMessages[purpose][status]
}

// VerificationService runs the token lifecycle: a token is issued and mailed
// (PENDING), then redeemed once (VERIFIED), or found EXPIRED or INVALID.
// Each (user, purpose) pair holds at most one token.
type VerificationService struct {
	repo    *storage.SQLiteRepository
	hasher  *auth.Hasher
	mailer  mail.Mailer
	baseURL string
	logger  *log.Logger
	opts    options
}

// NewVerificationService builds link URLs as baseURL + "user/verify/...";
// baseURL must end with a slash.
func NewVerificationService(repo *storage.SQLiteRepository, hasher *auth.Hasher, mailer mail.Mailer, baseURL string, logger *log.Logger, opts ...Option) *VerificationService {
	return &VerificationService{
		repo:    repo,
		hasher:  hasher,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  logger.WithComponent(log.ComponentVerification),
		opts:    newOptions(opts),
	}
}

// Issue generates a token for purpose, stores its hash in the user's slot,
// replacing any previous token, and mails it to email.
func (s *VerificationService) Issue(ctx context.Context, userID, email string, purpose core.TokenPurpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("unknown token purpose %q", purpose)
	}
	token, err := s.generate(userID, purpose)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(token)
	if err != nil {
		return err
	}

	now := s.opts.now()
	rec := core.TokenRecord{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(purpose.TTL()),
	}
	if err := s.repo.Queries().UpsertToken(ctx, rec); err != nil {
		return fmt.Errorf("store %s token: %w", purpose, err)
	}

	msg, err := s.render(userID, email, token, purpose)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s token: %w", purpose, err)
	}

	s.logger.InfoContext(ctx, "Token issued",
		log.FieldUserID, userID, log.FieldPurpose, string(purpose), log.FieldOperation, log.OpIssue)
	return nil
}

func (s *VerificationService) generate(userID string, purpose core.TokenPurpose) (string, error) {
	if purpose == core.PurposeOTP {
		return auth.GenerateOTP()
	}
	return auth.GenerateLinkToken(userID), nil
}

func (s *VerificationService) render(userID, email, token string, purpose core.TokenPurpose) (mail.Message, error) {
	switch purpose {
	case core.PurposeEmailLink:
		return mail.VerificationLink(email, s.VerifyURL(userID, token), purpose.TTL())
	case core.PurposePasswordReset:
		return mail.PasswordReset(email, token, purpose.TTL())
	default:
		return mail.VerificationOTP(email, token, purpose.TTL())
	}
}

// VerifyURL is the link mailed for email-link verification.
func (s *VerificationService) VerifyURL(userID, token string) string {
	return s.baseURL + "user/verify/" + userID + "/" + token
}

// SentMessage is the PENDING message reported after a successful Issue.
func SentMessage(purpose core.TokenPurpose) string {
	switch purpose {
	case core.PurposeEmailLink:
		return msgLinkSent
	case core.PurposePasswordReset:
		return msgResetSent
	default:
		return msgOTPSent
	}
}

// redeem checks candidate against the user's token for purpose. On a match
// onMatch runs in the same unit of work that deletes the token.
func (s *VerificationService) redeem(ctx context.Context, userID string, purpose core.TokenPurpose, candidate string, onMatch func(q *storage.Queries) error) (core.VerificationStatus, error) {
	status := core.StatusInvalid
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		rec, err := q.GetToken(ctx, userID, purpose)
		if errors.Is(err, storage.ErrNotFound) {
			return core.Auth(redemptionMessage(purpose, core.StatusPending))
		}
		if err != nil {
			return fmt.Errorf("get %s token: %w", purpose, err)
		}

		if rec.Expired(s.opts.now()) {
			status = core.StatusExpired
			return s.expire(ctx, q, rec)
		}

		ok, err := s.hasher.Compare(rec.TokenHash, candidate)
		if err != nil {
			return err
		}
		if !ok {
			return core.Auth(redemptionMessage(purpose, core.StatusInvalid))
		}
		if err := onMatch(q); err != nil {
			return err
		}
		if err := q.DeleteToken(ctx, userID, purpose); err != nil {
			return fmt.Errorf("delete %s token: %w", purpose, err)
		}
		status = core.StatusVerified
		return nil
	})
	if status == core.StatusExpired && err == nil {
		s.logger.InfoContext(ctx, "Expired token redeemed",
			log.FieldUserID, userID, log.FieldPurpose, string(purpose), log.FieldStatus, string(status))
		return status, core.Auth(redemptionMessage(purpose, core.StatusExpired))
	}
	if err != nil {
		return core.StatusInvalid, err
	}
	s.logger.InfoContext(ctx, "Token redeemed",
		log.FieldUserID, userID, log.FieldPurpose, string(purpose), log.FieldOperation, log.OpRedeem)
	return status, nil
}

// expire removes an expired token. An expired email link also removes the
// still unverified account so the address can sign up again.
func (s *VerificationService) expire(ctx context.Context, q *storage.Queries, rec core.TokenRecord) error {
	if err := q.DeleteToken(ctx, rec.UserID, rec.Purpose); err != nil {
		return fmt.Errorf("delete expired %s token: %w", rec.Purpose, err)
	}
	if rec.Purpose != core.PurposeEmailLink {
		return nil
	}
	u, err := q.GetUser(ctx, rec.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user %s: %w", rec.UserID, err)
	}
	if u.Verified {
		return nil
	}
	if _, err := q.DeleteUser(ctx, rec.UserID); err != nil {
		return fmt.Errorf("delete unverified user %s: %w", rec.UserID, err)
	}
	return nil
}

// Verify redeems an OTP or email-link token and marks the user verified.
func (s *VerificationService) Verify(ctx context.Context, userID, token string, purpose core.TokenPurpose) (core.VerificationStatus, error) {
	userID, token = strings.TrimSpace(userID), strings.TrimSpace(token)
	if userID == "" || token == "" {
		return core.StatusInvalid, core.Validation(errors.New(msgEmptyOTP))
	}
	status, err := s.redeem(ctx, userID, purpose, token, func(q *storage.Queries) error {
		if err := q.SetUserVerified(ctx, userID); err != nil {
			return fmt.Errorf("mark user %s verified: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return status, classify(err, msgVerifyFailed)
	}
	return status, nil
}

// Resend replaces the user's token for purpose with a fresh one, without
// looking at the state of the old token.
func (s *VerificationService) Resend(ctx context.Context, userID, email string, purpose core.TokenPurpose) error {
	prefix := msgResendOTPPrefix
	if purpose == core.PurposeEmailLink {
		prefix = msgResendLinkPrefix
	}
	userID, email = strings.TrimSpace(userID), strings.TrimSpace(email)
	if userID == "" || email == "" {
		return core.Validation(errors.New(prefix + msgEmptyUserDetails))
	}
	if err := s.repo.Queries().DeleteToken(ctx, userID, purpose); err != nil {
		return core.Persistence(prefix+msgSendFailed, err)
	}
	if err := s.Issue(ctx, userID, email, purpose); err != nil {
		return core.Persistence(msgSendFailed, err)
	}
	return nil
}

// RequestPasswordReset mails a reset code to the account registered with
// email. Unverified accounts cannot reset their password.
func (s *VerificationService) RequestPasswordReset(ctx context.Context, email string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return core.User{}, core.Validation(errors.New(msgEmptyUserDetails))
	}
	u, err := s.repo.Queries().GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, core.NotFound(msgInvalidCredentials)
	}
	if err != nil {
		return core.User{}, core.Persistence(msgResetFailed, err)
	}
	if !u.Verified {
		return core.User{}, core.Auth(msgNotVerified)
	}
	if err := s.Issue(ctx, u.ID, u.Email, core.PurposePasswordReset); err != nil {
		return core.User{}, core.Persistence(msgSendFailed, err)
	}
	return u, nil
}

// ResetPassword redeems a reset code and stores newPassword in the same unit
// of work.
func (s *VerificationService) ResetPassword(ctx context.Context, userID, code, newPassword string) (core.VerificationStatus, error) {
	userID, code, newPassword = strings.TrimSpace(userID), strings.TrimSpace(code), strings.TrimSpace(newPassword)
	if userID == "" || code == "" || newPassword == "" {
		return core.StatusInvalid, core.Validation(errors.New(msgEmptyReset))
	}
	if len(newPassword) < core.MinPasswordLength {
		return core.StatusInvalid, core.Validation(core.ErrPasswordTooShort)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return core.StatusInvalid, core.Persistence(msgResetFailed, err)
	}
	status, err := s.redeem(ctx, userID, core.PurposePasswordReset, code, func(q *storage.Queries) error {
		if err := q.UpdateUserPassword(ctx, userID, hash); err != nil {
			return notFoundAs(err, msgUserNotFound)
		}
		return nil
	})
	if err != nil {
		return status, classify(err, msgResetFailed)
	}
	return status, nil
}

// PurgeExpired expires every token past its deadline, exactly as a late
// redemption would, and returns how many were removed.
func (s *VerificationService) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		stale, err := q.ListExpiredTokens(ctx, s.opts.now())
		if err != nil {
			return fmt.Errorf("list expired tokens: %w", err)
		}
		for _, rec := range stale {
			if err := s.expire(ctx, q, rec); err != nil {
				return err
			}
		}
		n = int64(len(stale))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Expired tokens purged", "count", n)
	}
	return n, nil
}
