package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"mywallet/internal/auth"
	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/storage"
)

const (
	msgDuplicateEmail     = "User with provided email already exists"
	msgUserCheckFailed    = "An error occurred while checking for existing user!"
	msgUserSaveFailed     = "An error occurred while saving user account!"
	msgInvalidCredentials = "Invalid credentials entered!"
	msgNotVerified        = "Email hasn't been verified yet. Check your inbox."
	msgInvalidPassword    = "Invalid password entered!"
	msgSigninFailed       = "An error occurred while checking for existing user"
	msgUserNotFound       = "User not found"
	msgOldPasswordWrong   = "Old password is incorrect"
	msgPasswordFailed     = "An error occurred while updating the password"
	msgProfileFailed      = "An error occurred while updating profile"
	msgProfileFetchFailed = "An error occurred while fetching user profile"
	msgUserRecordNotFound = "User record not found"
	msgUserDeleteFailed   = "An error occurred while deleting the User record"
)

// SignupInput is the raw registration form.
type SignupInput struct {
	Name        string
	Email       string
	DateOfBirth string
	Password    string
}

type UserService struct {
	repo         *storage.SQLiteRepository
	hasher       *auth.Hasher
	verification *VerificationService
	logger       *log.Logger
	opts         options
}

func NewUserService(repo *storage.SQLiteRepository, hasher *auth.Hasher, verification *VerificationService, logger *log.Logger, opts ...Option) *UserService {
	return &UserService{
		repo:         repo,
		hasher:       hasher,
		verification: verification,
		logger:       logger.WithComponent(log.ComponentUser),
		opts:         newOptions(opts),
	}
}

// Signup registers an unverified account and issues its first verification
// token of the given purpose (OTP or email link). When the email cannot be
// sent the account is kept and the user can ask for a resend.
func (s *UserService) Signup(ctx context.Context, in SignupInput, purpose core.TokenPurpose) (core.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	password := strings.TrimSpace(in.Password)
	if err := core.ValidateSignup(name, email, password); err != nil {
		return core.User{}, core.Validation(err)
	}

	u := core.User{Name: name, Email: email}
	if dob := strings.TrimSpace(in.DateOfBirth); dob != "" {
		t, err := core.ParseDate(dob, s.opts.loc)
		if err != nil {
			return core.User{}, core.Validation(core.ErrInvalidDateOfBirth)
		}
		u.DateOfBirth = &t
	}

	_, err := s.repo.Queries().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return core.User{}, core.Conflict(msgDuplicateEmail)
	case !errors.Is(err, storage.ErrNotFound):
		return core.User{}, core.Persistence(msgUserCheckFailed, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return core.User{}, core.Persistence(msgUserSaveFailed, err)
	}
	u.ID = uuid.NewString()
	u.PasswordHash = hash
	u.CreatedAt = s.opts.now()
	if err := s.repo.Queries().CreateUser(ctx, u); err != nil {
		return core.User{}, core.Persistence(msgUserSaveFailed, err)
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID)

	if err := s.verification.Issue(ctx, u.ID, u.Email, purpose); err != nil {
		s.logger.ErrorContext(ctx, "Verification email failed",
			log.FieldUserID, u.ID, log.FieldPurpose, string(purpose), log.FieldError, err)
		return u, core.Persistence(msgSendFailed, err)
	}
	return u, nil
}

// Signin checks the credentials of a verified account.
func (s *UserService) Signin(ctx context.Context, email, password string) (core.User, error) {
	email, password = strings.TrimSpace(email), strings.TrimSpace(password)
	if email == "" || password == "" {
		return core.User{}, core.Validation(core.ErrEmptyCredentials)
	}
	u, err := s.repo.Queries().GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, core.Auth(msgInvalidCredentials)
	}
	if err != nil {
		return core.User{}, core.Persistence(msgSigninFailed, err)
	}
	if !u.Verified {
		return u, core.Auth(msgNotVerified)
	}
	ok, err := s.hasher.Compare(u.PasswordHash, password)
	if err != nil {
		return core.User{}, core.Persistence(msgSigninFailed, err)
	}
	if !ok {
		return core.User{}, core.Auth(msgInvalidPassword)
	}
	return u, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" || oldPassword == "" || newPassword == "" {
		return core.Validation(core.ErrEmptyFields)
	}
	if len(newPassword) < core.MinPasswordLength {
		return core.Validation(core.ErrPasswordTooShort)
	}
	u, err := s.repo.Queries().GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.NotFound(msgUserNotFound)
	}
	if err != nil {
		return core.Persistence(msgPasswordFailed, err)
	}
	ok, err := s.hasher.Compare(u.PasswordHash, oldPassword)
	if err != nil {
		return core.Persistence(msgPasswordFailed, err)
	}
	if !ok {
		return core.Auth(msgOldPasswordWrong)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return core.Persistence(msgPasswordFailed, err)
	}
	if err := s.repo.Queries().UpdateUserPassword(ctx, userID, hash); err != nil {
		return classify(notFoundAs(err, msgUserNotFound), msgPasswordFailed)
	}
	s.logger.InfoContext(ctx, "Password changed", log.FieldUserID, userID)
	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID, name, email string) (core.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return core.User{}, core.Validation(core.ErrEmptyFields)
	}
	var updated core.User
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		other, err := q.GetUserByEmail(ctx, email)
		switch {
		case err == nil && other.ID != userID:
			return core.Conflict(msgDuplicateEmail)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
		updated, err = q.UpdateUserProfile(ctx, userID, name, email)
		return notFoundAs(err, msgUserNotFound)
	})
	if err != nil {
		return core.User{}, classify(err, msgProfileFailed)
	}
	return updated, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (core.User, error) {
	u, err := s.repo.Queries().GetUser(ctx, strings.TrimSpace(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, core.NotFound(msgUserNotFound)
	}
	if err != nil {
		return core.User{}, core.Persistence(msgProfileFetchFailed, err)
	}
	return u, nil
}

// Delete removes the account and any tokens it still holds. The user's
// ledger records are kept.
func (s *UserService) Delete(ctx context.Context, userID string) (core.User, error) {
	var deleted core.User
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if deleted, err = q.DeleteUser(ctx, userID); err != nil {
			return notFoundAs(err, msgUserRecordNotFound)
		}
		for _, p := range []core.TokenPurpose{core.PurposeOTP, core.PurposeEmailLink, core.PurposePasswordReset} {
			if err := q.DeleteToken(ctx, userID, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.User{}, classify(err, msgUserDeleteFailed)
	}
	s.logger.InfoContext(ctx, "User deleted", log.FieldUserID, userID)
	return deleted, nil
}
