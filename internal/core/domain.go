package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// CategoryAll is the wildcard budget category matching every transaction.
const CategoryAll = "all"

// MaxAmount bounds every single amount the ledger accepts. Sums of such
// amounts stay far from the int64 range.
const MaxAmount int64 = 1_000_000_000_000_000

type (
	TransactionType string

	User struct {
		ID           string     `json:"id"`
		Name         string     `json:"name"`
		Email        string     `json:"email"`
		DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
		PasswordHash string     `json:"-"`
		Verified     bool       `json:"verified"`
		CreatedAt    time.Time  `json:"createdAt"`
	}

	Transaction struct {
		ID            string          `json:"id"`
		UserID        string          `json:"userId"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		PaymentMethod string          `json:"paymentMethod"`
		Amount        int64           `json:"amount"`
		Date          time.Time       `json:"date"`
		Note          string          `json:"note"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	Balance struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Balance   int64     `json:"balance"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	Budget struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		Category    string    `json:"category"`
		Amount      int64     `json:"amount"`
		SpentAmount int64     `json:"spentAmount"`
		StartDate   time.Time `json:"startDate"`
		EndDate     time.Time `json:"endDate"`
		Note        string    `json:"note,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

var (
	ErrEmptyFields         = errors.New("Empty input fields!")
	ErrNotNumeric          = errors.New("Only numbers are accepted")
	ErrInvalidDate         = errors.New("Invalid date entered")
	ErrInvalidType         = errors.New("Invalid transaction type")
	ErrInvalidName         = errors.New("Invalid name entered")
	ErrInvalidEmail        = errors.New("Invalid email entered")
	ErrPasswordTooShort    = errors.New("Password is too short!")
	ErrUserIDRequired      = errors.New("UserID is required")
	ErrBudgetDateRange     = errors.New("Budget end date must not be before its start date")
	ErrBudgetNotNumeric    = errors.New("Amount and spentAmount must be numbers")
	ErrSpentAmountNotValid = errors.New("spentAmount must be a number")
	ErrInvalidDateOfBirth  = errors.New("Invalid date of birth entered")
	ErrEmptyCredentials    = errors.New("Empty credentials supplied!")
	ErrAmountTooLarge      = errors.New("Amount is too large")
	ErrAmountOverflow      = errors.New("Amount would overflow the stored total")
)

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z ]*$`)
	emailRe = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ParseTransactionType normalises s and reports whether it names a known type.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// Signed returns the contribution of the transaction to the running balance:
// +Amount for income and -Amount for expense.
func (t Transaction) Signed() int64 {
	return SignedAmount(t.Type, t.Amount)
}

// SignedAmount applies the ledger sign convention to amount.
func SignedAmount(typ TransactionType, amount int64) int64 {
	if typ == Expense {
		return -amount
	}
	return amount
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" || strings.TrimSpace(t.Category) == "" ||
		strings.TrimSpace(t.PaymentMethod) == "" || t.Type == "" {
		return ErrEmptyFields
	}
	if t.Amount < 0 {
		return ErrNotNumeric
	}
	if t.Amount > MaxAmount {
		return ErrAmountTooLarge
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" || strings.TrimSpace(b.Category) == "" ||
		b.Amount == 0 || b.StartDate.IsZero() || b.EndDate.IsZero() {
		return ErrEmptyFields
	}
	if b.Amount < 0 || b.SpentAmount < 0 {
		return ErrBudgetNotNumeric
	}
	if b.Amount > MaxAmount || b.SpentAmount > MaxAmount {
		return ErrAmountTooLarge
	}
	if b.EndDate.Before(b.StartDate) {
		return ErrBudgetDateRange
	}
	return nil
}

// ValidateSignup checks the registration fields in the order users see the
// messages: empty fields first, then name, email and password shape.
func ValidateSignup(name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return ErrEmptyFields
	}
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}
