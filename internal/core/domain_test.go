package core

import (
	"errors"
	"testing"
	"time"
)

func TestSignedAmount(t *testing.T) {
	cases := []struct {
		tx   Transaction
		want int64
	}{
		{Transaction{Type: Income, Amount: 500}, 500},
		{Transaction{Type: Expense, Amount: 200}, -200},
		{Transaction{Type: Expense, Amount: 0}, 0},
	}
	for i, tc := range cases {
		if got := tc.tx.Signed(); got != tc.want {
			t.Fatalf("case %d: Signed() = %d, want %d", i, got, tc.want)
		}
	}
}

func TestSumSigned(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Amount: 500},
		{Type: Expense, Amount: 200},
		{Type: Income, Amount: 50},
	}
	if got := SumSigned(txs); got != 350 {
		t.Fatalf("SumSigned() = %d, want 350", got)
	}
	if got := SumAmounts(txs); got != 750 {
		t.Fatalf("SumAmounts() = %d, want 750", got)
	}
}

func TestParseTransactionType(t *testing.T) {
	for _, in := range []string{"income", " Expense ", "INCOME"} {
		if _, err := ParseTransactionType(in); err != nil {
			t.Fatalf("ParseTransactionType(%q) error = %v", in, err)
		}
	}
	if _, err := ParseTransactionType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		UserID:        "u1",
		Type:          Expense,
		Category:      "Food",
		PaymentMethod: "card",
		Amount:        200,
		Date:          time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Category = "  "
	if err := bad.Validate(); !errors.Is(err, ErrEmptyFields) {
		t.Fatalf("expected ErrEmptyFields, got %v", err)
	}

	bad = good
	bad.Date = time.Time{}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	bad = good
	bad.Amount = MaxAmount + 1
	if err := bad.Validate(); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}

	bad = good
	bad.Type = "gift"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestBudgetValidate(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := Budget{UserID: "u1", Category: "Food", Amount: 300, StartDate: start, EndDate: start.AddDate(0, 1, 0)}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	b.EndDate = start.AddDate(0, 0, -1)
	if err := b.Validate(); !errors.Is(err, ErrBudgetDateRange) {
		t.Fatalf("expected ErrBudgetDateRange, got %v", err)
	}
	b.EndDate = start.AddDate(0, 1, 0)
	b.SpentAmount = MaxAmount + 1
	if err := b.Validate(); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
	b.SpentAmount = 0
	b.EndDate = start
	b.Amount = 0
	if err := b.Validate(); !errors.Is(err, ErrEmptyFields) {
		t.Fatalf("expected ErrEmptyFields, got %v", err)
	}
}

func TestValidateSignup(t *testing.T) {
	cases := []struct {
		name, email, password string
		want                  error
	}{
		{"Ada Lovelace", "ada@example.com", "difference", nil},
		{"", "ada@example.com", "difference", ErrEmptyFields},
		{"Ada99", "ada@example.com", "difference", ErrInvalidName},
		{"Ada", "ada@", "difference", ErrInvalidEmail},
		{"Ada", "ada.l-b@mail.example.org", "short", ErrPasswordTooShort},
	}
	for i, tc := range cases {
		err := ValidateSignup(tc.name, tc.email, tc.password)
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestTokenPurposeTTL(t *testing.T) {
	if PurposeOTP.TTL() != time.Hour {
		t.Fatalf("otp ttl = %v", PurposeOTP.TTL())
	}
	if PurposeEmailLink.TTL() != 6*time.Hour {
		t.Fatalf("link ttl = %v", PurposeEmailLink.TTL())
	}
	if PurposePasswordReset.TTL() != time.Hour {
		t.Fatalf("reset ttl = %v", PurposePasswordReset.TTL())
	}
	if TokenPurpose("other").Valid() {
		t.Fatal("unknown purpose must not be valid")
	}
}

func TestErrorKinds(t *testing.T) {
	err := Persistence("An error occurred while saving", errors.New("disk full"))
	if KindOf(err) != KindPersistence {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if MessageOf(err) != "An error occurred while saving" {
		t.Fatalf("message = %q", MessageOf(err))
	}
	if CauseOf(err) != "disk full" {
		t.Fatalf("cause = %q", CauseOf(err))
	}

	v := Validation(ErrInvalidType)
	if KindOf(v) != KindValidation || MessageOf(v) != "Invalid transaction type" {
		t.Fatalf("unexpected validation error %v", v)
	}
	if KindOf(errors.New("plain")) != KindPersistence {
		t.Fatal("unclassified errors are persistence failures")
	}
}
