package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	SubjectVerify        = "Verify Your Email"
	SubjectPasswordReset = "Reset Your Password"
)

type emailData struct {
	Code      string
	Link      string
	ExpiresIn string
}

// VerificationOTP renders the signup code email.
func VerificationOTP(to, code string, ttl time.Duration) (Message, error) {
	return render(to, SubjectVerify, "verify_otp.html", emailData{Code: code, ExpiresIn: humanTTL(ttl)})
}

// VerificationLink renders the email carrying the account verification link.
func VerificationLink(to, link string, ttl time.Duration) (Message, error) {
	return render(to, SubjectVerify, "verify_link.html", emailData{Link: link, ExpiresIn: humanTTL(ttl)})
}

func PasswordReset(to, code string, ttl time.Duration) (Message, error) {
	return render(to, SubjectPasswordReset, "password_reset.html", emailData{Code: code, ExpiresIn: humanTTL(ttl)})
}

func render(to, subject, name string, data emailData) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

// humanTTL formats whole hours as "1 hour" or "6 hours" and anything shorter
// in minutes.
func humanTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
