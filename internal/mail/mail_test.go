package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywallet/internal/log"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRenderedEmails(t *testing.T) {
	tests := []struct {
		name    string
		render  func() (Message, error)
		subject string
	}{
		{
			name:    "verify_otp",
			render:  func() (Message, error) { return VerificationOTP("ada@example.com", "4821", time.Hour) },
			subject: SubjectVerify,
		},
		{
			name: "verify_link",
			render: func() (Message, error) {
				return VerificationLink("ada@example.com", "http://localhost:5000/user/verify/u-1/0b6c1f9e-u-1", 6*time.Hour)
			},
			subject: SubjectVerify,
		},
		{
			name:    "password_reset",
			render:  func() (Message, error) { return PasswordReset("ada@example.com", "0b6c1f9e-u-1", time.Hour) },
			subject: SubjectPasswordReset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.render()
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", msg.To)
			assert.Equal(t, tt.subject, msg.Subject)
			newGoldie(t).Assert(t, tt.name, []byte(msg.HTML))
		})
	}
}

func TestHumanTTL(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{6 * time.Hour, "6 hours"},
		{90 * time.Minute, "90 minutes"},
		{time.Minute, "1 minute"},
		{15 * time.Minute, "15 minutes"},
	}
	for _, tt := range tests {
		if got := humanTTL(tt.in); got != tt.want {
			t.Errorf("humanTTL(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakePublisher struct {
	to, subject, html string
	err               error
}

func (p *fakePublisher) PublishMail(_ context.Context, to, subject, html string) error {
	p.to, p.subject, p.html = to, subject, html
	return p.err
}

func TestQueueMailer(t *testing.T) {
	pub := &fakePublisher{}
	m := NewQueueMailer(pub)

	err := m.Send(context.Background(), Message{To: "a@b.io", Subject: "s", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.io", pub.to)
	assert.Equal(t, "<p>x</p>", pub.html)

	pub.err = errors.New("circuit breaker is open")
	err = m.Send(context.Background(), Message{To: "a@b.io"})
	assert.ErrorIs(t, err, pub.err)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(log.New(log.Config{Output: &buf}))

	require.NoError(t, m.Send(context.Background(), Message{To: "a@b.io", Subject: SubjectVerify, HTML: "<b>1234</b>"}))
	assert.Contains(t, buf.String(), "mail_to=a@b.io")
	assert.Contains(t, buf.String(), "1234")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Send(context.Background(), Message{To: "one@b.io"}))
	require.NoError(t, r.Send(context.Background(), Message{To: "two@b.io"}))
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "two@b.io", last.To)
	assert.Len(t, r.Sent(), 2)

	r.Err = errors.New("down")
	assert.Error(t, r.Send(context.Background(), Message{To: "three@b.io"}))
	assert.Len(t, r.Sent(), 2)
}

func TestNewSMTPMailerDefaultsSender(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "noreply@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@example.com", m.from)
}
