// Package mail delivers the account emails: verification codes, verification
// links and password reset codes.
package mail

import (
	"context"
	"fmt"
	"sync"

	gomail "github.com/wneessen/go-mail"

	"mywallet/internal/log"
)

// Message is a rendered email ready to send.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends one message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From string
}

// SMTPMailer sends through an authenticated SMTP relay with mandatory TLS.
type SMTPMailer struct {
	from   string
	mu     sync.Mutex
	client *gomail.Client
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{from: from, client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMsg()
	if err := gm.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := gm.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	gm.Subject(msg.Subject)
	gm.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	// The client holds one SMTP session at a time.
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.client.DialAndSendWithContext(ctx, gm); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentMail).InfoContext(ctx, "Mail sent",
		log.FieldMailTo, msg.To, "subject", msg.Subject)
	return nil
}

// Publisher hands a message to a queue for later delivery.
type Publisher interface {
	PublishMail(ctx context.Context, to, subject, html string) error
}

// QueueMailer defers delivery to the worker through a message queue.
type QueueMailer struct {
	pub Publisher
}

func NewQueueMailer(pub Publisher) *QueueMailer {
	return &QueueMailer{pub: pub}
}

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	if err := m.pub.PublishMail(ctx, msg.To, msg.Subject, msg.HTML); err != nil {
		return fmt.Errorf("queue mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used in
// development, where the verification code is read from the output.
type LogMailer struct {
	logger *log.Logger
}

func NewLogMailer(logger *log.Logger) *LogMailer {
	return &LogMailer{logger: logger.WithComponent(log.ComponentMail)}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "Mail not sent, log backend",
		log.FieldMailTo, msg.To,
		"subject", msg.Subject,
		"html", msg.HTML)
	return nil
}

// Recorder keeps sent messages in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned by Send and nothing is recorded.
	Err error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message and false when nothing was sent.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Message{}, false
	}
	return r.sent[len(r.sent)-1], true
}
