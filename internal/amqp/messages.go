package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MailMessage is one queued email. The worker renders nothing: the HTML body
// is produced by the API server and travels with the message.
type MailMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMailMessage(to, subject, html string) *MailMessage {
	return &MailMessage{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		HTML:      html,
		Timestamp: time.Now(),
	}
}

func (m *MailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MailMessageFromJSON(data []byte) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
