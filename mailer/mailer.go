// Package mailer holds the verification email senders.
package mailer

import (
	"context"
	"sync"
	"time"

	auth "github.com/goliatone/go-auth-stateless"
	"github.com/goliatone/go-auth-stateless/logging"
)

// LogMailer writes verification messages to the log instead of sending
// them. Meant for development.
type LogMailer struct {
	logger auth.Logger
}

var _ auth.Mailer = (*LogMailer)(nil)

func NewLogMailer(logger auth.Logger) *LogMailer {
	if logger == nil {
		logger = logging.NewZapLogger(nil)
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, identity auth.Identity, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("verification email",
		"to", identity.Email(),
		"user_id", identity.ID(),
		"code", code,
	)
	return nil
}

// Message is a recorded verification email
type Message struct {
	To     string
	UserID string
	Code   string
	SentAt time.Time
}

// Outbox records verification emails in memory
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

var _ auth.Mailer = (*Outbox)(nil)

func NewOutbox() *Outbox {
	return &Outbox{}
}

// FailWith makes every following send return err, nil resets it
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *Outbox) SendVerificationEmail(ctx context.Context, identity auth.Identity, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}

	o.messages = append(o.messages, Message{
		To:     identity.Email(),
		UserID: identity.ID(),
		Code:   code,
		SentAt: time.Now(),
	})
	return nil
}

// Messages returns a copy of everything sent so far
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// LastCode returns the latest code sent to email
func (o *Outbox) LastCode(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To == email {
			return o.messages[i].Code, true
		}
	}
	return "", false
}
