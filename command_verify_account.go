package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

type VerifyAccountMessage struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
	OnResponse       func(*User) `json:"-"`
}

func (e VerifyAccountMessage) Type() string { return "user.verify" }

// Validate will validate the payload
func (e VerifyAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required),
		validation.Field(&e.VerificationCode, validation.Required),
	)
}

type VerifyAccountHandler struct {
	accountDeps
}

func NewVerifyAccountHandler(store CredentialStore, opts ...AccountOption) *VerifyAccountHandler {
	return &VerifyAccountHandler{accountDeps: newAccountDeps(store, nil, nil, opts...)}
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) error {
	if err := event.Validate(); err != nil {
		return WithMetadata(Wrap(err, ErrValidation), map[string]any{"errors": err.Error()})
	}

	user, err := h.store.FindByVerificationCode(ctx, strings.TrimSpace(event.VerificationCode))
	if err != nil {
		if IsError(err, ErrIdentityNotFound) {
			return ErrInvalidVerificationCode
		}
		return Wrap(err, ErrInternal)
	}

	// a code only verifies the account it was sent to
	if user.Email != NormalizeEmail(event.Email) {
		return ErrInvalidVerificationCode
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	now := h.now()
	if user.VerificationExpired(now) {
		return ErrVerificationExpired
	}

	user.MarkVerified(now)

	saved, err := h.store.Save(ctx, user)
	if err != nil {
		return Wrap(err, ErrInternal)
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEventUserVerified, saved.ID.String(), nil)

	if event.OnResponse != nil {
		event.OnResponse(saved)
	}

	return nil
}
