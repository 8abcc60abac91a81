package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

type ResendVerificationMessage struct {
	Email string `json:"email"`
}

func (e ResendVerificationMessage) Type() string { return "user.verification.resend" }

// Validate will validate the payload
func (e ResendVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.By(emailFormat)),
	)
}

type ResendVerificationHandler struct {
	accountDeps
}

func NewResendVerificationHandler(store CredentialStore, mailer Mailer, opts ...AccountOption) *ResendVerificationHandler {
	return &ResendVerificationHandler{accountDeps: newAccountDeps(store, nil, mailer, opts...)}
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	event.Email = NormalizeEmail(event.Email)
	if err := event.Validate(); err != nil {
		return WithMetadata(Wrap(err, ErrValidation), map[string]any{"errors": err.Error()})
	}

	// unknown and verified accounts answer like a successful resend so the
	// endpoint cannot be used to enumerate registered emails
	user, err := h.store.FindByEmail(ctx, event.Email)
	if err != nil {
		if IsError(err, ErrIdentityNotFound) {
			h.logger.Debug("verification resend for unknown email")
			return nil
		}
		return Wrap(err, ErrInternal)
	}

	if user.Verified {
		h.logger.Debug("verification resend for verified account", "user_id", user.ID.String())
		return nil
	}

	code, err := h.newVerificationCode(ctx)
	if err != nil {
		return err
	}
	user.SetVerificationCode(code, h.now(), h.verificationTTL)

	saved, err := h.store.Save(ctx, user)
	if err != nil {
		return Wrap(err, ErrInternal)
	}

	if err := h.sendVerification(ctx, saved); err != nil {
		h.logger.Warn("verification email dispatch failed", "user_id", saved.ID.String(), "error", err)
		return nil
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEventVerificationReissued, saved.ID.String(), nil)

	return nil
}
