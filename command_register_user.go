package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

type RegisterUserMessage struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(*User) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will validate the payload
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required, validation.Length(2, 64), is.PrintableASCII),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), validation.By(emailFormat)),
		validation.Field(&e.Password, validation.Required, validation.Length(1, 128)),
	)
}

// emailFormat checks the syntax only, no MX lookups
func emailFormat(value any) error {
	s, _ := value.(string)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return errors.New("must be a valid email address")
	}
	return nil
}

type RegisterUserHandler struct {
	accountDeps
}

func NewRegisterUserHandler(store CredentialStore, hasher PasswordHasher, mailer Mailer, opts ...AccountOption) *RegisterUserHandler {
	return &RegisterUserHandler{accountDeps: newAccountDeps(store, hasher, mailer, opts...)}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	event.Username = strings.TrimSpace(event.Username)
	event.Email = NormalizeEmail(event.Email)

	if err := event.Validate(); err != nil {
		return WithMetadata(Wrap(err, ErrValidation), map[string]any{"errors": err.Error()})
	}

	if strings.Contains(event.Username, "@") {
		return WithMetadata(ErrValidation, map[string]any{"errors": "username: must not contain '@'."})
	}

	if err := h.ensureAvailable(ctx, event); err != nil {
		return err
	}

	hash, err := h.hasher.Hash(event.Password)
	if err != nil {
		return Wrap(err, ErrInternal)
	}

	code, err := h.newVerificationCode(ctx)
	if err != nil {
		return err
	}

	now := h.now()
	user := &User{
		ID:           uuid.New(),
		Username:     event.Username,
		Email:        event.Email,
		PasswordHash: hash,
		Role:         RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if h.useHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}
	user.SetVerificationCode(code, now, h.verificationTTL)

	saved, err := h.store.Save(ctx, user)
	if err != nil {
		if IsError(err, ErrIdentityConflict) {
			return err
		}
		return Wrap(err, ErrInternal)
	}

	if err := h.sendVerification(ctx, saved); err != nil {
		// the account exists, the code can be re-sent
		h.logger.Warn("verification email dispatch failed", "user_id", saved.ID.String(), "error", err)
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEventUserRegistered, saved.ID.String(), nil)

	if event.OnResponse != nil {
		event.OnResponse(saved)
	}

	return nil
}

func (h *RegisterUserHandler) ensureAvailable(ctx context.Context, event RegisterUserMessage) error {
	if _, err := h.store.FindByEmail(ctx, event.Email); err == nil {
		return WithMetadata(ErrIdentityConflict, map[string]any{"field": "email"})
	} else if !IsError(err, ErrIdentityNotFound) {
		return Wrap(err, ErrInternal)
	}

	if _, err := h.store.FindByUsername(ctx, event.Username); err == nil {
		return WithMetadata(ErrIdentityConflict, map[string]any{"field": "username"})
	} else if !IsError(err, ErrIdentityNotFound) {
		return Wrap(err, ErrInternal)
	}

	return nil
}
