// Package activitymap turns auth activity events into flat audit records
// and provides a sink that logs them.
package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/goliatone/go-auth-stateless"
)

const (
	// MetadataKeyReason carries the error code of a rejected login
	MetadataKeyReason = "reason"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic audit record
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Outcome    string         `json:"outcome"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// Normalize converts event into a Normalized record. The user is both the
// actor and the object: every auth event is self-service.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	return Normalized{
		ActorID:    firstNonEmpty(userID, options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    options.channel,
		Outcome:    outcomeOf(event.EventType),
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithDefaultChannel sets the channel for normalized records
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback names the actor of events without a user, such as a
// login for an unknown identifier
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			opts.actorFallback = actorID
		}
	}
}

// WithClock sets the time used for events missing OccurredAt
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// NewLoggerSink returns an ActivitySink that logs every event as a
// normalized record. Failed logins are logged at warn level.
func NewLoggerSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	if logger == nil {
		logger = auth.NewStdLogger()
	}
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		rec := Normalize(event, opts...)

		args := []any{
			"actor_id", rec.ActorID,
			"verb", rec.Verb,
			"object_type", rec.ObjectType,
			"object_id", rec.ObjectID,
			"channel", rec.Channel,
			"outcome", rec.Outcome,
			"occurred_at", rec.OccurredAt,
		}
		for k, v := range rec.Metadata {
			args = append(args, k, v)
		}

		if rec.Outcome == outcomeFailure {
			logger.Warn("activity", args...)
			return nil
		}
		logger.Info("activity", args...)
		return nil
	})
}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

func outcomeOf(t auth.ActivityEventType) string {
	if t == auth.ActivityEventLoginFailure {
		return outcomeFailure
	}
	return outcomeSuccess
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
