package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
)

// AuditService writes an audit line for every account event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(a.record,
		events.EventUserRegistered,
		events.EventUserLoggedIn,
		events.EventUserLoggedOut,
		events.EventUserUpdated,
		events.EventUserDeleted,
	)
}

func (a *AuditService) record(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("user_id", event.UserID),
		zap.String("email", event.Email),
		zap.Time("at", event.Timestamp),
	}
	switch p := event.Payload.(type) {
	case events.LoginPayload:
		fields = append(fields, zap.Bool("session_reused", p.SessionReused))
	case events.UpdatePayload:
		fields = append(fields, zap.String("name", p.Name), zap.Int("age", p.Age))
	}
	a.logger.Info("account event", fields...)
	return nil
}
