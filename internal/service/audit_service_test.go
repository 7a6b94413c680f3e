package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/account-service/internal/events"
)

func TestAuditService_RecordsAccountEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventUserLoggedIn, 7, "alice@x.com", events.LoginPayload{SessionReused: true})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventUserDeleted, 7, "alice@x.com", nil)))

	entries := logs.FilterMessage("account event").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "user_logged_in", first["event_type"])
	assert.Equal(t, int64(7), first["user_id"])
	assert.Equal(t, true, first["session_reused"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}
