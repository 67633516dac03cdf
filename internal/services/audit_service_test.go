package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_LogAndList(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	audit := NewAuditService(newTestDB(t), clock)

	require.NoError(t, audit.LogAction(ctx, AuditEntry{
		AdminSubject: "ops@autossav.com",
		Action:       AuditActionResendCode,
		CodeID:       7,
		Details:      map[string]interface{}{"type": "REGISTER"},
		IPAddress:    "10.0.0.1",
	}))
	clock.Advance(time.Minute)
	require.NoError(t, audit.LogAction(ctx, AuditEntry{AdminSubject: "ops@autossav.com", Action: AuditActionDeleteCode, CodeID: 7}))
	clock.Advance(time.Minute)
	require.NoError(t, audit.LogAction(ctx, AuditEntry{AdminSubject: "root", Action: AuditActionDeleteCode, CodeID: 8}))

	logs, total, err := audit.GetRecentActions(ctx, 1, 10, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 3)
	assert.Equal(t, int64(8), logs[0].TargetID, "newest first")
	assert.Equal(t, "security_code", logs[0].TargetType)
	assert.JSONEq(t, `{"type":"REGISTER"}`, logs[2].Details)

	logs, total, err = audit.GetRecentActions(ctx, 1, 10, "ops@autossav.com", AuditActionDeleteCode)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(7), logs[0].TargetID)

	logs, _, err = audit.GetRecentActions(ctx, 2, 2, "", "")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestAuditService_GetActionCount(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	audit := NewAuditService(newTestDB(t), clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.LogAction(ctx, AuditEntry{AdminSubject: "ops", Action: AuditActionDeleteCode, CodeID: int64(i)}))
		clock.Advance(time.Minute)
	}

	count, err := audit.GetActionCount(ctx, "ops", AuditActionDeleteCode, testEpoch.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = audit.GetActionCount(ctx, "ops", AuditActionResendCode, testEpoch.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}
