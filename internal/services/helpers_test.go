package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/synesthesie/verification/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockDispatcher records dispatched codes.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(code models.SecurityCode) {
	m.Called(code)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendTemplate(ctx context.Context, to, subject, templateID string, data map[string]string) error {
	args := m.Called(ctx, to, subject, templateID, data)
	return args.Error(0)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendSMS(ctx context.Context, to, content string) error {
	args := m.Called(ctx, to, content)
	return args.Error(0)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// storeFactories yields each CodeStore implementation under test.
func storeFactories() map[string]func(t *testing.T, clock Clock) CodeStore {
	return map[string]func(t *testing.T, clock Clock) CodeStore{
		"memory": func(t *testing.T, clock Clock) CodeStore {
			return NewMemoryCodeStore(clock)
		},
		"gorm": func(t *testing.T, clock Clock) CodeStore {
			return NewGormCodeStore(newTestDB(t), clock)
		},
	}
}

func seedCode(t *testing.T, store CodeStore, name, code string, codeType models.CodeType, createAt time.Time) *models.SecurityCode {
	t.Helper()
	sc := &models.SecurityCode{
		Name:     name,
		Code:     code,
		Type:     codeType,
		Status:   models.CodeStatusUnused,
		CreateAt: createAt,
		UpdateAt: createAt,
	}
	_, err := store.Insert(context.Background(), sc)
	require.NoError(t, err)
	return sc
}

func ptr[T any](v T) *T {
	return &v
}
