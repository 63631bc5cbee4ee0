package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"hermes-backend/models"
	"hermes-backend/store"
)

type fixture struct {
	backend   store.Backend
	personnel *RecordService
	users     *RecordService
	identity  *IdentityService
	chatbot   *ChatbotService
}

// newFixture wires the services over a throwaway SQLite file. The chat bot
// works on the personnel variant.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	backend, err := store.NewSQLBackend(db, store.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, backend.Migrate(context.Background(), models.Personnel, models.Users))

	log, _ := logtest.NewNullLogger()
	f := &fixture{
		backend:   backend,
		personnel: NewRecordService(backend.Records(models.Personnel), log),
		users:     NewRecordService(backend.Records(models.Users), log),
	}
	f.identity = NewIdentityService(f.personnel.Store(), log)
	f.chatbot = NewChatbotService(f.identity, f.personnel, log)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	_, err := store.Seed(context.Background(), f.personnel.Store(), store.SamplePersonnel)
	require.NoError(t, err)
}
