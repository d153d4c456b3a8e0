package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/storage"
	"github.com/julianstephens/tminus/internal/storage/storetest"
)

// Set POSTGRES_TEST_URL to run these tests against a real database.
// Example: POSTGRES_TEST_URL="postgres://tminus_user@localhost:5432/tminus_test?sslmode=disable"
func testConnString(t *testing.T) string {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}
	return connStr
}

func setupIntegrationStore(t *testing.T) *Store {
	t.Helper()
	store := New(testConnString(t))
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if _, err := store.GetDB().Exec("DELETE FROM fields"); err != nil {
		t.Fatalf("Failed to reset fields: %v", err)
	}
	return store
}

func TestStoreContract_Integration(t *testing.T) {
	testConnString(t)
	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) storage.Provider { return setupIntegrationStore(t) },
	})
}

func TestSettings_Integration(t *testing.T) {
	store := setupIntegrationStore(t)

	settings, err := store.GetSettings()
	require.NoError(t, err)

	settings.Timezone = "Europe/Paris"
	require.NoError(t, store.SaveSettings(settings))

	updated, err := store.GetSettings()
	require.NoError(t, err)
	require.Equal(t, "Europe/Paris", updated.Timezone)

	require.NoError(t, store.SaveSettings(models.DefaultSettings()))
}

func TestRedeliverOnReconnect_Integration(t *testing.T) {
	ctx := context.Background()
	store := setupIntegrationStore(t)
	require.NoError(t, store.Write(ctx, constants.FieldSelectedDate, "2999-01-01 00:00"))

	rec := &storetest.Recorder{}
	sub, err := store.Subscribe(constants.FieldSelectedDate, rec)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	rec.WaitForLast(t, storetest.Delivery{Value: "2999-01-01 00:00", OK: true})
	before := rec.Count()

	// A nil notification is how pq.Listener reports a reconnect.
	store.refreshAll()
	require.Eventually(t, func() bool { return rec.Count() > before }, 5*time.Second, 10*time.Millisecond)
	rec.WaitForLast(t, storetest.Delivery{Value: "2999-01-01 00:00", OK: true})
}

func TestChangesFromAnotherConnection_Integration(t *testing.T) {
	ctx := context.Background()
	reader := setupIntegrationStore(t)

	writer := New(testConnString(t))
	require.NoError(t, writer.Load())
	defer writer.Close()

	rec := &storetest.Recorder{}
	sub, err := reader.Subscribe(constants.FieldSelectedDate, rec)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	rec.WaitForLast(t, storetest.Delivery{})

	require.NoError(t, writer.Write(ctx, constants.FieldSelectedDate, "2999-01-01 00:00"))
	rec.WaitForLast(t, storetest.Delivery{Value: "2999-01-01 00:00", OK: true})
}
