package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtrestaurant/internal/models"
)

func openTestDB(t *testing.T) *ExchangeStore {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "transcript.db"), &models.ChatExchange{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewExchangeStore(db)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestExchangeStore_RecordAndRecent(t *testing.T) {
	store := openTestDB(t)

	require.NoError(t, store.Record(&models.ChatExchange{RequestID: "a", Message: "xin chào", Reply: "Dạ"}))
	require.NoError(t, store.Record(&models.ChatExchange{RequestID: "b", Message: "thêm tiramisu", Action: "add_to_cart", Items: "Tiramisu Classic"}))
	require.NoError(t, store.Record(&models.ChatExchange{RequestID: "c", Fallback: true, FallbackReason: "timeout"}))

	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].RequestID)
	assert.Equal(t, "b", recent[1].RequestID)

	all, err := store.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := store.FallbackCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_DefaultsToSQLiteAndMigrates(t *testing.T) {
	db, err := Open("", filepath.Join(t.TempDir(), "default.db"), &models.ChatExchange{})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DriverSQLite, db.Dialect().GetName())
	assert.True(t, db.HasTable(&models.ChatExchange{}))
}
