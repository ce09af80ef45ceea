package registration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var amir = Record{FirstName: "Amir", LastName: "Mirzaei", Mobile: "09123456789"}

// storeFactory creates an empty store rooted in a fresh temp dir, along with a function that overwrites the raw
// persisted value
type storeFactory func(t *testing.T) (Store, func(raw string))

func newTestFileStore(t *testing.T) (Store, func(raw string)) {
	dir := t.TempDir()
	s := NewFileStore(dir, nil)
	corrupt := func(raw string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, StorageKey+".json"), []byte(raw), 0o600))
	}
	return s, corrupt
}

func newTestSQLiteStore(t *testing.T) (Store, func(raw string)) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "coach.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	corrupt := func(raw string) {
		_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, StorageKey, raw)
		require.NoError(t, err)
	}
	return s, corrupt
}

func forEachStore(t *testing.T, fn func(t *testing.T, newStore storeFactory)) {
	t.Run("file", func(t *testing.T) { fn(t, newTestFileStore) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore) })
}

func TestStore_LoadEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		s, _ := newStore(t)

		r, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, r)
	})
}

func TestStore_SaveThenLoad(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s, _ := newStore(t)

		saved, err := s.Save(ctx, amir)
		require.NoError(t, err)
		assert.Equal(t, amir, saved)

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, amir, *loaded)
	})
}

func TestStore_SaveTrims(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s, _ := newStore(t)

		saved, err := s.Save(ctx, Record{FirstName: " Amir ", LastName: " Mirzaei", Mobile: "09123456789"})
		require.NoError(t, err)
		assert.Equal(t, amir, saved)

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, amir, *loaded)
	})
}

func TestStore_SaveReplaces(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s, _ := newStore(t)

		_, err := s.Save(ctx, amir)
		require.NoError(t, err)

		sara := Record{FirstName: "Sara", LastName: "Karimi", Mobile: "09351234567"}
		_, err = s.Save(ctx, sara)
		require.NoError(t, err)

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, sara, *loaded)
	})
}

func TestStore_InvalidSaveLeavesStateUnchanged(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s, _ := newStore(t)

		_, err := s.Save(ctx, amir)
		require.NoError(t, err)

		_, err = s.Save(ctx, Record{FirstName: "Sara", LastName: "Karimi", Mobile: "0912345678"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "mobile", ve.Field)

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, amir, *loaded)
	})
}

func TestStore_InvalidSaveOnEmptyStorePersistsNothing(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s, _ := newStore(t)

		_, err := s.Save(ctx, Record{FirstName: "Amir", LastName: "Mirzaei", Mobile: "0912345678"})
		require.Error(t, err)

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})
}

func TestStore_PaddedMobileIsRejected(t *testing.T) {
	for _, mobile := range []string{" 09123456789", "09123456789 ", "\t09123456789\n"} {
		t.Run(mobile, func(t *testing.T) {
			forEachStore(t, func(t *testing.T, newStore storeFactory) {
				ctx := context.Background()
				s, _ := newStore(t)

				_, err := s.Save(ctx, Record{FirstName: "Amir", LastName: "Mirzaei", Mobile: mobile})
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "mobile", ve.Field)

				loaded, err := s.Load(ctx)
				require.NoError(t, err)
				assert.Nil(t, loaded)
			})
		})
	}
}

func TestStore_CorruptRecordIsPurged(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        "{firstName: Amir",
		"missing mobile":  `{"firstName":"Amir","lastName":"Mirzaei"}`,
		"empty last name": `{"firstName":"Amir","lastName":"","mobile":"09123456789"}`,
		"wrong types":     `{"firstName":1,"lastName":2,"mobile":3}`,
		"null":            `null`,
	} {
		t.Run(name, func(t *testing.T) {
			forEachStore(t, func(t *testing.T, newStore storeFactory) {
				ctx := context.Background()
				s, corrupt := newStore(t)
				corrupt(raw)

				r, err := s.Load(ctx)
				require.NoError(t, err)
				assert.Nil(t, r)

				// Saving afterwards works normally
				_, err = s.Save(ctx, amir)
				require.NoError(t, err)
				loaded, err := s.Load(ctx)
				require.NoError(t, err)
				require.NotNil(t, loaded)
				assert.Equal(t, amir, *loaded)
			})
		})
	}
}

func TestStore_Clear(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s, _ := newStore(t)

		// Clearing an empty store is fine
		require.NoError(t, s.Clear(ctx))

		_, err := s.Save(ctx, amir)
		require.NoError(t, err)
		require.NoError(t, s.Clear(ctx))

		r, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, r)
	})
}

func TestFileStore_CorruptFileIsRemoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StorageKey+".json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	s := NewFileStore(dir, nil)
	r, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := NewFileStore(dir, nil)

	_, err := s.Save(context.Background(), amir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file should not be left behind")
	assert.Equal(t, StorageKey+".json", entries[0].Name())
}
