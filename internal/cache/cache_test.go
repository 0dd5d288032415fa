package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = Key{Product: "Proofpoint", Channel: "news"}

func TestGetAfterPutIsFresh(t *testing.T) {
	c := New(12*time.Hour, nil)

	_, fresh := c.Get(testKey)
	assert.False(t, fresh)

	c.Put(testKey, []byte(`{"items":[]}`), 3, []string{"BleepingComputer"})

	entry, fresh := c.Get(testKey)
	require.NotNil(t, entry)
	assert.True(t, fresh)
	assert.Equal(t, 3, entry.ItemCount)
	assert.Equal(t, []string{"BleepingComputer"}, entry.SourcePlatforms)
}

func TestExpiredEntryServedStale(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	c := New(12*time.Hour, nil).WithClock(func() time.Time { return now })

	c.Put(testKey, []byte(`{"items":[]}`), 1, nil)

	now = now.Add(11 * time.Hour)
	_, fresh := c.Get(testKey)
	assert.True(t, fresh)

	now = now.Add(2 * time.Hour)
	entry, fresh := c.Get(testKey)
	require.NotNil(t, entry, "stale entries stay available")
	assert.False(t, fresh)
}

func TestPutReplacesWholeEntry(t *testing.T) {
	c := New(time.Hour, nil)

	c.Put(testKey, []byte(`{"v":1}`), 10, []string{"A", "B"})
	c.Put(testKey, []byte(`{"v":2}`), 2, []string{"C"})

	entry, _ := c.Get(testKey)
	require.NotNil(t, entry)
	assert.JSONEq(t, `{"v":2}`, string(entry.Payload))
	assert.Equal(t, 2, entry.ItemCount)
	assert.Equal(t, []string{"C"}, entry.SourcePlatforms)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	entry := &Entry{
		Key:             testKey,
		Payload:         []byte(`{"items":["x"]}`),
		ItemCount:       1,
		SourcePlatforms: []string{"SecurityWeek"},
		LastUpdated:     time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(entry))

	loaded, err := store.Load(testKey)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.JSONEq(t, `{"items":["x"]}`, string(loaded.Payload))
	assert.Equal(t, 1, loaded.ItemCount)
	assert.True(t, entry.LastUpdated.Equal(loaded.LastUpdated))
}

func TestFileStoreMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	loaded, err := store.Load(Key{Product: "nobody", Channel: "news"})
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCacheSurvivesRestartViaStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	first := New(12*time.Hour, store)
	first.Put(testKey, []byte(`{"items":[]}`), 5, []string{"G2"})

	// A fresh cache over the same directory sees the entry.
	store2, err := NewFileStore(dir)
	require.NoError(t, err)
	second := New(12*time.Hour, store2)

	entry, fresh := second.Get(testKey)
	require.NotNil(t, entry)
	assert.True(t, fresh)
	assert.Equal(t, 5, entry.ItemCount)
}
