package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndRead(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("run-1_timetable.json", []byte(`{"CSE-A":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "run-1_timetable.json", name)

	data, err := store.Read(name)
	require.NoError(t, err)
	assert.JSONEq(t, `{"CSE-A":[]}`, string(data))

	info, err := store.Stat(name)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), info.Size)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()
	streamed, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, data, streamed)
}

func TestLocalStorageSaveStream(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("a.csv", strings.NewReader("Day\nMON\n"))
	require.NoError(t, err)

	data, err := store.Read("a.csv")
	require.NoError(t, err)
	assert.Equal(t, "Day\nMON\n", string(data))
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "a/../../b", "/etc/passwd", `..\x`, "."} {
		_, err := store.Read(name)
		assert.ErrorIs(t, err, ErrInvalidPath, name)
	}
}

func TestLocalStorageListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("run-a_overall_schedule.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("run-b_overall_schedule.csv", []byte("b"))
	require.NoError(t, err)
	_, err = store.Save("latest.json", []byte("{}"))
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "run-a_overall_schedule.csv"), old, old))

	files, err := store.List("run-")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "run-b_overall_schedule.csv", files[0].Name)
	assert.Equal(t, "run-a_overall_schedule.csv", files[1].Name)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	for _, name := range []string{"old.csv", "fresh.csv", "latest.json"} {
		_, err := store.Save(name, []byte("x"))
		require.NoError(t, err)
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "latest.json"), old, old))

	deleted, err := store.CleanupOlderThan(24*time.Hour, "latest.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)

	_, err = store.Stat("latest.json")
	assert.NoError(t, err)
	require.NoError(t, store.Delete("fresh.csv"))
	require.NoError(t, store.Delete("fresh.csv"))
}
