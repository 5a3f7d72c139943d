package importlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamba-dev/shamba/internal/reconcile"
)

var (
	testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	testWeek = time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
)

func testEntry() Entry {
	return Entry{
		Timestamp:   testTime,
		File:        "week-03.xlsx",
		WeekEnding:  testWeek,
		Updated:     3,
		ZeroEntries: 2,
		Unmatched:   []string{"Unknown Field", "Spare"},
		Status:      StatusOK,
		CommitHash:  "abc1234",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	data, err := os.ReadFile(filepath.Join(dir, File))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.File = "week-04.csv"
	e2.Unmatched = nil
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "week-03.xlsx", entries[0].File)
	assert.Equal(t, "week-04.csv", entries[1].File)
	assert.Nil(t, entries[1].Unmatched)

	data, err := os.ReadFile(filepath.Join(dir, File))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	good := MarshalEntry(testEntry())

	_, err := UnmarshalEntry(good[:3])
	require.Error(t, err)

	bad := append([]string(nil), good...)
	bad[colTimestamp] = "yesterday"
	_, err = UnmarshalEntry(bad)
	require.Error(t, err)

	bad = append([]string(nil), good...)
	bad[colUpdated] = "three"
	_, err = UnmarshalEntry(bad)
	require.Error(t, err)
}

func TestFromResult(t *testing.T) {
	res := reconcile.Result{UpdatedCount: 3, ZeroEntryCount: 2, UnmatchedLabels: []string{"Unknown Field"}}

	ok := FromResult("a.csv", testWeek, res, nil)
	assert.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, 3, ok.Updated)
	assert.Equal(t, []string{"Unknown Field"}, ok.Unmatched)

	partial := FromResult("a.csv", testWeek, reconcile.Result{UpdatedCount: 1}, errors.New("insert failed"))
	assert.Equal(t, StatusPartial, partial.Status)

	failed := FromResult("a.csv", testWeek, reconcile.Result{}, errors.New("insert failed"))
	assert.Equal(t, StatusFailed, failed.Status)
}
