package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(tool, outcome string) Entry {
	return Entry{
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		RequestID: "req-1",
		UserID:    "u@example.com",
		Tool:      tool,
		Outcome:   outcome,
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	e := testEntry("check_account_balance", "allowed")
	e.Detail = "some detail, with comma"

	got, err := UnmarshalEntry(MarshalEntry(e))
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestUnmarshalEntry_BadRecord(t *testing.T) {
	_, err := UnmarshalEntry([]string{"too", "few"})
	assert.Error(t, err)

	_, err = UnmarshalEntry([]string{"not-a-time", "r", "u", "t", "o", "d"})
	assert.Error(t, err)
}

func TestLogRecordAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.csv")
	log := NewLog(path)

	require.NoError(t, log.Record(testEntry("verify_identity", "allowed")))
	require.NoError(t, log.Record(testEntry("check_account_balance", "denied")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), Header))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "verify_identity", entries[0].Tool)
	assert.Equal(t, "denied", entries[1].Outcome)
}

func TestRead_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	entries, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
