package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	SetRedactPII(true)
	t.Cleanup(func() {
		SetOutput(nopWriter{})
		SetLevel(INFO)
		SetRedactPII(true)
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLog_StructuredFields(t *testing.T) {
	buf := captureLogs(t)

	Info("chunk processed", "chunk", 2, "retried", true, "elapsed", 1500*time.Millisecond, "err", errors.New("boom"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "chunk processed", entry["message"])
	assert.Equal(t, float64(2), entry["chunk"])
	assert.Equal(t, true, entry["retried"])
	assert.Equal(t, "boom", entry["err"])
	assert.Contains(t, entry, "time")
}

func TestLog_RedactsEmails(t *testing.T) {
	buf := captureLogs(t)

	Warn("operation started", "user", "john.doe@example.com", "note", "contact ab@example.com now")

	entry := decodeLine(t, buf)
	assert.Equal(t, "jo***@example.com", entry["user"])
	assert.Equal(t, "contact ***@example.com now", entry["note"])
}

func TestLog_RedactionDisabled(t *testing.T) {
	buf := captureLogs(t)
	SetRedactPII(false)

	Error("failed", "user", "john.doe@example.com")

	entry := decodeLine(t, buf)
	assert.Equal(t, "john.doe@example.com", entry["user"])
}

func TestLog_LevelFiltering(t *testing.T) {
	buf := captureLogs(t)
	SetLevel(WARN)

	Debug("hidden")
	Info("hidden")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.NotEmpty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "***", RedactToken("short"))
	assert.Equal(t, "***wxyz", RedactToken("ya29.abcdefwxyz"))
}

func TestLog_RedactsTokens(t *testing.T) {
	buf := captureLogs(t)

	Warn("upstream rejected", "access_token", "ya29.secretvalue1234", "detail", "header was Bearer ya29.abc.def")

	entry := decodeLine(t, buf)
	assert.Equal(t, "***1234", entry["access_token"])
	assert.Equal(t, "header was Bearer ***", entry["detail"])
}
