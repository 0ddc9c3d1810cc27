package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)
	defer InitWithWriter(&buf, "INFO", "text", false)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)
	defer InitWithWriter(&buf, "INFO", "text", false)

	Info("upload accepted", KeyMediaID, "abc-123", KeySize, 42)

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "upload accepted", record["msg"])
	assert.Equal(t, "abc-123", record[KeyMediaID])
	assert.Equal(t, float64(42), record[KeySize])
}

func TestContextFieldsPrepended(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	lc := NewLogContext("10.0.0.7").WithUser("user-1").WithMedia("media-9")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "preview stored")

	out := buf.String()
	assert.Contains(t, out, "user_id=user-1")
	assert.Contains(t, out, "media_id=media-9")
	assert.Contains(t, out, "client_ip=10.0.0.7")
}

func TestFromContextMissing(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(nil))
}

func TestInvalidLevelIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	SetLevel("VERBOSE")
	Info("still info")
	assert.Contains(t, buf.String(), "still info")
}
