package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	kv := sanitizeKVs([]interface{}{"key", "1MA017", "api_key", "abc", "credentials_file", "/tmp/x.json"})
	assert.Equal(t, []interface{}{"key", "1MA017", "api_key", "[REDACTED]", "credentials_file", "[REDACTED]"}, kv)
}

func TestSanitizeOddLength(t *testing.T) {
	kv := sanitizeKVs([]interface{}{"url", "http://x", "dangling"})
	assert.Equal(t, []interface{}{"url", "http://x", "dangling"}, kv)
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("key", "ALGI").Warn("embedding failed", "error", "boom")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "ALGI", fields["key"])
		assert.Equal(t, "boom", fields["error"])
		assert.Equal(t, "embedding failed", entries[0].Message)
	}
}
