package obslog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Named("fen").Warn("fen_decode_fallback", zap.String("fen", "x"))
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fen", entries[0].LoggerName)
	assert.Equal(t, "fen_decode_fallback", entries[0].Message)
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cw.log")
	require.NoError(t, Init(Options{Level: "debug", Format: "json", ToFile: true, FilePath: path}))
	t.Cleanup(func() { Set(nil) })

	L().Info("hello_file")
	Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "hello_file")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}
