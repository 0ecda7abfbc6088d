package logger

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

func encode(t *testing.T, enc zapcore.Encoder, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	return stripANSI(buf.String())
}

// The console encoder must never silently drop a field.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "test",
		Message:    "Testing field preservation",
	}

	tests := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String(FieldEntityID, "post-1"), "entity_id=post-1"},
		{zap.String(FieldUserID, "u1"), "user_id=u1"},
		{zap.String(FieldNamespace, "reaction"), "namespace=reaction"},
		{zap.Bool(FieldUnique, true), "unique=true"},
		{zap.Int(FieldCount, 999), "count=999"},
		{zap.Int64("int64_field", 9999999), "int64_field=9999999"},
		{zap.Float64("ratio", 0.8), "ratio=0.8"},
		{zap.Strings(FieldRemoved, []string{"like", "share"}), "removed=[like share]"},
		{zap.String("field.with.dots", "x"), "field.with.dots=x"},
		{zap.Duration("took", 5*time.Second), "took=5s"},
		{zap.Error(errors.New("disk full")), "error=disk full"},
	}

	fields := make([]zapcore.Field, 0, len(tests))
	for _, tt := range tests {
		fields = append(fields, tt.field)
	}
	out := encode(t, newMinimalEncoder(), entry, fields...)

	for _, tt := range tests {
		assert.Contains(t, out, tt.mustFind)
	}
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestMinimalEncoderLayout(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.WarnLevel,
		Time:       time.Date(2024, 1, 1, 13, 4, 35, 0, time.UTC),
		LoggerName: "capability.actionable",
		Message:    "Counter drift repaired",
	}

	out := encode(t, newMinimalEncoder(), entry,
		zap.String(FieldSymbol, "⟲"),
		zap.Int(FieldCached, 7),
		zap.Int(FieldActual, 2),
	)

	assert.Equal(t, "13:04:35  WARN  c.actionable  ⟲ Counter drift repaired  actual=2 cached=7\n", out)
}

func TestMinimalEncoderKeepsContextFields(t *testing.T) {
	enc := newMinimalEncoder()
	enc.AddString(FieldComponent, "engine")

	clone := enc.Clone()
	clone.AddString(FieldRequestID, "r-1")

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "hello"}

	out := encode(t, clone, entry, zap.String(FieldType, "like"))
	assert.Contains(t, out, "component=engine")
	assert.Contains(t, out, "request_id=r-1")
	assert.Contains(t, out, "type=like")

	out = encode(t, enc, entry)
	assert.NotContains(t, out, "request_id", "clones must not leak into the parent")
}

func TestMinimalEncoderThroughLogger(t *testing.T) {
	var sink strings.Builder
	core := zapcore.NewCore(newMinimalEncoder(), zapcore.AddSync(&sink), zapcore.DebugLevel)
	log := zap.New(core).Sugar().Named("engine").With(FieldNamespace, "vote")

	log.Infow("Association created", FieldType, "voteup")

	out := stripANSI(sink.String())
	assert.Contains(t, out, "engine  Association created")
	assert.Contains(t, out, "namespace=vote type=voteup")
}

func TestSetTheme(t *testing.T) {
	t.Cleanup(func() { SetTheme(ThemeEverforest) })

	SetTheme(ThemeGruvbox)
	assert.Equal(t, ThemeGruvbox, currentTheme)

	SetTheme("solarized")
	assert.Equal(t, ThemeGruvbox, currentTheme, "unknown themes are ignored")
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "engine", abbreviateName("engine"))
	assert.Equal(t, "c.voteable", abbreviateName("capability.voteable"))
	assert.Equal(t, "a.b.c", abbreviateName("assoc.b.c"))
}
