package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// palette is one color theme for console output.
type palette struct {
	time      string
	component string
	key       string
	id        string
	number    string
	symbol    string
	fg        string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

// Themes accepted by SetTheme.
const (
	ThemeEverforest = "everforest"
	ThemeGruvbox    = "gruvbox"
)

var palettes = map[string]palette{
	ThemeEverforest: {
		time:      "\x1b[38;5;107m", // mid forest green
		component: "\x1b[38;5;208m", // autumn orange
		key:       "\x1b[38;5;65m",  // deep green
		id:        "\x1b[38;5;109m", // blue-green
		number:    "\x1b[38;5;108m", // leaf green
		symbol:    "\x1b[38;5;108m",
		fg:        "\x1b[38;5;223m", // soft beige
		warn:      "\x1b[38;5;179m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;52m",
	},
	ThemeGruvbox: {
		time:      "\x1b[38;5;108m", // muted aqua
		component: "\x1b[38;5;214m", // soft yellow
		key:       "\x1b[38;5;246m", // grey
		id:        "\x1b[38;5;109m", // soft blue
		number:    "\x1b[38;5;175m", // muted purple
		symbol:    "\x1b[38;5;142m", // muted green
		fg:        "\x1b[38;5;223m", // cream
		warn:      "\x1b[38;5;214m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;88m",
	},
}

var currentTheme = ThemeEverforest

// SetTheme selects the console color theme. Unknown names are ignored.
func SetTheme(theme string) {
	if _, ok := palettes[theme]; ok {
		currentTheme = theme
	}
}

func colors() palette {
	return palettes[currentTheme]
}

// idKeys render in the id color.
var idKeys = map[string]bool{
	FieldEntityID:    true,
	FieldUserID:      true,
	FieldSource:      true,
	FieldDestination: true,
	FieldAssocID:     true,
}

// minimalEncoder is a compact console encoder:
//
//	13:04:35  WARN  c.actionable  ⟲ Counter drift repaired  actual=2 cached=7 entity_id=p1 type=like
//
// The symbol field becomes the message prefix. Every other field is printed
// as key=value in key order; only errorVerbose is left to the JSON output.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := newMinimalEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	all := enc.Clone().(*minimalEncoder)
	for _, f := range fields {
		f.AddTo(all.MapObjectEncoder)
	}
	c := colors()

	final := bufferPool.Get()

	final.AppendString(c.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	if lvl := levelColorString(ent.Level, c); lvl != "" {
		final.AppendString("  ")
		final.AppendString(lvl)
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(c.component)
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	if symbol, ok := all.Fields[FieldSymbol]; ok {
		delete(all.Fields, FieldSymbol)
		final.AppendString(c.symbol)
		final.AppendString(fmt.Sprint(symbol))
		final.AppendString(colorReset)
		final.AppendString(" ")
	}
	final.AppendString(c.fg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	delete(all.Fields, "errorVerbose")
	if len(all.Fields) > 0 {
		final.AppendString("  ")
		final.AppendString(renderFields(all.Fields, c))
	}

	final.AppendString("\n")
	return final, nil
}

var bufferPool = buffer.NewPool()

// levelColorString returns bold + colored + background for WARN and above.
func levelColorString(level zapcore.Level, c palette) string {
	switch {
	case level == zapcore.WarnLevel:
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	case level >= zapcore.ErrorLevel:
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	case level == zapcore.DebugLevel:
		return c.key + "DEBUG" + colorReset
	default:
		return ""
	}
}

// abbreviateName shortens component names: engine -> engine, capability.voteable -> c.voteable
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

func renderFields(fields map[string]interface{}, c palette) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		color := c.fg
		switch {
		case idKeys[k]:
			color = c.id
		case isNumber(v):
			color = c.number
		}
		parts = append(parts, c.key+k+"="+colorReset+color+fmt.Sprint(v)+colorReset)
	}
	return strings.Join(parts, " ")
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
