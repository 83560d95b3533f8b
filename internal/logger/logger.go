// Package logger provides the diagnostic log. It stays quiet below error
// level unless JA_LOG asks for more, so it never competes with the status
// line.
package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// EnvVar selects levels: "debug", "warn,supervisor=debug", "progress" or "off".
const EnvVar = "JA_LOG"

// offLevel is above every level zap emits.
const offLevel = zapcore.FatalLevel + 1

// New returns a logger writing to w and filtered by spec.
func New(spec string, w io.Writer) *zap.SugaredLogger {
	me := newModuleEncoder(zap.NewDevelopmentEncoderConfig(), spec)
	// The core passes everything; moduleEncoder drops what spec filters out.
	core := zapcore.NewCore(me, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core, zap.AddCaller()).Sugar()
}

// FromEnv returns a logger on stderr configured from JA_LOG.
func FromEnv() *zap.SugaredLogger {
	return New(os.Getenv(EnvVar), os.Stderr)
}

func parseLevel(str string) (zapcore.Level, bool) {
	if str == "off" {
		return offLevel, true
	}
	for _, lvl := range []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
		zapcore.PanicLevel,
		zapcore.FatalLevel} {
		if str == lvl.String() {
			return lvl, true
		}
	}
	return 0, false
}

// parseSpec reads "error,supervisor=debug". Malformed entries are ignored.
func parseSpec(spec string) (zapcore.Level, map[string]zapcore.Level) {
	level := zapcore.ErrorLevel
	modules := map[string]zapcore.Level{}
	for _, match := range strings.Split(strings.ToLower(spec), ",") {
		match = strings.TrimSpace(match)
		if match == "" {
			continue
		}
		lvl, found := parseLevel(match)
		switch {
		case found:
			level = lvl
		case !strings.Contains(match, "="): // a bare module name
			modules[match] = zapcore.DebugLevel
		default:
			module, lvlString, _ := strings.Cut(match, "=")
			if lvl, found := parseLevel(lvlString); found && module != "" {
				modules[module] = lvl
			}
		}
	}
	return level, modules
}

type moduleEncoder struct {
	zapcore.Encoder
	level   zapcore.Level
	modules map[string]zapcore.Level
}

func newModuleEncoder(cfg zapcore.EncoderConfig, spec string) moduleEncoder {
	level, modules := parseSpec(spec)
	return moduleEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
		level:   level,
		modules: modules,
	}
}

func (me moduleEncoder) Clone() zapcore.Encoder {
	return moduleEncoder{Encoder: me.Encoder.Clone(), level: me.level, modules: me.modules}
}

// effective returns the level for the package that logged entry.
func (me moduleEncoder) effective(entry zapcore.Entry) zapcore.Level {
	if !entry.Caller.Defined {
		return me.level
	}
	path := entry.Caller.TrimmedPath()
	if idx := strings.IndexRune(path, '/'); idx > 0 {
		if lvl, found := me.modules[path[:idx]]; found {
			return lvl
		}
	}
	return me.level
}

func (me moduleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line, err := me.Encoder.EncodeEntry(entry, fields)
	if err == nil && entry.Level < me.effective(entry) {
		line.Reset()
	}
	return line, err
}
