package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	impl struct {
		name  string
		level AtomicLevel
		inUTC bool

		appenders []Appender
	}

	// LogEntry embeds a zapcore Entry and slice of Fields.
	LogEntry struct {
		zapcore.Entry
		fields []zapcore.Field
	}
)

// skipToLogCaller is the number of frames between `runtime.Caller` and the user's log call:
// getCaller, newEntry, emit, the public Logger method.
const skipToLogCaller = 4

func (imp *impl) newEntry(level Level) *LogEntry {
	ret := &LogEntry{}
	ret.Time = time.Now()
	ret.Level = level.AsZap()
	ret.LoggerName = imp.name
	ret.Caller = getCaller(skipToLogCaller)
	return ret
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) Desugar() *zap.Logger {
	return imp.AsZap().Desugar()
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Level() zapcore.Level {
	return imp.GetLevel().AsZap()
}

// Sublogger returns a child logger named `<name>.<subname>`. The child starts at the parent's
// current level and writes to the same appenders.
func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Named(name string) *zap.SugaredLogger {
	return imp.AsZap().Named(name)
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) With(args ...interface{}) *zap.SugaredLogger {
	return imp.AsZap().With(args...)
}

func (imp *impl) WithOptions(opts ...zap.Option) *zap.SugaredLogger {
	return imp.AsZap().WithOptions(opts...)
}

// AsZap builds a zap logger from the default console config and tees it into every appender that
// is itself a `zapcore.Core`, such as the observer used by tests.
func (imp *impl) AsZap() *zap.SugaredLogger {
	config := NewZapLoggerConfig()
	config.Level = GlobalLogLevel
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	for _, appender := range imp.appenders {
		core, ok := appender.(zapcore.Core)
		if !ok {
			continue
		}
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}
	return ret
}

func (imp *impl) shouldLog(logLevel Level) bool {
	if GlobalLogLevel.Level() == zapcore.DebugLevel {
		return true
	}
	return logLevel >= imp.level.Get()
}

func (imp *impl) log(entry *LogEntry) {
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}

	for _, appender := range imp.appenders {
		if err := appender.Write(entry.Entry, entry.fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// emit builds and writes an entry when level is enabled or force is set. fill sets the message
// and fields.
func (imp *impl) emit(level Level, force bool, fill func(*LogEntry)) {
	if !force && !imp.shouldLog(level) {
		return
	}
	entry := imp.newEntry(level)
	fill(entry)
	imp.log(entry)
}

// withPairs sets the message and turns keysAndValues into fields: even elements are keys, each
// followed by its value. Values are json serialized, so only exported struct fields show up.
func (e *LogEntry) withPairs(msg string, keysAndValues []interface{}) {
	e.Message = msg
	e.fields = make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for keyIdx := 0; keyIdx < len(keysAndValues); keyIdx += 2 {
		var keyStr string
		if stringer, ok := keysAndValues[keyIdx].(fmt.Stringer); ok {
			keyStr = stringer.String()
		} else {
			keyStr = fmt.Sprintf("%v", keysAndValues[keyIdx])
		}

		if keyIdx+1 < len(keysAndValues) {
			e.fields = append(e.fields, zap.Any(keyStr, keysAndValues[keyIdx+1]))
		} else {
			e.fields = append(e.fields, zap.Any(keyStr, errors.New("unpaired log key")))
		}
	}
}

func (imp *impl) Debug(args ...interface{}) {
	imp.emit(DEBUG, false, func(e *LogEntry) { e.Message = fmt.Sprint(args...) })
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.emit(DEBUG, false, func(e *LogEntry) { e.Message = fmt.Sprintf(template, args...) })
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.emit(DEBUG, false, func(e *LogEntry) { e.withPairs(msg, keysAndValues) })
}

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) {
	imp.emit(DEBUG, IsDebugMode(ctx), func(e *LogEntry) { e.Message = fmt.Sprint(args...) })
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.emit(DEBUG, IsDebugMode(ctx), func(e *LogEntry) { e.Message = fmt.Sprintf(template, args...) })
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.emit(DEBUG, IsDebugMode(ctx), func(e *LogEntry) { e.withPairs(msg, keysAndValues) })
}

func (imp *impl) Info(args ...interface{}) {
	imp.emit(INFO, false, func(e *LogEntry) { e.Message = fmt.Sprint(args...) })
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.emit(INFO, false, func(e *LogEntry) { e.Message = fmt.Sprintf(template, args...) })
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.emit(INFO, false, func(e *LogEntry) { e.withPairs(msg, keysAndValues) })
}

func (imp *impl) Warn(args ...interface{}) {
	imp.emit(WARN, false, func(e *LogEntry) { e.Message = fmt.Sprint(args...) })
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.emit(WARN, false, func(e *LogEntry) { e.Message = fmt.Sprintf(template, args...) })
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.emit(WARN, false, func(e *LogEntry) { e.withPairs(msg, keysAndValues) })
}

func (imp *impl) Error(args ...interface{}) {
	imp.emit(ERROR, false, func(e *LogEntry) { e.Message = fmt.Sprint(args...) })
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.emit(ERROR, false, func(e *LogEntry) { e.Message = fmt.Sprintf(template, args...) })
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.emit(ERROR, false, func(e *LogEntry) { e.withPairs(msg, keysAndValues) })
}

// Fatal* log as errors, then exit the process.
func (imp *impl) Fatal(args ...interface{}) {
	imp.emit(ERROR, true, func(e *LogEntry) { e.Message = fmt.Sprint(args...) })
	os.Exit(1)
}

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.emit(ERROR, true, func(e *LogEntry) { e.Message = fmt.Sprintf(template, args...) })
	os.Exit(1)
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.emit(ERROR, true, func(e *LogEntry) { e.withPairs(msg, keysAndValues) })
	os.Exit(1)
}

// getCaller returns the file and line of the frame `skip` levels above it, e.g.
// "logging/impl_test.go:36".
func getCaller(skip int) zapcore.EntryCaller {
	var ok bool
	var entryCaller zapcore.EntryCaller
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skip)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true

	if runtimeFunc := runtime.FuncForPC(entryCaller.PC); runtimeFunc != nil {
		entryCaller.Function = runtimeFunc.Name()
	}
	return entryCaller
}
