package logger

import "go.uber.org/zap"

type ZapLogger struct {
	log *zap.SugaredLogger
}

var zapLogger *ZapLogger

// Setup builds the process-wide logger. "production" selects zap's JSON
// production config, anything else the human-readable development one.
// The caller skip accounts for the package-level wrappers.
func Setup(env string) error {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	l, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return err
	}
	zapLogger = &ZapLogger{log: l.Sugar()}
	return nil
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

func (l *ZapLogger) Info(msg string, values ...any) {
	l.log.Infow(msg, values...)
}

func (l *ZapLogger) Warn(msg string, values ...any) {
	l.log.Warnw(msg, values...)
}

func (l *ZapLogger) Error(msg string, values ...any) {
	l.log.Errorw(msg, values...)
}

func (l *ZapLogger) Debug(msg string, values ...any) {
	l.log.Debugw(msg, values...)
}

func (l *ZapLogger) Panic(msg string, values ...any) {
	l.log.Panicw(msg, values...)
}

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

// Printf lets the logger double as fasthttp's Logger.
func (l *ZapLogger) Printf(format string, args ...any) {
	l.log.Infof(format, args...)
}

func (l *ZapLogger) Sync() {
	_ = l.log.Sync()
}
