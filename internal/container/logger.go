package container

import (
	"github.com/natefinch/lumberjack"
	"github.com/samber/do"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerPackage provides the *zap.Logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		return NewLogger(do.MustInvoke[*Options](i))
	})
}

// NewLogger builds a console or JSON logger at the configured level. With a
// log file set, entries are also written as JSON to a size-rotated file.
func NewLogger(options *Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(options.LogLevel)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if options.LogFormat == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	if options.LogFile == "" {
		return logger, nil
	}

	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   options.LogFile,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), file, level)

	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
