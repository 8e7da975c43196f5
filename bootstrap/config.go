package bootstrap

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"idsrs/config"
)

var logLevels = map[string]zapcore.Level{
	"error": zapcore.ErrorLevel,
	"warn":  zapcore.WarnLevel,
	"info":  zapcore.InfoLevel,
	"debug": zapcore.DebugLevel,
	"trace": zapcore.DebugLevel, // zap has no trace level; trace maps to its most verbose level
}

// InitLogger builds a colored console zap logger at the level named by
// cfg.Logging.Level (already resolved against IDS_RS_LOG_LEVEL by
// config.Load).
func InitLogger(level string) (*zap.Logger, *zap.SugaredLogger) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	zapLevel, ok := logLevels[level]
	if !ok {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zapLevel,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar()
}

// InitConfig loads the configuration document at path, logging a
// one-line summary of the resolved settings.
func InitConfig(path string, sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config %s: %v\n", path, err)
		return nil, err
	}
	sugar.Infow("config loaded",
		"path", path,
		"parser", cfg.Network.Parser,
		"listen", fmt.Sprintf("%s:%d", cfg.Network.ListenAddress, cfg.Network.ListenPort),
		"siem_enabled", cfg.Alerting.SIEM.Enabled,
		"email_enabled", cfg.Alerting.Email.Enabled)
	return cfg, nil
}
