package cmd

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "subsample"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	countFlagName    = "count"
	taskFlagName     = "task"
	outputFlagName   = "output"
	parallelFlagName = "parallel"
	seedFlagName     = "seed"
	skipDepsFlagName = "skip-deps-check"
	verboseFlagName  = "verbose"

	remoteBaseKey       = "dataset.remote_base"
	extensionsKey       = "dataset.extensions"
	workdirKey          = "dataset.workdir"
	countConfigKey      = "fetch.count"
	parallelConfigKey   = "fetch.parallel"
	pointerThresholdKey = "fetch.pointer_threshold"
	successThresholdKey = "fetch.success_threshold"

	defaultRemoteBase       = "https://github.com/OpenNeuro"
	defaultWorkdir          = "."
	defaultSubjectCount     = 75
	defaultParallel         = 4
	defaultPointerThreshold = 1024
	defaultSuccessThreshold = 100000

	envPrefix = "SUBSAMPLE"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".subsample.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

// defaultExtensions are the recording formats the task filter recognizes.
var defaultExtensions = []string{".set", ".edf", ".bdf", ".vhdr", ".eeg", ".fif"}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(remoteBaseKey, defaultRemoteBase)
	viper.SetDefault(extensionsKey, defaultExtensions)
	viper.SetDefault(workdirKey, defaultWorkdir)
	viper.SetDefault(countConfigKey, defaultSubjectCount)
	viper.SetDefault(parallelConfigKey, defaultParallel)
	viper.SetDefault(pointerThresholdKey, defaultPointerThreshold)
	viper.SetDefault(successThresholdKey, defaultSuccessThreshold)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger to write to a rotating
// file, teed into the given extra handlers (the per-run event log).
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(verbose bool, extra ...slog.Handler) {
	logPath := viper.GetString(logFilenameKey)
	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	fileHandler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	handlers := append([]slog.Handler{fileHandler}, extra...)

	globalLogger = slog.New(fanoutHandler(handlers))
	slog.SetDefault(globalLogger)
}

// fanoutHandler forwards every record to all wrapped handlers.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, handler := range h {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make(fanoutHandler, len(h))
	for i, handler := range h {
		wrapped[i] = handler.WithAttrs(attrs)
	}

	return wrapped
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	wrapped := make(fanoutHandler, len(h))
	for i, handler := range h {
		wrapped[i] = handler.WithGroup(name)
	}

	return wrapped
}
