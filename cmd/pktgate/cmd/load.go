package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/plexsphere/pktgate/internal/config"
	"github.com/plexsphere/pktgate/internal/rulefile"
	"github.com/plexsphere/pktgate/internal/rules"
)

// session is the state shared by every subcommand that needs a classifier.
type session struct {
	cfg        *config.Config
	logger     *slog.Logger
	file       *rulefile.Result
	classifier *rules.Classifier
}

// loadConfig reads the config file, falling back to defaults when it does not
// exist, and applies CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.ParseConfig(cfgFile)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if rulesPath != "" {
		cfg.Rules.Path = rulesPath
		cfg.Rules.Format = ""
	}
	if overlap != "" {
		cfg.Overlap = rules.OverlapPolicy(overlap)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads the configuration and rules file and builds the frozen
// classifier.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	file, err := rulefile.Load(cfg.Rules)
	if err != nil {
		return nil, err
	}
	c, err := rules.Build(file.Rules, cfg.Overlap)
	if err != nil {
		return nil, err
	}

	logger.Debug("classifier built",
		"component", "rules",
		"path", file.Path,
		"sha256", file.SHA256,
		"records", len(file.Rules),
		"overlap", c.OverlapPolicy(),
	)
	return &session{cfg: cfg, logger: logger, file: file, classifier: c}, nil
}

// setupLogger creates a structured logger with the given level.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func verdict(ok bool) string {
	if ok {
		return "accept"
	}
	return "deny"
}

