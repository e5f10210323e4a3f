package app

import (
	"fmt"

	"github.com/avstrong/rentals/internal/config"
	"github.com/avstrong/rentals/internal/logger"
)

// NewLogger builds the process logger. When fluent bit is enabled every record
// at or above its level is also shipped there; the returned func flushes it.
func NewLogger(conf *config.Config) (*logger.Logger, func(), error) {
	//nolint:exhaustruct
	logConf := logger.Config{
		Level: logger.ParseLevel(conf.Log.Level),
		JSON:  conf.Log.JSON,
		Color: conf.Log.Color,
	}

	if !conf.FluentBit.Enabled {
		return logger.New(logConf), func() {}, nil
	}

	client, err := logger.NewFluent(logger.FluentConfig{
		Host:      conf.FluentBit.Host,
		Port:      conf.FluentBit.Port,
		TagPrefix: conf.AppName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init fluent bit: %w", err)
	}

	logConf.Sink = client
	logConf.SinkLevel = logger.ParseLevel(conf.FluentBit.Level)

	l := logger.New(logConf)

	return l, func() {
		if err := client.Close(); err != nil {
			l.LogWarn("Failed to flush fluent bit client: %v", err.Error())
		}
	}, nil
}
