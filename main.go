package main

import (
	"os"

	"github.com/avstrong/rentals/internal/app"
	"github.com/avstrong/rentals/internal/config"
	"github.com/avstrong/rentals/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Color: true}).LogErrorf("Failed to load config: %v", err.Error()) //nolint:exhaustruct

		return 1
	}

	l, flush, err := app.NewLogger(conf)
	if err != nil {
		logger.New(logger.Config{Color: true}).LogErrorf("Failed to init logger: %v", err.Error()) //nolint:exhaustruct

		return 1
	}
	defer flush()

	for _, w := range conf.Warnings {
		l.LogWarn("Config: %s", w)
	}

	if err = app.Run(conf, l); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		return 1
	}

	return 0
}
