package logger

import (
	"errors"
	"fmt"

	"github.com/fluent/fluent-logger-golang/fluent"
)

var ErrTagPrefix = errors.New("fluent tag prefix is required")

type FluentConfig struct {
	Host      string
	Port      int
	TagPrefix string
}

// NewFluent connects lazily: a bad address surfaces on the first Post, not here.
func NewFluent(conf FluentConfig) (*fluent.Fluent, error) {
	if conf.TagPrefix == "" {
		return nil, ErrTagPrefix
	}

	//nolint:exhaustruct
	client, err := fluent.New(fluent.Config{
		FluentHost: conf.Host,
		FluentPort: conf.Port,
		TagPrefix:  conf.TagPrefix,
		Async:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create fluent client: %w", err)
	}

	return client, nil
}
