package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/rental"
)

var ErrInterval = errors.New("refresh interval must be positive")

type source interface {
	Load(ctx context.Context) (*rental.Snapshot, error)
}

type storage interface {
	Replace(ctx context.Context, snap *rental.Snapshot) (int64, error)
}

// Refresher reloads the catalog from its source and publishes it. Reloads
// are serialized; a failed reload keeps the previous catalog serving.
type Refresher struct {
	mu      sync.Mutex
	l       *logger.Logger
	source  source
	storage storage
}

func New(l *logger.Logger, source source, storage storage) *Refresher {
	//nolint:exhaustruct
	return &Refresher{
		l:       l,
		source:  source,
		storage: storage,
	}
}

func (r *Refresher) Reload(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	snap, err := r.source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	version, err := r.storage.Replace(ctx, snap)
	if err != nil {
		return 0, fmt.Errorf("replace snapshot: %w", err)
	}

	r.l.LogInfo("Catalog reloaded as version %d in %s", version, time.Since(start))

	return version, nil
}

// Run reloads every interval until ctx is done. Failures are logged and the
// loop carries on.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Reload(ctx); err != nil && ctx.Err() == nil {
				r.l.LogErrorf("Periodic catalog reload failed: %v", err.Error())
			}
		}
	}
}
