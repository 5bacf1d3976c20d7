package gtfs

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kcole93/metroflow-api-sub000/internal/geo"
	"github.com/kcole93/metroflow-api-sub000/internal/logging"
)

// Manager owns the Static Index. The index is built wholesale and published
// by an atomic pointer swap; readers capture the pointer once per query and
// never see a partial index. A background task rebuilds it on a schedule.
type Manager struct {
	config       Config
	location     *time.Location
	geoIndex     *geo.Index
	index        atomic.Pointer[StaticIndex]
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// InitManager loads the static corpus once. Failure here is fatal to the
// caller: the process must not start without an index.
func InitManager(config Config) (*Manager, error) {
	geoIndex, err := geo.NewIndex()
	if err != nil {
		return nil, fmt.Errorf("building geo index: %w", err)
	}

	manager := &Manager{
		config:       config,
		location:     config.Location(),
		geoIndex:     geoIndex,
		shutdownChan: make(chan struct{}),
	}

	index, err := LoadStaticIndex(config, geoIndex)
	if err != nil {
		return nil, fmt.Errorf("loading static data: %w", err)
	}
	manager.index.Store(index)

	if config.RefreshInterval > 0 {
		manager.wg.Add(1)
		go manager.refreshStaticPeriodically()
	}

	return manager, nil
}

// Index returns the current Static Index. The returned value is immutable;
// callers hold it for the duration of one query.
func (manager *Manager) Index() *StaticIndex {
	return manager.index.Load()
}

// Location returns the operational time zone.
func (manager *Manager) Location() *time.Location {
	return manager.location
}

// Config returns the manager's configuration.
func (manager *Manager) Config() Config {
	return manager.config
}

// Shutdown stops the background refresh and waits for it to exit.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
	})
}

func (manager *Manager) refreshStaticPeriodically() {
	defer manager.wg.Done()

	logger := slog.Default().With(slog.String("component", "static_refresher"))

	ticker := time.NewTicker(manager.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.LogOperation(logger, "refreshing_static_data")
			index, err := LoadStaticIndex(manager.config, manager.geoIndex)
			if err != nil {
				// The previous index stays published on failure.
				logging.LogError(logger, "static data refresh failed", err)
				continue
			}
			manager.index.Store(index)
			logging.LogOperation(logger, "static_data_refreshed",
				slog.Int("stops", len(index.Stops)),
				slog.Int("trips", len(index.Trips)))
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_static_refresh")
			return
		}
	}
}
