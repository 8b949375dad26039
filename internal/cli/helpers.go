package cli

import (
	"github.com/faceaudit/faceaudit/internal/api"
	"github.com/faceaudit/faceaudit/internal/config"
	"github.com/faceaudit/faceaudit/internal/constants"
	"github.com/faceaudit/faceaudit/internal/events"
	"github.com/faceaudit/faceaudit/internal/notify"
	"github.com/faceaudit/faceaudit/internal/session"
	"github.com/faceaudit/faceaudit/internal/track"
)

// loadConfig loads the config file and applies the --server-url override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	return cfg, nil
}

// newAPIClient builds the server client from the effective config.
func newAPIClient(cfg *config.Config) (*api.Client, error) {
	return api.NewClient(cfg, GetLogger())
}

// tracker bundles the lifecycle pieces a command needs.
type tracker struct {
	cfg        *config.Config
	client     *api.Client
	store      *session.Store
	poller     *track.Poller
	bus        *events.EventBus
	notifier   *notify.Notifier
	controller *track.Controller
}

// newTracker wires the controller, store, poller, event bus, and notifier.
func newTracker() (*tracker, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	client, err := newAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	log := GetLogger()
	store := session.NewStore(session.DefaultSessionFilePath())
	poller := track.NewPoller(client, constants.StatusPollInterval, log)
	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	notifier := notify.NewNotifier(cfg.Notifications.Enabled, log)
	controller := track.NewController(client, store, poller, bus, notifier, log)

	return &tracker{
		cfg:        cfg,
		client:     client,
		store:      store,
		poller:     poller,
		bus:        bus,
		notifier:   notifier,
		controller: controller,
	}, nil
}

// Close releases the tracker's resources.
func (t *tracker) Close() {
	t.poller.Stop()
	t.bus.Close()
}
