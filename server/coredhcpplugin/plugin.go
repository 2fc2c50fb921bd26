// Package coredhcpplugin integrates the walled garden with the coredhcp
// server. The plugin serves the subnets from the walled garden
// configuration and invokes the enforcement callouts and the callouts of
// the external hook libraries while processing the queries.
package coredhcpplugin

import (
	"net/http"
	"os"
	"time"

	"github.com/coredhcp/coredhcp/handler"
	"github.com/coredhcp/coredhcp/logger"
	"github.com/coredhcp/coredhcp/plugins"
	"github.com/pkg/errors"
	keaconfig "isc.org/walledgarden/appcfg/kea"
	dbops "isc.org/walledgarden/database"
	"isc.org/walledgarden/engine/classifier"
	"isc.org/walledgarden/engine/enforcement"
	"isc.org/walledgarden/engine/redirect"
	"isc.org/walledgarden/hooks"
	"isc.org/walledgarden/metrics"
	"isc.org/walledgarden/reservation"
	"isc.org/walledgarden/server/hookmanager"
	gardenutil "isc.org/walledgarden/util"
)

var log = logger.GetLogger("plugins/walledgarden")

// The coredhcp plugin. It must be the last DHCPv4 plugin in the chain.
var Plugin = plugins.Plugin{
	Name:   "walledgarden",
	Setup4: setup4,
}

// Components created for the plugin.
type pluginInstance struct {
	server        *Server
	hookManager   *hookmanager.HookManager
	refresher     *reservation.Refresher
	listener      *reservation.NotificationListener
	dispatcher    *redirect.Dispatcher
	metrics       *metrics.Metrics
	metricsServer *http.Server
}

func setup4(args ...string) (handler.Handler4, error) {
	settings, err := ParseSettings(args)
	if err != nil {
		return nil, err
	}
	instance, err := newPluginInstance(settings)
	if err != nil {
		return nil, err
	}
	log.WithField("config", settings.ConfigPath).Info("Loaded walled garden plugin for DHCPv4")
	return instance.server.Handle4, nil
}

// Checks if the hook directory exists.
func isHookDirectory(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.IsDir()
}

// Creates the plugin components according to the settings.
func newPluginInstance(settings *Settings) (*pluginInstance, error) {
	config, err := keaconfig.NewFromFile(settings.ConfigPath)
	if err != nil {
		return nil, err
	}
	walledGarden := config.DHCPv4.GetWalledGarden()
	if err := walledGarden.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid walled garden configuration")
	}
	subnets, err := config.DHCPv4.GetSubnets()
	if err != nil {
		return nil, err
	}

	instance := &pluginInstance{
		metrics: metrics.NewMetrics(),
	}

	store := reservation.NewMemoryStore()
	loaders := []reservation.Loader{reservation.NewConfigLoader(config.DHCPv4)}
	if settings.DatabaseSettings != nil {
		db, err := dbops.NewPgDBConn(settings.DatabaseSettings)
		if err != nil {
			return nil, err
		}
		loaders = append(loaders, reservation.NewDatabaseLoader(db))
	}
	instance.refresher, err = reservation.NewRefresher(store, settings.RefreshInterval, instance.metrics, loaders...)
	if err != nil {
		return nil, err
	}
	if settings.DatabaseSettings != nil {
		instance.listener, err = reservation.NewNotificationListener(
			settings.DatabaseSettings.ConnectionParams(),
			reservation.DevicesChangedChannel,
			instance.refresher.Trigger,
		)
		if err != nil {
			log.WithError(err).Warn("Cannot listen to the device changes; relying on the periodic refreshes")
		}
	}

	toggler := walledGarden.GetToggler()
	if settings.Toggler != "" {
		toggler = settings.Toggler
	}
	instance.dispatcher = redirect.NewDispatcher(
		gardenutil.NewSystemCommandExecutor(),
		toggler,
		walledGarden.GetTogglerTimeout(),
		instance.metrics,
	)

	policy := classifier.NewPolicyFromConfig(walledGarden)
	instance.hookManager = hookmanager.NewHookManager()
	instance.hookManager.RegisterCalloutCarrier(enforcement.NewCarrier(
		classifier.NewClassifier(store, policy, instance.metrics),
		instance.dispatcher,
		instance.metrics,
	))
	if isHookDirectory(settings.HookDirectory) {
		err = instance.hookManager.RegisterHooksFromDirectory(
			hooks.HookProgramDHCPServer,
			settings.HookDirectory,
			settings.HooksSettings,
		)
		if err != nil {
			instance.close()
			return nil, errors.WithMessage(err, "cannot load the hooks")
		}
	}

	instance.server, err = NewServer(subnets, instance.hookManager)
	if err != nil {
		instance.close()
		return nil, err
	}

	if settings.MetricsAddress != "" {
		instance.startMetricsServer(settings.MetricsAddress)
	}
	return instance, nil
}

// Starts serving the metrics in the background.
func (p *pluginInstance) startMetricsServer(address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.metrics.GetHTTPHandler())
	p.metricsServer = &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := p.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics endpoint failed")
		}
	}()
	log.WithField("address", address).Info("Serving the metrics")
}

// Stops the background activities and releases the hooks.
func (p *pluginInstance) close() {
	if p.metricsServer != nil {
		_ = p.metricsServer.Close()
	}
	if p.listener != nil {
		p.listener.Close()
	}
	if p.refresher != nil {
		p.refresher.Shutdown()
	}
	if p.dispatcher != nil {
		p.dispatcher.Wait()
	}
	if p.hookManager != nil {
		if err := p.hookManager.Close(); err != nil {
			log.WithError(err).Warn("Problem with closing the hooks")
		}
	}
}
