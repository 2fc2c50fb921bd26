package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"isc.org/walledgarden"
	dbops "isc.org/walledgarden/database"
	"isc.org/walledgarden/keactrl"
	"isc.org/walledgarden/keasync"
	"isc.org/walledgarden/metrics"
	"isc.org/walledgarden/reservation"
	gardenutil "isc.org/walledgarden/util"
)

// Error used to indicate that Ctrl-C was pressed to terminate the agent.
type ctrlcError struct{}

// Returns ctrlcError error text.
func (e *ctrlcError) Error() string {
	return "received Ctrl-C signal"
}

// Sets the flags bound to the environment variables read from the
// environment file. The flags set explicitly are not overridden.
type contextEnvironmentSetter struct {
	context *cli.Context
}

// Sets the flag bound to the environment variable. Unknown variables are
// ignored.
func (s *contextEnvironmentSetter) Set(key, value string) error {
	for _, flag := range s.context.App.Flags {
		envFlag, ok := flag.(interface{ GetEnvVars() []string })
		if !ok || !slices.Contains(envFlag.GetEnvVars(), key) {
			continue
		}
		name := flag.Names()[0]
		if name == "" || s.context.IsSet(name) {
			return nil
		}
		return s.context.Set(name, value)
	}
	return nil
}

// Creates the Kea Control Agent client from the settings.
func newKeaClient(settings *cli.Context) *keactrl.Client {
	client := keactrl.NewClient(settings.String("kea-url"), settings.Duration("kea-timeout"))
	if settings.String("kea-user") != "" {
		client.SetBasicAuth(settings.String("kea-user"), settings.String("kea-password"))
	}
	return client
}

// Starts serving the metrics in the background.
func startMetricsServer(address string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHTTPHandler())
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics endpoint failed")
		}
	}()
	log.WithField("address", address).Info("Serving the metrics")
	return server
}

// Starts the synchronizer and waits for the termination signal.
func runAgent(settings *cli.Context) error {
	log.Printf("Starting Walled Garden Agent, version %s, build date %s", walledgarden.Version, walledgarden.BuildDate)

	databaseSettings, err := dbops.ReadSettingsFromCLI(settings)
	if err != nil {
		return errors.WithMessage(err, "invalid database settings")
	}
	db, err := dbops.NewPgDBConn(databaseSettings)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.NewMetrics()
	defer m.UnregisterAll()

	synchronizer := keasync.NewSynchronizer(
		keasync.NewDatabaseDeviceSource(db),
		newKeaClient(settings),
		settings.Duration("unregistered-threshold"),
		m,
	)
	if err := synchronizer.Start(settings.Duration("sync-interval")); err != nil {
		return err
	}
	defer synchronizer.Shutdown()

	listener, err := reservation.NewNotificationListener(
		databaseSettings.ConnectionParams(),
		reservation.DevicesChangedChannel,
		synchronizer.Trigger,
	)
	if err != nil {
		log.WithError(err).Warn("Cannot listen to the device changes; relying on the periodic synchronization")
	} else {
		defer listener.Close()
	}

	if address := settings.String("metrics-address"); address != "" {
		server := startMetricsServer(address, m)
		defer server.Close()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-c
	log.Info("Received termination signal")
	return &ctrlcError{}
}

// Prepare urfave cli app with all flags defined.
func setupApp() (*cli.App, error) {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Println(c.App.Version)
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "kea-url",
			Usage:   "The URL of the Kea Control Agent",
			Value:   "http://127.0.0.1:8000/",
			EnvVars: []string{"WALLEDGARDEN_AGENT_KEA_URL"},
		},
		&cli.StringFlag{
			Name:    "kea-user",
			Usage:   "The user name used in the Basic Auth to the Kea Control Agent",
			EnvVars: []string{"WALLEDGARDEN_AGENT_KEA_USER"},
		},
		&cli.StringFlag{
			Name:    "kea-password",
			Usage:   "The password used in the Basic Auth to the Kea Control Agent; it is recommended to provide this value using an environment variable",
			EnvVars: []string{"WALLEDGARDEN_AGENT_KEA_PASSWORD"},
		},
		&cli.DurationFlag{
			Name:    "kea-timeout",
			Usage:   "The timeout of the requests to the Kea Control Agent",
			Value:   keactrl.DefaultRequestTimeout,
			EnvVars: []string{"WALLEDGARDEN_AGENT_KEA_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "sync-interval",
			Usage:   "The interval between the synchronizations",
			Value:   60 * time.Second,
			EnvVars: []string{"WALLEDGARDEN_AGENT_SYNC_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "unregistered-threshold",
			Usage:   "The age after which the unregistered device moves to the old unregistered pool",
			Value:   keasync.DefaultNewlyUnregisteredThreshold,
			EnvVars: []string{"WALLEDGARDEN_AGENT_UNREGISTERED_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "metrics-address",
			Usage:   "The address to expose the Prometheus metrics on; empty disables the metrics endpoint",
			Value:   "0.0.0.0:9548",
			EnvVars: []string{"WALLEDGARDEN_AGENT_METRICS_ADDRESS"},
		},
		&cli.BoolFlag{
			Name:  "use-env-file",
			Usage: "Read the environment variables from the environment file",
			Value: false,
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Environment file location; applicable only if the use-env-file is provided",
			Value: "/etc/walledgarden/agent.env",
		},
		&cli.StringFlag{
			Name:    "",
			Usage:   "Logging level can be specified using env variable only. Allowed values: are DEBUG, INFO, WARN, ERROR",
			Value:   "INFO",
			EnvVars: []string{gardenutil.LogLevelEnvironmentVariable},
		},
	}
	dbFlags, err := dbops.GetCLIFlags()
	if err != nil {
		return nil, err
	}
	flags = append(flags, dbFlags...)

	app := &cli.App{
		Name:     "Walled Garden Agent",
		Usage:    "Synchronizes the device registrations with the Kea host reservations",
		Version:  walledgarden.Version,
		HelpName: "walledgarden-agent",
		Flags:    flags,
		Before: func(c *cli.Context) error {
			if c.Bool("use-env-file") {
				err := gardenutil.LoadEnvironmentFileToSetter(
					c.String("env-file"),
					// Loads environment variables into context.
					&contextEnvironmentSetter{context: c},
					// Loads environment variables into process.
					gardenutil.NewProcessEnvironmentVariableSetter(),
				)
				if err != nil {
					return errors.WithMessagef(err, "the '%s' environment file is invalid", c.String("env-file"))
				}

				// Reconfigures logging using new environment variables.
				gardenutil.SetupLogging()
			} else if c.IsSet("env-file") {
				log.Warning("The environment file is provided but it is not used because the '--use-env-file' flag is not set")
			}
			return nil
		},
		Action: runAgent,
	}
	return app, nil
}

func main() {
	gardenutil.SetupLogging()

	app, err := setupApp()
	if err != nil {
		log.Fatal(err)
	}
	err = app.Run(os.Args)
	var ctrlc *ctrlcError
	switch {
	case err == nil:
		return
	case errors.As(err, &ctrlc):
		os.Exit(130)
	default:
		log.Fatal(err)
	}
}
