package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"isc.org/walledgarden"
	keaconfig "isc.org/walledgarden/appcfg/kea"
	dbops "isc.org/walledgarden/database"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/engine/classifier"
	"isc.org/walledgarden/engine/redirect"
	"isc.org/walledgarden/hooksutil"
	"isc.org/walledgarden/reservation"
	gardenutil "isc.org/walledgarden/util"
)

// Maximum duration of loading the reservations.
const loadTimeout = 30 * time.Second

// Builds the reservation snapshot from the configuration and optionally
// from the database.
func loadSnapshot(settings *cli.Context, config *keaconfig.DHCPv4Config) (*reservation.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	builder := reservation.NewSnapshotBuilder()
	loaders := []reservation.Loader{reservation.NewConfigLoader(config)}
	if settings.Bool("use-database") {
		databaseSettings, err := dbops.ReadSettingsFromCLI(settings)
		if err != nil {
			return nil, errors.WithMessage(err, "invalid database settings")
		}
		db, err := dbops.NewPgDBConn(databaseSettings)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		loaders = append(loaders, reservation.NewDatabaseLoader(db))
	}
	for _, loader := range loaders {
		if err := loader.Load(ctx, builder); err != nil {
			return nil, errors.WithMessagef(err, "cannot load reservations from the %s", loader.GetName())
		}
	}
	return builder.Build(gardenutil.UTCNow()), nil
}

// Execute classify command. It prints the decision the DHCP server would
// make for the device.
func runClassify(settings *cli.Context) error {
	hwAddress, err := dhcpmodel.ParseHWAddress(settings.String("mac"))
	if err != nil {
		return err
	}
	var address net.IP
	if settings.String("address") != "" {
		address = net.ParseIP(settings.String("address"))
		if address == nil {
			return errors.Errorf("invalid IP address: %s", settings.String("address"))
		}
	}

	config, err := keaconfig.NewFromFile(settings.Path("config"))
	if err != nil {
		return err
	}
	walledGarden := config.DHCPv4.GetWalledGarden()
	if err := walledGarden.Validate(); err != nil {
		return errors.WithMessage(err, "invalid walled garden configuration")
	}
	subnets, err := config.DHCPv4.GetSubnets()
	if err != nil {
		return err
	}
	snapshot, err := loadSnapshot(settings, config.DHCPv4)
	if err != nil {
		return err
	}

	c := classifier.NewClassifier(
		reservation.NewMemoryStoreWithSnapshot(snapshot),
		classifier.NewPolicyFromConfig(walledGarden),
		nil,
	)
	decision := c.Classify(hwAddress.Bytes(), subnets)

	out := settings.App.Writer
	fmt.Fprintf(out, "Policy:  %s\n", c.GetPolicy())
	fmt.Fprintf(out, "Device:  %s\n", hwAddress)
	fmt.Fprintf(out, "Tier:    %s\n", decision.Tier)
	if decision.HasOverride() {
		fmt.Fprintf(out, "Subnet:  %s\n", decision.Subnet)
	} else {
		fmt.Fprintln(out, "Subnet:  none, the server choice stands")
	}
	fmt.Fprintf(out, "Reason:  %s\n", decision.Reason)
	if action, ok := redirect.ActionForTier(decision.Tier); ok {
		fmt.Fprintf(out, "Toggler: %s\n", action)
	}
	if address != nil {
		fmt.Fprintf(out, "Address: %s %s\n", address, decision.EvaluateAddress(address))
	}
	return nil
}

// Execute toggle command. It runs the DNS-redirection toggler once and
// waits for its completion.
func runToggle(settings *cli.Context) error {
	if settings.NArg() != 2 {
		return errors.New("expected the action (hijack or unhijack) and the IPv4 address")
	}
	action := redirect.Action(settings.Args().Get(0))
	if action != redirect.ActionHijack && action != redirect.ActionUnhijack {
		return errors.Errorf("unsupported action: %s", action)
	}
	address := net.ParseIP(settings.Args().Get(1))
	if address == nil || address.To4() == nil {
		return errors.Errorf("invalid IPv4 address: %s", settings.Args().Get(1))
	}

	dispatcher := redirect.NewDispatcher(
		gardenutil.NewSystemCommandExecutor(),
		settings.String("toggler"),
		settings.Duration("timeout"),
		nil,
	)
	ctx, cancel := context.WithTimeout(context.Background(), settings.Duration("timeout"))
	defer cancel()
	if err := dispatcher.Run(ctx, action, address); err != nil {
		return err
	}
	fmt.Fprintf(settings.App.Writer, "%s %s: done\n", action, address)
	return nil
}

// Inspect the hook file.
func inspectHookFile(path string, library *hooksutil.LibraryManager, err error) {
	if err != nil {
		log.
			WithField("file", path).
			Error(err)
		return
	}

	hookProgram, hookVersion, err := library.GetVersion()
	if err != nil {
		log.
			WithField("file", path).
			Error(err)
		return
	}

	log.
		WithField("file", path).
		Infof("Hook is compatible with %s@%s", hookProgram, hookVersion)
}

// Execute inspect hook command.
func runHookInspect(settings *cli.Context) error {
	hookPath := settings.String("path")
	fileInfo, err := os.Stat(hookPath)
	if err != nil {
		return errors.Wrapf(err, "cannot stat the hook path: '%s'", hookPath)
	}

	mode := fileInfo.Mode()
	switch {
	case mode.IsDir():
		return hooksutil.NewHookWalker().WalkPluginLibraries(hookPath, func(path string, library *hooksutil.LibraryManager, err error) bool {
			inspectHookFile(path, library, err)
			return true
		})
	case mode.IsRegular():
		library, err := hooksutil.NewLibraryManager(hookPath)
		inspectHookFile(hookPath, library, err)
		return nil
	default:
		return errors.Errorf("unsupported file mode: '%s'", mode.String())
	}
}

// Prepare urfave cli app with all flags and commands defined.
func setupApp() (*cli.App, error) {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Println(c.App.Version)
	}

	dbFlags, err := dbops.GetCLIFlags()
	if err != nil {
		return nil, err
	}
	classifyFlags := append([]cli.Flag{
		&cli.PathFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "The path to the walled garden configuration file",
			Value:   "/etc/walledgarden/walledgarden.json",
			EnvVars: []string{"WALLEDGARDEN_TOOL_CONFIG"},
		},
		&cli.StringFlag{
			Name:     "mac",
			Aliases:  []string{"m"},
			Usage:    "The hardware address of the device",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "address",
			Aliases: []string{"a"},
			Usage:   "The address the device asks for; the tool prints if it is acceptable",
		},
		&cli.BoolFlag{
			Name:    "use-database",
			Usage:   "Include the registered devices from the PostgreSQL database",
			EnvVars: []string{"WALLEDGARDEN_TOOL_USE_DATABASE"},
		},
	}, dbFlags...)

	toggleFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "toggler",
			Aliases: []string{"t"},
			Usage:   "The path to the DNS-redirection toggler",
			Value:   keaconfig.DefaultToggler,
			EnvVars: []string{"WALLEDGARDEN_TOOL_TOGGLER"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "The timeout of the toggler execution",
			Value:   redirect.DefaultTimeout,
			EnvVars: []string{"WALLEDGARDEN_TOOL_TOGGLER_TIMEOUT"},
		},
	}

	hookInspectFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "path",
			Usage:    "The path to the hook file or directory",
			Aliases:  []string{"p"},
			Required: true,
			EnvVars:  []string{"WALLEDGARDEN_TOOL_HOOK_PATH"},
		},
	}

	app := &cli.App{
		Name:  "Walled Garden Tool",
		Usage: "A tool for inspecting the walled garden decisions.",
		Description: `The tool operates in three areas:

   - Classification - it prints the decision the DHCP server makes for a device
     according to the configuration and the registered devices;

   - DNS Redirection - it runs the toggler switching the DNS redirection of
     an address;

   - Hooks - it prints the compatibility of the hook libraries.`,
		Version:  walledgarden.Version,
		HelpName: "walledgarden-tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "",
				Usage:   "Logging level can be specified using env variable only. Allowed values: are DEBUG, INFO, WARN, ERROR",
				Value:   "INFO",
				EnvVars: []string{gardenutil.LogLevelEnvironmentVariable},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "Print the decision for the device",
				UsageText: "walledgarden-tool classify -m mac [-c config] [-a address] [--use-database options for db connection]",
				Flags:     classifyFlags,
				Category:  "Classification",
				Action:    runClassify,
			},
			{
				Name:      "toggle",
				Usage:     "Run the DNS-redirection toggler once",
				UsageText: "walledgarden-tool toggle [-t toggler] hijack|unhijack address",
				Flags:     toggleFlags,
				Category:  "DNS Redirection",
				Action:    runToggle,
			},
			{
				Name:      "hook-inspect",
				Usage:     "Prints details about hooks",
				UsageText: "walledgarden-tool hook-inspect -p file-or-directory",
				Flags:     hookInspectFlags,
				Category:  "Hooks",
				Action:    runHookInspect,
			},
		},
	}
	return app, nil
}

func main() {
	// Setup logging
	gardenutil.SetupLogging()

	app, err := setupApp()
	if err != nil {
		log.Fatal(err)
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
