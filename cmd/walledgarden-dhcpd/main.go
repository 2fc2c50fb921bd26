package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/coredhcp/coredhcp/config"
	"github.com/coredhcp/coredhcp/logger"
	"github.com/coredhcp/coredhcp/plugins"
	pl_dns "github.com/coredhcp/coredhcp/plugins/dns"
	pl_leasetime "github.com/coredhcp/coredhcp/plugins/leasetime"
	pl_mtu "github.com/coredhcp/coredhcp/plugins/mtu"
	pl_netmask "github.com/coredhcp/coredhcp/plugins/netmask"
	pl_router "github.com/coredhcp/coredhcp/plugins/router"
	pl_searchdomains "github.com/coredhcp/coredhcp/plugins/searchdomains"
	pl_serverid "github.com/coredhcp/coredhcp/plugins/serverid"
	"github.com/coredhcp/coredhcp/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"isc.org/walledgarden"
	"isc.org/walledgarden/server/coredhcpplugin"
	gardenutil "isc.org/walledgarden/util"
)

// Plugins available in the server configuration. The walled garden
// plugin must be the last one in the DHCPv4 plugin chain.
var desiredPlugins = []*plugins.Plugin{
	&pl_dns.Plugin,
	&pl_leasetime.Plugin,
	&pl_mtu.Plugin,
	&pl_netmask.Plugin,
	&pl_router.Plugin,
	&pl_searchdomains.Plugin,
	&pl_serverid.Plugin,
	&coredhcpplugin.Plugin,
}

// Registers the plugins in coredhcp.
func registerPlugins() error {
	for _, plugin := range desiredPlugins {
		if err := plugins.RegisterPlugin(plugin); err != nil {
			return errors.WithMessagef(err, "cannot register the %s plugin", plugin.Name)
		}
	}
	return nil
}

// Starts the DHCP server and waits until it stops.
func runServer(c *cli.Context) error {
	log := logger.GetLogger("main")
	if level, err := logrus.ParseLevel(strings.ToLower(c.String("log-level"))); err == nil {
		log.Logger.SetLevel(level)
	}
	log.Infof("Starting Walled Garden DHCP Server, version %s, build date %s", walledgarden.Version, walledgarden.BuildDate)

	cfg, err := config.Load(c.Path("config"))
	if err != nil {
		return errors.Wrap(err, "cannot load the server configuration")
	}
	if err := registerPlugins(); err != nil {
		return err
	}
	srv, err := server.Start(cfg)
	if err != nil {
		return errors.Wrap(err, "cannot start the server")
	}
	if err := srv.Wait(); err != nil {
		return errors.Wrap(err, "server stopped")
	}
	return nil
}

// Prepare urfave cli app with all flags defined.
func setupApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Println(c.App.Version)
	}

	return &cli.App{
		Name:     "Walled Garden DHCP Server",
		Usage:    "DHCPv4 server steering the devices into the registered and unregistered subnets",
		Version:  walledgarden.Version,
		HelpName: "walledgarden-dhcpd",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "The path to the coredhcp configuration file; the walled garden plugin arguments are set there",
				EnvVars: []string{"WALLEDGARDEN_DHCP_SERVER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Logging level of the server: debug, info, warning, error",
				Value:   "info",
				EnvVars: []string{"WALLEDGARDEN_LOG_LEVEL"},
			},
		},
		Action: runServer,
	}
}

func main() {
	gardenutil.SetupLogging()

	app := setupApp()
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
