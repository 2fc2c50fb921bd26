package coredhcpplugin

import (
	"fmt"
	"os"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	dbops "isc.org/walledgarden/database"
	"isc.org/walledgarden/hooks"
	"isc.org/walledgarden/hooksutil"
)

// Plugin settings related to the hook directory. They are parsed first
// to collect the flags of the hooks.
type HookDirectorySettings struct {
	HookDirectory string `long:"hook-directory" description:"The path to the hook directory" env:"WALLEDGARDEN_DHCP_HOOK_DIRECTORY" default:"/usr/lib/walledgarden/hooks"`
}

// Plugin settings. The plugin arguments from the coredhcp configuration
// are parsed as the CLI flags.
type Settings struct {
	HookDirectorySettings
	ConfigPath      string        `short:"c" long:"config" description:"The path to the walled garden configuration file" env:"WALLEDGARDEN_DHCP_CONFIG" default:"/etc/walledgarden/walledgarden.json"`
	Toggler         string        `long:"toggler" description:"The path to the DNS-redirection toggler; overrides the configuration file" env:"WALLEDGARDEN_DHCP_TOGGLER"`
	UseDatabase     bool          `long:"use-database" description:"Load the registered devices from the PostgreSQL database" env:"WALLEDGARDEN_DHCP_USE_DATABASE"`
	RefreshInterval time.Duration `long:"refresh-interval" description:"The interval between the reservation refreshes; requires unit, e.g.: 60s" env:"WALLEDGARDEN_DHCP_REFRESH_INTERVAL" default:"60s"`
	MetricsAddress  string        `long:"metrics-address" description:"The address to expose the Prometheus metrics on, e.g.: 0.0.0.0:9547; empty disables the metrics endpoint" env:"WALLEDGARDEN_DHCP_METRICS_ADDRESS"`
	// Parsed database settings.
	DatabaseSettings *dbops.DatabaseSettings `no-flag:"true"`
	// Settings of the hooks by the hook name.
	HooksSettings map[string]hooks.HookSettings `no-flag:"true"`
}

// Parses the plugin arguments related to the location of the hook
// directory.
func parseHookDirectory(args []string) (*HookDirectorySettings, error) {
	settings := &HookDirectorySettings{}
	parser := flags.NewParser(settings, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, errors.Wrap(err, "invalid plugin argument")
	}
	return settings, nil
}

// Extracts the CLI flags from the hooks. A missing hook directory is not
// an error.
func collectHookCLIFlags(settings *HookDirectorySettings) (map[string]hooks.HookSettings, error) {
	allCLIFlags := map[string]hooks.HookSettings{}
	stat, err := os.Stat(settings.HookDirectory)
	switch {
	case err == nil && stat.IsDir():
		allCLIFlags, err = hooksutil.NewHookWalker().CollectCLIFlags(
			hooks.HookProgramDHCPServer,
			settings.HookDirectory,
		)
		if err != nil {
			return nil, errors.WithMessage(err, "cannot collect the prototypes of the hook settings")
		}
	case err == nil && !stat.IsDir():
		return nil, errors.Errorf(
			"the provided hook directory path is not pointing to a directory: %s",
			settings.HookDirectory,
		)
	case errors.Is(err, os.ErrNotExist):
		// Hook directory doesn't exist. Skip and continue.
	default:
		return nil, errors.Wrapf(err, "cannot stat the hook directory: %s", settings.HookDirectory)
	}
	return allCLIFlags, nil
}

// Prepare conventional namespaces for the hook flags and environment
// variables. The flag namespace is the lower-case hook name without the
// common prefix and with dashes instead of underscores, dots and spaces.
// The environment namespace is upper-case with underscores and the
// program-specific prefix.
func getHookNamespaces(hookName string) (flagNamespace, envNamespace string) {
	hookName, _ = strings.CutPrefix(hookName, "walledgarden-dhcp-")

	hookName = strings.ReplaceAll(hookName, " ", "-")
	hookName = strings.ReplaceAll(hookName, ".", "-")

	flagNamespace = strings.ReplaceAll(hookName, "_", "-")
	flagNamespace = strings.ToLower(flagNamespace)

	envNamespace = "WALLEDGARDEN_DHCP_HOOK_" + strings.ReplaceAll(hookName, "-", "_")
	envNamespace = strings.ToUpper(envNamespace)
	return
}

// Parses all plugin arguments including the hook-related ones.
func parseSettings(args []string, allHooksCLIFlags map[string]hooks.HookSettings) (*Settings, error) {
	settings := &Settings{}
	parser := flags.NewParser(settings, flags.HelpFlag|flags.PassDoubleDash)

	databaseFlags := &dbops.DatabaseCLIFlags{}
	if _, err := parser.AddGroup("Database Connection Flags", "", databaseFlags); err != nil {
		return nil, errors.Wrap(err, "cannot add the database group")
	}

	groupNamespaces := map[string]string{}
	for hookName, cliFlags := range allHooksCLIFlags {
		if cliFlags == nil {
			continue
		}
		group, err := parser.AddGroup(fmt.Sprintf("Hook '%s' Flags", hookName), "", cliFlags)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid settings for the '%s' hook", hookName)
		}
		flagNamespace, envNamespace := getHookNamespaces(hookName)
		if otherHook, exist := groupNamespaces[flagNamespace]; exist {
			return nil, errors.Errorf(
				"hooks '%s' and '%s' use the same configuration namespace: '%s'",
				otherHook, hookName, flagNamespace,
			)
		}
		groupNamespaces[flagNamespace] = hookName
		group.Namespace = flagNamespace
		group.EnvNamespace = envNamespace
	}

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, errors.Wrap(err, "cannot parse the plugin arguments")
	}

	if settings.UseDatabase {
		databaseSettings, err := databaseFlags.ConvertToDatabaseSettings()
		if err != nil {
			return nil, err
		}
		settings.DatabaseSettings = databaseSettings
	}
	settings.HooksSettings = allHooksCLIFlags
	return settings, nil
}

// Parses the plugin arguments in two passes. The first one locates the
// hook directory, the second one parses the plugin and hook flags.
func ParseSettings(args []string) (*Settings, error) {
	hookDirectorySettings, err := parseHookDirectory(args)
	if err != nil {
		return nil, err
	}
	allHooksCLIFlags, err := collectHookCLIFlags(hookDirectorySettings)
	if err != nil {
		return nil, err
	}
	return parseSettings(args, allHooksCLIFlags)
}
