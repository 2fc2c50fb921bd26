package hooksutil

import (
	"path/filepath"
	"plugin"
	"strings"

	"github.com/pkg/errors"
	"isc.org/walledgarden/hooks"
)

// Interface of the plugin symbol lookup. It is implemented by the
// plugin.Plugin and allows mocking it in the unit tests.
type pluginWrapper interface {
	Lookup(symName string) (plugin.Symbol, error)
}

// Wrapper of the hook library (Go plugin) providing the typed accessors to
// its standard functions.
type LibraryManager struct {
	path string
	p    pluginWrapper
}

// Opens the Go plugin from a given path.
func NewLibraryManager(path string) (*LibraryManager, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open a plugin: %s", path)
	}

	return newLibraryManager(path, p), nil
}

// Constructs the library manager with a custom plugin wrapper.
func newLibraryManager(path string, p pluginWrapper) *LibraryManager {
	return &LibraryManager{path: path, p: p}
}

// Calls the Load function of the hook and returns the callout carrier.
func (lm *LibraryManager) Load(settings hooks.HookSettings) (hooks.CalloutCarrier, error) {
	symbolName := hooks.HookLoadFunctionName
	symbol, err := lm.p.Lookup(symbolName)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup for symbol: %s failed", symbolName)
	}
	load, ok := symbol.(hooks.HookLoadFunction)
	if !ok {
		return nil, errors.Errorf("symbol %s has unexpected signature", symbolName)
	}

	carrier, err := load(settings)
	if err != nil {
		return nil, errors.WithMessage(err, "cannot load the hook")
	}

	return carrier, nil
}

// Calls the GetVersion function of the hook. Returns the program name and
// the version the hook was compiled for.
func (lm *LibraryManager) GetVersion() (program string, version string, err error) {
	symbolName := hooks.HookGetVersionFunctionName
	symbol, err := lm.p.Lookup(symbolName)
	if err != nil {
		err = errors.Wrapf(err, "lookup for symbol: %s failed", symbolName)
		return
	}
	versionFunction, ok := symbol.(hooks.HookGetVersionFunction)
	if !ok {
		err = errors.Errorf("symbol %s has unexpected signature", symbolName)
		return
	}
	program, version = versionFunction()
	return
}

// Calls the CreateCLIFlags function of the hook. Returns nil settings if
// the hook doesn't support configuring.
func (lm *LibraryManager) CreateCLIFlags() (hooks.HookSettings, error) {
	symbolName := hooks.HookCreateCLIFlagsFunctionName
	symbol, err := lm.p.Lookup(symbolName)
	if err != nil {
		// The function is optional.
		return nil, nil //nolint:nilerr
	}
	createFunction, ok := symbol.(hooks.HookCreateCLIFlagsFunction)
	if !ok {
		return nil, errors.Errorf("symbol %s has unexpected signature", symbolName)
	}
	return createFunction(), nil
}

// Returns the path to the library.
func (lm *LibraryManager) GetPath() string {
	return lm.path
}

// Returns the hook name. It is the library filename without the
// extension.
func (lm *LibraryManager) GetName() string {
	base := filepath.Base(lm.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
