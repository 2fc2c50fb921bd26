package hooksutil

import (
	"reflect"

	"isc.org/walledgarden/hooks"
	gardenutil "isc.org/walledgarden/util"
)

// Facade for all callout points. The specific managers embed it and
// define the calling method for each callout point.
type HookManager struct {
	executor *HookExecutor
	walker   *HookWalker
}

// Constructs the hook manager supporting the given callout types.
func NewHookManager(supportedTypes []reflect.Type) *HookManager {
	return &HookManager{
		executor: NewHookExecutor(supportedTypes),
		walker:   NewHookWalker(),
	}
}

// Loads and registers all hooks from a given directory.
func (hm *HookManager) RegisterHooksFromDirectory(program, directory string, settings map[string]hooks.HookSettings) error {
	carriers, err := hm.walker.LoadAllHooks(program, directory, settings)
	if err != nil {
		return err
	}

	hm.RegisterCalloutCarriers(carriers)
	return nil
}

// Collects the CLI flags of the hooks from a given directory.
func (hm *HookManager) CollectCLIFlags(program, directory string) (map[string]hooks.HookSettings, error) {
	return hm.walker.CollectCLIFlags(program, directory)
}

// Registers a single callout carrier.
func (hm *HookManager) RegisterCalloutCarrier(carrier hooks.CalloutCarrier) {
	hm.executor.registerCalloutCarrier(carrier)
}

// Registers the callout carriers in order.
func (hm *HookManager) RegisterCalloutCarriers(carriers []hooks.CalloutCarrier) {
	for _, carrier := range carriers {
		hm.RegisterCalloutCarrier(carrier)
	}
}

// Get accessor of the executor to use with the Call functions.
func (hm *HookManager) GetExecutor() *HookExecutor {
	return hm.executor
}

// Unregisters and closes all callout carriers.
func (hm *HookManager) Close() error {
	errs := hm.executor.unregisterAllCalloutCarriers()
	return gardenutil.CombineErrors("some hooks failed to close", errs)
}
