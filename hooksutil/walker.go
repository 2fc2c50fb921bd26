package hooksutil

import (
	"github.com/pkg/errors"
	"isc.org/walledgarden/hooks"
	gardenutil "isc.org/walledgarden/util"
)

// Called for every file in the hook directory with the opened library or
// the opening error. Returning false stops the walk.
type WalkCallback = func(path string, library *LibraryManager, err error) bool

// File system access of the walker. Replaced in the unit tests.
type HookLookup interface {
	ListFilePaths(directory string) ([]string, error)
	OpenLibrary(path string) (*LibraryManager, error)
}

type systemLookup struct{}

// Returns the sorted absolute paths of the files in the directory.
func (*systemLookup) ListFilePaths(directory string) ([]string, error) {
	return gardenutil.ListFilePaths(directory, true)
}

// Opens the Go plugin.
func (*systemLookup) OpenLibrary(path string) (*LibraryManager, error) {
	return NewLibraryManager(path)
}

// Finds the hook libraries in the hook directory of the DHCP server.
type HookWalker struct {
	lookup HookLookup
}

// Constructs the hook walker reading the file system.
func NewHookWalker() *HookWalker {
	return newHookWalker(&systemLookup{})
}

func newHookWalker(lookup HookLookup) *HookWalker {
	return &HookWalker{lookup: lookup}
}

// Opens every file in the directory, in the lexicographic order, and
// passes it to the callback. A file that fails to open is passed with the
// error; the walk continues if the callback says so. The opened library
// is not guaranteed to be a hook. The error is returned only if the
// directory cannot be listed.
func (w *HookWalker) WalkPluginLibraries(directory string, callback WalkCallback) error {
	paths, err := w.lookup.ListFilePaths(directory)
	if err != nil {
		return errors.WithMessagef(err, "cannot find plugin paths in: %s", directory)
	}
	for _, path := range paths {
		library, err := w.lookup.OpenLibrary(path)
		if !callback(path, library, errors.WithMessagef(err, "cannot open hook library: %s", path)) {
			return nil
		}
	}
	return nil
}

// Verifies the program and the version the library was built for.
func checkLibraryCompatibility(library *LibraryManager, expectedProgram string) error {
	program, version, err := library.GetVersion()
	switch {
	case err != nil:
		return errors.WithMessage(err, "cannot get version of the hook library")
	case program != expectedProgram:
		return errors.Errorf("hook library (%s) dedicated for another program: %s", library.GetPath(), program)
	case version != hooks.WalledGardenVersion:
		return errors.Errorf("incompatible hook (%s) version: %s", library.GetPath(), version)
	default:
		return nil
	}
}

// Walks over the libraries of the program. The walk fails on the first
// library that cannot be opened or is built for another program or
// version. The callback is not called with errors.
func (w *HookWalker) WalkCompatiblePluginLibraries(program, directory string, callback WalkCallback) error {
	var walkErr error
	err := w.WalkPluginLibraries(directory, func(path string, library *LibraryManager, err error) bool {
		if err == nil {
			err = checkLibraryCompatibility(library, program)
		}
		if err != nil {
			walkErr = err
			return false
		}
		return callback(path, library, nil)
	})
	if err != nil {
		return err
	}
	return walkErr
}

// Loads the callout carriers from the compatible libraries. The settings
// are matched to the libraries by the library name. On failure, the
// carriers loaded so far are closed.
func (w *HookWalker) LoadAllHooks(program string, directory string, allSettings map[string]hooks.HookSettings) ([]hooks.CalloutCarrier, error) {
	var carriers []hooks.CalloutCarrier
	var loadErr error
	err := w.WalkCompatiblePluginLibraries(program, directory, func(path string, library *LibraryManager, _ error) bool {
		carrier, err := library.Load(allSettings[library.GetName()])
		if err != nil {
			loadErr = errors.WithMessagef(err, "cannot load hook library: %s", path)
			return false
		}
		carriers = append(carriers, carrier)
		return true
	})
	if err == nil {
		err = loadErr
	}
	if err != nil {
		for _, carrier := range carriers {
			_ = carrier.Close()
		}
		return nil, err
	}
	return carriers, nil
}

// Returns the settings prototypes of the compatible libraries by the
// library name, without loading the libraries. The prototype is nil for
// the library accepting no settings.
func (w *HookWalker) CollectCLIFlags(program, directory string) (map[string]hooks.HookSettings, error) {
	allFlags := map[string]hooks.HookSettings{}
	var collectErr error
	err := w.WalkCompatiblePluginLibraries(program, directory, func(path string, library *LibraryManager, _ error) bool {
		flags, err := library.CreateCLIFlags()
		if err != nil {
			collectErr = errors.WithMessagef(err, "cannot collect CLI flags of hook library: %s", path)
			return false
		}
		allFlags[library.GetName()] = flags
		return true
	})
	if err == nil {
		err = collectErr
	}
	if err != nil {
		return nil, err
	}
	return allFlags, nil
}
