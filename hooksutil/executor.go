package hooksutil

import (
	"reflect"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"isc.org/walledgarden/hooks"
)

// Hook executor is responsible for registering the callout carriers and
// calling the callouts. The callout types are the interfaces defined in
// the hooks subpackages. The carriers are called in the registration order.
type HookExecutor struct {
	registeredCarriers map[reflect.Type][]hooks.CalloutCarrier
	// All registered carriers in the registration order. Each carrier is
	// present once even if it implements many callout types.
	carriers []hooks.CalloutCarrier
}

// Constructs the executor supporting the given callout types. Each type
// must be an interface, e.g.:
// reflect.TypeOf((*dhcp4callouts.Pkt4SendCallouts)(nil)).Elem().
func NewHookExecutor(calloutTypes []reflect.Type) *HookExecutor {
	carriers := make(map[reflect.Type][]hooks.CalloutCarrier, len(calloutTypes))
	for _, calloutType := range calloutTypes {
		if calloutType.Kind() != reflect.Interface {
			// It should never happen.
			// If you got this panic message, check if your callout types are
			// defined as follows:
			// reflect.TypeOf((*hooks.FooCallouts)(nil)).Elem()
			// remember about:
			// 1. pointer (star *) before the callout type.
			// 2. .Elem() call at the end.
			panic("non-interface type passed")
		}
		carriers[calloutType] = []hooks.CalloutCarrier{}
	}
	return &HookExecutor{
		registeredCarriers: carriers,
	}
}

// Registers the carrier for all supported callout types it implements.
func (he *HookExecutor) registerCalloutCarrier(carrier hooks.CalloutCarrier) {
	carrierType := reflect.TypeOf(carrier)
	implemented := false
	for calloutType, registered := range he.registeredCarriers {
		if carrierType.Implements(calloutType) {
			he.registeredCarriers[calloutType] = append(registered, carrier)
			implemented = true
		}
	}
	if !implemented {
		log.WithField("carrier", carrierType.String()).
			Warn("Callout carrier implements no supported callouts")
	}
	he.carriers = append(he.carriers, carrier)
}

// Unregisters and closes all carriers. Returns the errors returned by the
// Close calls.
func (he *HookExecutor) unregisterAllCalloutCarriers() []error {
	var errs []error
	for _, carrier := range he.carriers {
		if err := carrier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for calloutType := range he.registeredCarriers {
		he.registeredCarriers[calloutType] = []hooks.CalloutCarrier{}
	}
	he.carriers = nil
	return errs
}

// Returns the supported callout types that have at least one carrier.
func (he *HookExecutor) GetTypesOfRegisteredCallouts() []reflect.Type {
	var types []reflect.Type
	for calloutType, carriers := range he.registeredCarriers {
		if len(carriers) > 0 {
			types = append(types, calloutType)
		}
	}
	return types
}

// Checks if any carrier implementing the callout type is registered.
func (he *HookExecutor) HasRegistered(calloutType reflect.Type) bool {
	carriers, ok := he.registeredCarriers[calloutType]
	return ok && len(carriers) > 0
}

// Calls the callout. The panic raised by the callout is converted into
// an error so a faulty hook never breaks the caller.
func callCallout[TCallout any, TOutput any](callout TCallout, caller func(TCallout) TOutput) (output TOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("callout panicked: %v", r)
		}
	}()
	output = caller(callout)
	return
}

// Returns the callout type of the generic argument.
func getCalloutType[TCallout any]() reflect.Type {
	return reflect.TypeOf((*TCallout)(nil)).Elem()
}

// Calls the callout of all registered carriers implementing it. Returns
// the outputs in the registration order. The outputs of the panicking
// callouts are omitted.
func CallSequential[TCallout any, TOutput any](he *HookExecutor, caller func(TCallout) TOutput) []TOutput {
	calloutType := getCalloutType[TCallout]()
	var results []TOutput
	for _, carrier := range he.registeredCarriers[calloutType] {
		callout, ok := carrier.(TCallout)
		if !ok {
			continue
		}
		output, err := callCallout(callout, caller)
		if err != nil {
			log.WithError(err).
				WithField("callout", calloutType.String()).
				Error("Callout failed")
			continue
		}
		results = append(results, output)
	}
	return results
}

// Calls the callout of the first registered carrier implementing it. It
// is intended for the callouts that may have a single implementation. It
// returns the zero value if no carrier is registered or the callout
// panicked.
func CallSingle[TCallout any, TOutput any](he *HookExecutor, caller func(TCallout) TOutput) (output TOutput) {
	calloutType := getCalloutType[TCallout]()
	carriers := he.registeredCarriers[calloutType]
	if len(carriers) == 0 {
		return
	} else if len(carriers) > 1 {
		log.WithField("callout", calloutType.String()).
			Warn("There are many registered callouts but expected a single one")
	}
	callout, ok := carriers[0].(TCallout)
	if !ok {
		return
	}
	output, err := callCallout(callout, caller)
	if err != nil {
		log.WithError(err).
			WithField("callout", calloutType.String()).
			Error("Callout failed")
	}
	return output
}
