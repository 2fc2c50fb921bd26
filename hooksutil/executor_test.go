package hooksutil

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"isc.org/walledgarden/hooks"
)

// Mock callout interfaces.
type mockCalloutsFoo interface {
	Foo() int
}

type mockCalloutsBar interface {
	Bar() bool
}

// Foo mock callout carrier implementation.
type mockCalloutCarrierFoo struct {
	fooResult  int
	fooCount   int
	closeCount int
	closeErr   error
}

// Counts the calls and returns the mocked result.
func (c *mockCalloutCarrierFoo) Foo() int {
	c.fooCount++
	return c.fooResult
}

// Counts the calls and returns the mocked error.
func (c *mockCalloutCarrierFoo) Close() error {
	c.closeCount++
	return c.closeErr
}

// Carrier implementing both mock callouts.
type mockCalloutCarrierFooBar struct {
	mockCalloutCarrierFoo
	barCount int
}

// Counts the calls and returns the parity of the count.
func (c *mockCalloutCarrierFooBar) Bar() bool {
	c.barCount++
	return c.barCount%2 == 0
}

// Carrier panicking in the callout.
type mockCalloutCarrierPanic struct{}

func (c *mockCalloutCarrierPanic) Foo() int {
	panic("foo failed")
}

func (c *mockCalloutCarrierPanic) Close() error {
	return nil
}

// Carrier implementing no known callout.
type mockCalloutCarrierEmpty struct{}

func (c *mockCalloutCarrierEmpty) Close() error {
	return nil
}

var (
	fooType = reflect.TypeOf((*mockCalloutsFoo)(nil)).Elem()
	barType = reflect.TypeOf((*mockCalloutsBar)(nil)).Elem()
)

// Test that the executor constructor panics for a non-interface type.
func TestNewHookExecutorPanicsOnNonInterface(t *testing.T) {
	require.Panics(t, func() {
		_ = NewHookExecutor([]reflect.Type{reflect.TypeOf(42)})
	})
}

// Test that the carriers are registered for the implemented callouts only.
func TestRegisterCalloutCarrier(t *testing.T) {
	// Arrange
	executor := NewHookExecutor([]reflect.Type{fooType, barType})

	// Act
	executor.registerCalloutCarrier(&mockCalloutCarrierFoo{})
	executor.registerCalloutCarrier(&mockCalloutCarrierEmpty{})

	// Assert
	require.True(t, executor.HasRegistered(fooType))
	require.False(t, executor.HasRegistered(barType))
	require.Equal(t, []reflect.Type{fooType}, executor.GetTypesOfRegisteredCallouts())
	require.Len(t, executor.carriers, 2)
}

// Test that the unsupported callout type is reported as not registered.
func TestHasRegisteredUnsupportedType(t *testing.T) {
	// Arrange
	executor := NewHookExecutor([]reflect.Type{fooType})

	// Act & Assert
	require.False(t, executor.HasRegistered(barType))
}

// Test that the sequential call invokes all carriers in the registration
// order.
func TestCallSequential(t *testing.T) {
	// Arrange
	executor := NewHookExecutor([]reflect.Type{fooType, barType})
	first := &mockCalloutCarrierFoo{fooResult: 1}
	second := &mockCalloutCarrierFooBar{mockCalloutCarrierFoo: mockCalloutCarrierFoo{fooResult: 2}}
	executor.registerCalloutCarrier(first)
	executor.registerCalloutCarrier(second)

	// Act
	fooResults := CallSequential(executor, func(callouts mockCalloutsFoo) int {
		return callouts.Foo()
	})
	barResults := CallSequential(executor, func(callouts mockCalloutsBar) bool {
		return callouts.Bar()
	})

	// Assert
	require.Equal(t, []int{1, 2}, fooResults)
	require.Equal(t, []bool{false}, barResults)
	require.EqualValues(t, 1, first.fooCount)
	require.EqualValues(t, 1, second.fooCount)
	require.EqualValues(t, 1, second.barCount)
}

// Test that the sequential call with no carriers returns no results.
func TestCallSequentialNoCarriers(t *testing.T) {
	// Arrange
	executor := NewHookExecutor([]reflect.Type{fooType})

	// Act
	results := CallSequential(executor, func(callouts mockCalloutsFoo) int {
		return callouts.Foo()
	})

	// Assert
	require.Empty(t, results)
}

// Test that the panicking callout doesn't interrupt the sequential call.
func TestCallSequentialRecoversPanic(t *testing.T) {
	// Arrange
	executor := NewHookExecutor([]reflect.Type{fooType})
	executor.registerCalloutCarrier(&mockCalloutCarrierPanic{})
	carrier := &mockCalloutCarrierFoo{fooResult: 7}
	executor.registerCalloutCarrier(carrier)

	// Act
	results := CallSequential(executor, func(callouts mockCalloutsFoo) int {
		return callouts.Foo()
	})

	// Assert
	require.Equal(t, []int{7}, results)
	require.EqualValues(t, 1, carrier.fooCount)
}

// Test that the single call invokes the first carrier only.
func TestCallSingle(t *testing.T) {
	// Arrange
	executor := NewHookExecutor([]reflect.Type{fooType})
	first := &mockCalloutCarrierFoo{fooResult: 1}
	second := &mockCalloutCarrierFoo{fooResult: 2}
	executor.registerCalloutCarrier(first)
	executor.registerCalloutCarrier(second)

	// Act
	result := CallSingle(executor, func(callouts mockCalloutsFoo) int {
		return callouts.Foo()
	})

	// Assert
	require.EqualValues(t, 1, result)
	require.EqualValues(t, 1, first.fooCount)
	require.Zero(t, second.fooCount)
}

// Test that the single call returns the zero value if there is no carrier
// or the callout panicked.
func TestCallSingleZeroValue(t *testing.T) {
	// Arrange
	emptyExecutor := NewHookExecutor([]reflect.Type{fooType})
	panicExecutor := NewHookExecutor([]reflect.Type{fooType})
	panicExecutor.registerCalloutCarrier(&mockCalloutCarrierPanic{})
	caller := func(callouts mockCalloutsFoo) int {
		return callouts.Foo()
	}

	// Act & Assert
	require.Zero(t, CallSingle(emptyExecutor, caller))
	require.Zero(t, CallSingle(panicExecutor, caller))
}

// Test that the carriers are closed once and unregistered.
func TestUnregisterAllCalloutCarriers(t *testing.T) {
	// Arrange
	executor := NewHookExecutor([]reflect.Type{fooType, barType})
	foo := &mockCalloutCarrierFoo{closeErr: errors.New("foo close")}
	fooBar := &mockCalloutCarrierFooBar{}
	executor.registerCalloutCarrier(foo)
	executor.registerCalloutCarrier(fooBar)

	// Act
	errs := executor.unregisterAllCalloutCarriers()

	// Assert
	require.Len(t, errs, 1)
	require.ErrorContains(t, errs[0], "foo close")
	require.EqualValues(t, 1, foo.closeCount)
	require.EqualValues(t, 1, fooBar.closeCount)
	require.False(t, executor.HasRegistered(fooType))
	require.False(t, executor.HasRegistered(barType))
	require.Empty(t, executor.carriers)
}

var _ hooks.CalloutCarrier = (*mockCalloutCarrierFooBar)(nil)
