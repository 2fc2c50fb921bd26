package gardenutil

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Structure representing a periodic executor which is configured to
// execute a function specified by a caller according to the timer
// interval specified. The function may also be triggered on demand.
type PeriodicExecutor struct {
	name         string
	executorFunc func() error
	interval     time.Duration
	trigger      chan struct{}
	done         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// Creates and starts a new periodic executor. The function is executed
// within a goroutine every interval. Executions never overlap.
func NewPeriodicExecutor(name string, executorFunc func() error, interval time.Duration) (*PeriodicExecutor, error) {
	if interval <= 0 {
		return nil, errors.Errorf("interval of the %s must be positive, got %s", name, interval)
	}

	executor := &PeriodicExecutor{
		name:         name,
		executorFunc: executorFunc,
		interval:     interval,
		trigger:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	executor.wg.Add(1)
	go executor.executorLoop()

	log.WithField("interval", interval).Infof("Started %s", name)
	return executor, nil
}

// Requests an immediate execution. Requests made while an execution is
// pending are coalesced.
func (executor *PeriodicExecutor) Trigger() {
	select {
	case executor.trigger <- struct{}{}:
	default:
	}
}

// Terminates the executor and waits for the running execution to finish.
// It is safe to call it many times.
func (executor *PeriodicExecutor) Shutdown() {
	executor.shutdownOnce.Do(func() {
		log.Infof("Stopping %s", executor.name)
		close(executor.done)
		executor.wg.Wait()
		log.Infof("Stopped %s", executor.name)
	})
}

// Returns the executor name.
func (executor *PeriodicExecutor) GetName() string {
	return executor.name
}

// Returns the executor interval.
func (executor *PeriodicExecutor) GetInterval() time.Duration {
	return executor.interval
}

// Controls the timing of the function execution and captures the
// termination signal.
func (executor *PeriodicExecutor) executorLoop() {
	defer executor.wg.Done()
	ticker := time.NewTicker(executor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-executor.trigger:
		case <-executor.done:
			return
		}
		if err := executor.executorFunc(); err != nil {
			log.WithError(err).Errorf("Errors were encountered while running %s", executor.name)
		}
	}
}
