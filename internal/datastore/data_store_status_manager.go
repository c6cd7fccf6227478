package datastore

import (
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-server-sdk-core/interfaces"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

// dataStoreStatusManager is used by the persistent data store wrapper to track the store's
// availability, push status updates to the DataStoreUpdateSink, and poll for recovery after an
// outage.
type dataStoreStatusManager struct {
	dataStoreUpdates  subsystems.DataStoreUpdateSink
	lastAvailable     bool
	pollFn            func() bool
	refreshOnRecovery bool
	pollCloser        chan struct{}
	closeOnce         sync.Once
	loggers           ldlog.Loggers
	lock              sync.Mutex
}

//nolint:gochecknoglobals // modified only by tests
var statusPollInterval = time.Millisecond * 500

// newDataStoreStatusManager creates a new dataStoreStatusManager. The pollFn should return true if
// the store is available, false if not.
func newDataStoreStatusManager(
	availableNow bool,
	pollFn func() bool,
	refreshOnRecovery bool,
	dataStoreUpdates subsystems.DataStoreUpdateSink,
	loggers ldlog.Loggers,
) *dataStoreStatusManager {
	return &dataStoreStatusManager{
		dataStoreUpdates:  dataStoreUpdates,
		lastAvailable:     availableNow,
		pollFn:            pollFn,
		refreshOnRecovery: refreshOnRecovery,
		loggers:           loggers,
	}
}

// UpdateAvailability signals that the store is now available or unavailable. If that is a change, an
// update will be sent (and, if the new status is unavailable, it will start polling for recovery).
func (m *dataStoreStatusManager) UpdateAvailability(available bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if available == m.lastAvailable {
		return
	}
	m.lastAvailable = available
	newStatus := interfaces.DataStoreStatus{Available: available}
	if available {
		m.loggers.Warn("Persistent store is available again")
		newStatus.NeedsRefresh = m.refreshOnRecovery
	}

	if m.dataStoreUpdates != nil {
		m.dataStoreUpdates.UpdateStatus(newStatus)
	}

	// If the store has just become unavailable, start a poller to detect when it comes back.
	if !available {
		m.loggers.Warn("Detected persistent store unavailability; updates will be cached until it recovers")
		m.pollCloser = m.startStatusPoller()
	}
}

// IsAvailable tests whether the last known status was available.
func (m *dataStoreStatusManager) IsAvailable() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.lastAvailable
}

// Close shuts down the poller goroutine if still active.
func (m *dataStoreStatusManager) Close() {
	m.closeOnce.Do(func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		if m.pollCloser != nil {
			close(m.pollCloser)
			m.pollCloser = nil
		}
	})
}

func (m *dataStoreStatusManager) startStatusPoller() chan struct{} {
	closer := make(chan struct{})
	go func() {
		ticker := time.NewTicker(statusPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.pollFn() {
					m.UpdateAvailability(true)
					return
				}
			case <-closer:
				return
			}
		}
	}()
	return closer
}
