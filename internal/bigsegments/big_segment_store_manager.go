package bigsegments

import (
	"sync"
	"time"

	"github.com/launchdarkly/ccache"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"
	"github.com/launchdarkly/go-server-sdk-core/interfaces"
	"github.com/launchdarkly/go-server-sdk-core/internal"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"

	"golang.org/x/sync/singleflight"
)

// BigSegmentStoreManager is the internal component that owns the Big Segment store, polls its
// status, maintains the context membership cache, and manages status subscriptions.
//
// We only create an instance of this type if there really is a store.
type BigSegmentStoreManager struct {
	store        subsystems.BigSegmentStore
	broadcaster  *internal.Broadcaster[interfaces.BigSegmentStoreStatus]
	staleTime    time.Duration
	contextCache *ccache.Cache
	cacheTTL     time.Duration
	haveStatus   bool
	lastStatus   interfaces.BigSegmentStoreStatus
	requests     singleflight.Group
	pollCloser   chan struct{}
	loggers      ldlog.Loggers
	lock         sync.RWMutex
}

// NewBigSegmentStoreManager creates the BigSegmentStoreManager. The store must not be nil.
// After this point, the store's lifecycle belongs to the manager, so closing the manager closes the store.
// We also start polling the store at this point.
func NewBigSegmentStoreManager(
	store subsystems.BigSegmentStore,
	pollInterval time.Duration,
	staleTime time.Duration,
	contextCacheSize int,
	contextCacheTime time.Duration,
	loggers ldlog.Loggers,
) *BigSegmentStoreManager {
	pollCloser := make(chan struct{})
	u := &BigSegmentStoreManager{
		store:        store,
		broadcaster:  internal.NewBroadcaster[interfaces.BigSegmentStoreStatus](),
		staleTime:    staleTime,
		contextCache: ccache.New(ccache.Configure().MaxSize(int64(contextCacheSize))),
		cacheTTL:     contextCacheTime,
		pollCloser:   pollCloser,
		loggers:      loggers,
	}

	go u.runPollTask(pollInterval, pollCloser)

	return u
}

// Close shuts down the manager, the store, the polling task, and the status broadcaster.
func (u *BigSegmentStoreManager) Close() {
	u.lock.Lock()
	if u.pollCloser != nil {
		close(u.pollCloser)
		u.pollCloser = nil
	}
	if u.contextCache != nil {
		u.contextCache.Stop()
		u.contextCache = nil
	}
	u.lock.Unlock()

	u.broadcaster.Close()
	_ = u.store.Close()
}

// getStatus returns a BigSegmentStoreStatus describing whether the store seems to be available
// (that is, the last query to it did not return an error) and whether it is stale (that is, the last
// known update time is too far in the past).
//
// If we have not yet obtained that information (the poll task has not executed yet), then this method
// immediately does a metadata query and waits for it to succeed or fail. This means that if an
// application using Big Segments evaluates a feature flag immediately after creating the SDK
// client, before the first status poll has happened, that evaluation may block for however long it
// takes to query the store.
func (u *BigSegmentStoreManager) getStatus() interfaces.BigSegmentStoreStatus {
	u.lock.RLock()
	status := u.lastStatus
	haveStatus := u.haveStatus
	u.lock.RUnlock()

	if haveStatus {
		return status
	}

	return u.pollStoreAndUpdateStatus()
}

// getContextMembership either returns a cached BigSegmentMembership for this context key or, if none
// is available, queries and caches the membership for the context after hashing the key. The second
// return value is normally true (even if the context was not found); false indicates a store error or
// other internal error (the caller should not care what the specific error is).
func (u *BigSegmentStoreManager) getContextMembership(
	contextKey string,
) (subsystems.BigSegmentMembership, bool) {
	entry := u.safeCacheGet(contextKey)
	if entry == nil || entry.Expired() {
		// Use singleflight to ensure that we'll only do this query once even if multiple goroutines are
		// requesting it
		value, err, _ := u.requests.Do(contextKey, func() (interface{}, error) {
			hash := HashForContextKey(contextKey)
			u.loggers.Debugf("querying Big Segment state for context hash %q", hash)
			return u.store.GetMembership(hash)
		})
		if err != nil {
			u.loggers.Errorf("Big Segment store returned error: %s", err)
			return nil, false
		}
		if value == nil {
			u.safeCacheSet(contextKey, nil, u.cacheTTL) // we cache the "not found" status
			return nil, true
		}
		if membership, ok := value.(subsystems.BigSegmentMembership); ok {
			u.safeCacheSet(contextKey, membership, u.cacheTTL)
			return membership, true
		}
		u.loggers.Error("BigSegmentStoreManager got wrong value type from request - this should not be possible")
		return nil, false // COVERAGE: can't cause this condition in unit tests
	}
	if entry.Value() == nil { // this is a cached "not found" state
		return nil, true
	}
	if membership, ok := entry.Value().(subsystems.BigSegmentMembership); ok {
		return membership, true
	}
	u.loggers.Error("BigSegmentStoreManager got wrong value type from cache - this should not be possible")
	return nil, false // COVERAGE: can't cause this condition in unit tests
}

func (u *BigSegmentStoreManager) getBroadcaster() *internal.Broadcaster[interfaces.BigSegmentStoreStatus] {
	return u.broadcaster
}

func (u *BigSegmentStoreManager) pollStoreAndUpdateStatus() interfaces.BigSegmentStoreStatus {
	var newStatus interfaces.BigSegmentStoreStatus
	u.loggers.Debug("querying Big Segment store metadata")
	metadata, err := u.store.GetMetadata()

	u.lock.Lock()
	if err == nil {
		newStatus.Available = true
		newStatus.Stale = u.isStale(metadata.LastUpToDate)
		u.loggers.Debugf("Big Segment store was last updated at %d", metadata.LastUpToDate)
	} else {
		u.loggers.Errorf("Big Segment store status query returned error: %s", err)
		newStatus.Available = false
	}
	oldStatus := u.lastStatus
	u.lastStatus = newStatus
	hadStatus := u.haveStatus
	u.haveStatus = true
	u.lock.Unlock()

	if !hadStatus || (newStatus != oldStatus) {
		u.loggers.Debugf(
			"Big Segment store status has changed from %+v to %+v",
			oldStatus,
			newStatus,
		)
		u.broadcaster.Broadcast(newStatus)
	}

	return newStatus
}

func (u *BigSegmentStoreManager) isStale(updateTime ldtime.UnixMillisecondTime) bool {
	age := time.Duration(uint64(ldtime.UnixMillisNow())-uint64(updateTime)) * time.Millisecond
	return age >= u.staleTime
}

func (u *BigSegmentStoreManager) runPollTask(pollInterval time.Duration, pollCloser <-chan struct{}) {
	if pollInterval > u.staleTime {
		pollInterval = u.staleTime // COVERAGE: not really unit-testable due to scheduling indeterminacy
	}
	ticker := time.NewTicker(pollInterval)
	for {
		select {
		case <-pollCloser:
			ticker.Stop()
			return
		case <-ticker.C:
			_ = u.pollStoreAndUpdateStatus()
		}
	}
}

// safeCacheGet and safeCacheSet are necessary because trying to use a ccache.Cache after it's been shut
// down can cause a panic, so we nil it out on Close() and guard it with our lock.
func (u *BigSegmentStoreManager) safeCacheGet(key string) *ccache.Item {
	var ret *ccache.Item
	u.lock.RLock()
	if u.contextCache != nil {
		ret = u.contextCache.Get(key)
	}
	u.lock.RUnlock()
	return ret
}

func (u *BigSegmentStoreManager) safeCacheSet(key string, value interface{}, ttl time.Duration) {
	u.lock.RLock()
	if u.contextCache != nil {
		u.contextCache.Set(key, value, ttl)
	}
	u.lock.RUnlock()
}
