package datastore

import (
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-server-sdk-core/internal/datakinds"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
	st "github.com/launchdarkly/go-server-sdk-core/subsystems/ldstoretypes"
)

// persistentDataStoreWrapper is the implementation of DataStore that we use for all persistent data
// stores. It caches store operations with an optional TTL, deserializes items as needed, and tracks
// the store's availability.
type persistentDataStoreWrapper struct {
	core          subsystems.PersistentDataStore
	statusManager *dataStoreStatusManager
	cache         *cache.Cache
	cacheTTL      time.Duration
	requests      singleflight.Group
	loggers       ldlog.Loggers
	inited        bool
	initLock      sync.RWMutex
}

const initCheckedKey = "$initChecked"

// NewPersistentDataStoreWrapper creates the implementation of DataStore that we use for all
// persistent data stores.
//
// A cacheTTL of zero means no caching; a negative value means the cache never expires ("infinite
// cache mode", in which the SDK can keep serving data from the cache even if the database becomes
// unavailable).
func NewPersistentDataStoreWrapper(
	core subsystems.PersistentDataStore,
	dataStoreUpdates subsystems.DataStoreUpdateSink,
	cacheTTL time.Duration,
	loggers ldlog.Loggers,
) subsystems.DataStore {
	var myCache *cache.Cache
	if cacheTTL != 0 {
		myCache = cache.New(cacheTTL, 5*time.Minute)
		// Note that the documented behavior of go-cache is that if cacheTTL is negative, the
		// cache never expires. That is consistent with how we've defined the parameter.
	}

	w := &persistentDataStoreWrapper{
		core:     core,
		cache:    myCache,
		cacheTTL: cacheTTL,
		loggers:  loggers,
	}

	w.statusManager = newDataStoreStatusManager(
		true,
		w.pollAvailabilityAfterOutage,
		myCache == nil || cacheTTL > 0, // needsRefresh=true unless we're in infinite cache mode
		dataStoreUpdates,
		loggers,
	)

	return w
}

func (w *persistentDataStoreWrapper) Init(allData []st.Collection) error {
	err := w.initCore(allData)
	if w.cache != nil {
		w.cache.Flush()
	}
	if err != nil && !w.hasCacheWithInfiniteTTL() {
		// Normally, if the underlying store failed to do the update, we do not want to update the cache -
		// the idea being that it's better to stay in a consistent state of having old data than to act
		// like we have new data but then suddenly fall back to old data when the cache expires. However,
		// if the cache TTL is infinite, then it makes sense to update the cache always.
		return err
	}
	if w.cache != nil {
		for _, coll := range allData {
			w.cacheItems(coll.Kind, coll.Items)
		}
	}
	if err == nil || w.hasCacheWithInfiniteTTL() {
		w.initLock.Lock()
		defer w.initLock.Unlock()
		w.inited = true
	}
	return err
}

func (w *persistentDataStoreWrapper) initCore(allData []st.Collection) error {
	serializedAllData := make([]st.SerializedCollection, 0, len(allData))
	for _, coll := range allData {
		serializedAllData = append(serializedAllData, st.SerializedCollection{
			Kind:  coll.Kind,
			Items: serializeAll(coll.Kind, coll.Items),
		})
	}
	err := w.core.Init(serializedAllData)
	w.processError(err)
	return err
}

func (w *persistentDataStoreWrapper) Get(kind st.DataKind, key string) (st.ItemDescriptor, error) {
	if w.cache == nil {
		item, err := w.getAndDeserializeItem(kind, key)
		w.processError(err)
		return item, err
	}
	cacheKey := dataStoreCacheKey(kind, key)
	if data, present := w.cache.Get(cacheKey); present {
		if item, ok := data.(st.ItemDescriptor); ok {
			return item, nil
		}
	}
	// Item was not cached or cached value was not valid. Use singleflight to ensure that we'll only
	// do this core query once even if multiple goroutines are requesting it
	reqKey := fmt.Sprintf("get:%s:%s", kind.GetName(), key)
	itemIntf, err, _ := w.requests.Do(reqKey, func() (interface{}, error) {
		item, err := w.getAndDeserializeItem(kind, key)
		w.processError(err)
		if err == nil {
			w.cache.Set(cacheKey, item, cache.DefaultExpiration)
			return item, nil
		}
		return nil, err
	})
	if err != nil {
		return st.ItemDescriptor{}.NotFound(), err
	}
	if item, ok := itemIntf.(st.ItemDescriptor); ok { // singleflight.Group.Do returns value as interface{}
		return item, nil
	}
	w.loggers.Errorf("data store query returned unexpected type %T", itemIntf)
	return st.ItemDescriptor{}.NotFound(), nil
}

func (w *persistentDataStoreWrapper) GetAll(kind st.DataKind) ([]st.KeyedItemDescriptor, error) {
	if w.cache == nil {
		items, err := w.getAllAndDeserialize(kind)
		w.processError(err)
		return items, err
	}
	// Check whether we have a cache item for the entire data set
	cacheKey := dataStoreAllItemsCacheKey(kind)
	if data, present := w.cache.Get(cacheKey); present {
		if items, ok := data.([]st.KeyedItemDescriptor); ok {
			return items, nil
		}
	}
	// Data set was not cached or cached value was not valid. Use singleflight to ensure that we'll only
	// do this core query once even if multiple goroutines are requesting it
	reqKey := fmt.Sprintf("all:%s", kind.GetName())
	itemsIntf, err, _ := w.requests.Do(reqKey, func() (interface{}, error) {
		items, err := w.getAllAndDeserialize(kind)
		w.processError(err)
		if err != nil {
			return nil, err
		}
		w.cache.Set(cacheKey, items, cache.DefaultExpiration)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	if items, ok := itemsIntf.([]st.KeyedItemDescriptor); ok { // singleflight.Group.Do returns value as interface{}
		return items, nil
	}
	w.loggers.Errorf("data store query returned unexpected type %T", itemsIntf)
	return nil, nil
}

func (w *persistentDataStoreWrapper) Upsert(
	kind st.DataKind,
	key string,
	newItem st.ItemDescriptor,
) (bool, error) {
	serializedItem := serialize(kind, newItem)
	updated, err := w.core.Upsert(kind, key, serializedItem)
	w.processError(err)
	// Normally, if the underlying store failed to do the update, we do not want to update the cache -
	// the idea being that it's better to stay in a consistent state of having old data than to act
	// like we have new data but then suddenly fall back to old data when the cache expires. However,
	// if the cache TTL is infinite, then it makes sense to update the cache always.
	if err != nil {
		if !w.hasCacheWithInfiniteTTL() {
			return updated, err
		}
		updated = true
	}
	if w.cache != nil {
		allCacheKey := dataStoreAllItemsCacheKey(kind)
		if updated {
			w.cache.Set(dataStoreCacheKey(kind, key), newItem, cache.DefaultExpiration)
			// If the cache has a finite TTL, then we should remove the "all items" cache entry to force
			// a reread the next time GetAll is called. However, if it's an infinite TTL, we need to just
			// update the item within the existing "all items" entry (since we want things to still work
			// even if the underlying store is unavailable).
			if w.hasCacheWithInfiniteTTL() {
				var items []st.KeyedItemDescriptor
				if data, present := w.cache.Get(allCacheKey); present {
					if cachedItems, ok := data.([]st.KeyedItemDescriptor); ok {
						items = updateSingleItem(cachedItems, key, newItem)
					}
				} else {
					items = []st.KeyedItemDescriptor{{Key: key, Item: newItem}}
				}
				w.cache.Set(allCacheKey, items, cache.DefaultExpiration)
			} else {
				w.cache.Delete(allCacheKey)
			}
		} else {
			// The store declined the update because it already has a newer version. Invalidate the
			// cached copies and re-query so the cache holds the store's version.
			w.cache.Delete(dataStoreCacheKey(kind, key))
			w.cache.Delete(allCacheKey)
			_, _ = w.Get(kind, key) // doing this query repopulates the cache
		}
	}
	return updated, err
}

func (w *persistentDataStoreWrapper) IsInitialized() bool {
	w.initLock.RLock()
	previousValue := w.inited
	w.initLock.RUnlock()
	if previousValue {
		return true
	}

	if w.cache != nil {
		if _, found := w.cache.Get(initCheckedKey); found {
			return false
		}
	}

	newValue := w.core.IsInitialized()
	if newValue {
		w.initLock.Lock()
		defer w.initLock.Unlock()
		w.inited = true
		if w.cache != nil {
			w.cache.Delete(initCheckedKey)
		}
	} else if w.cache != nil {
		w.cache.Set(initCheckedKey, "", cache.DefaultExpiration)
	}
	return newValue
}

func (w *persistentDataStoreWrapper) IsStatusMonitoringEnabled() bool {
	return true
}

func (w *persistentDataStoreWrapper) Close() error {
	w.statusManager.Close()
	return w.core.Close()
}

func (w *persistentDataStoreWrapper) processError(err error) {
	if err == nil {
		// If we're waiting to recover after a failure, we'll let the polling routine take care
		// of signaling success. Even if we could signal success a little earlier based on the
		// success of whatever operation we just did, we'd rather avoid the overhead of acquiring
		// the status lock every time we do anything. So we'll just do nothing here.
		return
	}
	w.statusManager.UpdateAvailability(false)
}

func (w *persistentDataStoreWrapper) pollAvailabilityAfterOutage() bool {
	if !w.core.IsStoreAvailable() {
		return false
	}
	if w.hasCacheWithInfiniteTTL() {
		// If we're in infinite cache mode, then we can assume the cache has a full set of current
		// flag data (since presumably the data source has still been running) and we can just
		// write the contents of the cache to the underlying data store.
		kinds := datakinds.AllDataKinds()
		allData := make([]st.Collection, 0, len(kinds))
		for _, kind := range kinds {
			if data, present := w.cache.Get(dataStoreAllItemsCacheKey(kind)); present {
				if items, ok := data.([]st.KeyedItemDescriptor); ok {
					allData = append(allData, st.Collection{Kind: kind, Items: items})
				}
			}
		}
		err := w.initCore(allData)
		if err != nil {
			// We failed to write the cached data to the underlying store. In this case,
			// initCore() has already put us back into the failed state. The only further
			// thing we can do is to log a note about what just happened.
			w.loggers.Errorf("Tried to write cached data to persistent store after a store outage, but failed: %s", err)
		} else {
			w.loggers.Warn("Successfully updated persistent store from cached data")
			// Note that w.inited should have already been set when Init was originally called -
			// in infinite cache mode, we set it even if the database update failed.
		}
	}
	return true
}

func (w *persistentDataStoreWrapper) hasCacheWithInfiniteTTL() bool {
	return w.cache != nil && w.cacheTTL < 0
}

func (w *persistentDataStoreWrapper) getAndDeserializeItem(
	kind st.DataKind,
	key string,
) (st.ItemDescriptor, error) {
	serializedItem, err := w.core.Get(kind, key)
	if err == nil {
		return deserialize(kind, serializedItem)
	}
	return st.ItemDescriptor{}.NotFound(), err
}

func (w *persistentDataStoreWrapper) getAllAndDeserialize(
	kind st.DataKind,
) ([]st.KeyedItemDescriptor, error) {
	serializedItems, err := w.core.GetAll(kind)
	if err == nil {
		ret := make([]st.KeyedItemDescriptor, 0, len(serializedItems))
		for _, serializedItem := range serializedItems {
			item, err := deserialize(kind, serializedItem.Item)
			if err != nil {
				return nil, err
			}
			if item.Item != nil { // exclude deleted item placeholders from the full data set
				ret = append(ret, st.KeyedItemDescriptor{Key: serializedItem.Key, Item: item})
			}
		}
		return ret, nil
	}
	return nil, err
}

func (w *persistentDataStoreWrapper) cacheItems(kind st.DataKind, items []st.KeyedItemDescriptor) {
	if w.cache == nil {
		return
	}
	copyOfItems := make([]st.KeyedItemDescriptor, 0, len(items))
	for _, item := range items {
		w.cache.Set(dataStoreCacheKey(kind, item.Key), item.Item, cache.DefaultExpiration)
		if item.Item.Item != nil { // exclude deleted item placeholders from the full data set
			copyOfItems = append(copyOfItems, item)
		}
	}
	w.cache.Set(dataStoreAllItemsCacheKey(kind), copyOfItems, cache.DefaultExpiration)
}

func updateSingleItem(
	items []st.KeyedItemDescriptor,
	key string,
	newItem st.ItemDescriptor,
) []st.KeyedItemDescriptor {
	found := false
	ret := make([]st.KeyedItemDescriptor, 0, len(items)+1)
	for _, item := range items {
		if item.Key == key {
			found = true
			if newItem.Item != nil {
				ret = append(ret, st.KeyedItemDescriptor{Key: key, Item: newItem})
			}
		} else {
			ret = append(ret, item)
		}
	}
	if !found && newItem.Item != nil {
		ret = append(ret, st.KeyedItemDescriptor{Key: key, Item: newItem})
	}
	return ret
}

func dataStoreCacheKey(kind st.DataKind, key string) string {
	return kind.GetName() + ":" + key
}

func dataStoreAllItemsCacheKey(kind st.DataKind) string {
	return "all:" + kind.GetName()
}

func serialize(kind st.DataKind, item st.ItemDescriptor) st.SerializedItemDescriptor {
	if item.Item == nil {
		return st.SerializedItemDescriptor{Version: item.Version, Deleted: true,
			SerializedItem: kind.Serialize(item)}
	}
	return st.SerializedItemDescriptor{Version: item.Version, SerializedItem: kind.Serialize(item)}
}

func serializeAll(kind st.DataKind, items []st.KeyedItemDescriptor) []st.KeyedSerializedItemDescriptor {
	ret := make([]st.KeyedSerializedItemDescriptor, 0, len(items))
	for _, item := range items {
		ret = append(ret, st.KeyedSerializedItemDescriptor{Key: item.Key, Item: serialize(kind, item.Item)})
	}
	return ret
}

func deserialize(kind st.DataKind, serializedItem st.SerializedItemDescriptor) (st.ItemDescriptor, error) {
	if serializedItem.Deleted || serializedItem.SerializedItem == nil {
		return st.ItemDescriptor{Version: serializedItem.Version, Item: nil}, nil
	}
	deserializedItem, err := kind.Deserialize(serializedItem.SerializedItem)
	if err != nil {
		return st.ItemDescriptor{}.NotFound(), err
	}
	if serializedItem.Version == 0 || serializedItem.Version == deserializedItem.Version ||
		deserializedItem.Item == nil {
		return deserializedItem, nil
	}
	// If the store gave us a version number that isn't what was encoded in the object, trust it
	return st.ItemDescriptor{Version: serializedItem.Version, Item: deserializedItem.Item}, nil
}
