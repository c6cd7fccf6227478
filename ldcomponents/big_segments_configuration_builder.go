package ldcomponents

import (
	"time"

	"github.com/launchdarkly/go-server-sdk-core/subsystems/ldstoreimpl"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

// DefaultBigSegmentsContextCacheSize is the default value for
// BigSegmentsConfigurationBuilder.ContextCacheSize.
const DefaultBigSegmentsContextCacheSize = 1000

// DefaultBigSegmentsContextCacheTime is the default value for
// BigSegmentsConfigurationBuilder.ContextCacheTime.
const DefaultBigSegmentsContextCacheTime = time.Second * 5

// DefaultBigSegmentsStatusPollInterval is the default value for
// BigSegmentsConfigurationBuilder.StatusPollInterval.
const DefaultBigSegmentsStatusPollInterval = time.Second * 5

// DefaultBigSegmentsStaleAfter is the default value for
// BigSegmentsConfigurationBuilder.StaleAfter.
const DefaultBigSegmentsStaleAfter = time.Second * 120

// BigSegmentsConfigurationBuilder contains methods for configuring the SDK's Big Segments behavior.
//
// Big Segments are a specific type of segments. For more information, read the LaunchDarkly
// documentation: https://docs.launchdarkly.com/home/users/big-segments
//
// If you want to set non-default values for any of these properties, create a builder with
// ldcomponents.BigSegments(), change its properties with the BigSegmentsConfigurationBuilder methods,
// and store it in the BigSegments field of your SDK configuration:
//
//	config := ld.Config{
//	    BigSegments: ldcomponents.BigSegments(ldredis.BigSegmentStore()).
//	        ContextCacheSize(2000),
//	}
//
// You only need to use this builder if you are using Big Segments.
type BigSegmentsConfigurationBuilder struct {
	storeFactory subsystems.ComponentConfigurer[subsystems.BigSegmentStore]
	config       ldstoreimpl.BigSegmentsConfigurationProperties
}

// BigSegments returns a configuration builder for the SDK's Big Segments feature.
//
// After configuring this object, store it in the BigSegments field of your SDK configuration. For
// example, using the Redis integration:
//
//	config := ld.Config{
//	    BigSegments: ldcomponents.BigSegments(ldredis.BigSegmentStore().URL(redisURI)).
//	        ContextCacheSize(2000),
//	}
//
// You must always specify the storeFactory parameter, to tell the SDK what database you are using.
// Several database integrations exist for the LaunchDarkly SDK, each with its own behavior and options
// specific to that database; this is described via some implementation of
// subsystems.ComponentConfigurer[subsystems.BigSegmentStore]. The BigSegmentsConfigurationBuilder
// adds configuration options for aspects of SDK behavior that are independent of the database. In the
// example above, BigSegmentStore() is specific to the Redis integration, whereas ContextCacheSize is
// an option that can be used with any data store type.
func BigSegments(
	storeFactory subsystems.ComponentConfigurer[subsystems.BigSegmentStore],
) *BigSegmentsConfigurationBuilder {
	return &BigSegmentsConfigurationBuilder{
		storeFactory: storeFactory,
		config: ldstoreimpl.BigSegmentsConfigurationProperties{
			ContextCacheSize:   DefaultBigSegmentsContextCacheSize,
			ContextCacheTime:   DefaultBigSegmentsContextCacheTime,
			StatusPollInterval: DefaultBigSegmentsStatusPollInterval,
			StaleAfter:         DefaultBigSegmentsStaleAfter,
			StartPolling:       true,
		},
	}
}

// ContextCacheSize sets the maximum number of contexts whose Big Segment state will be cached by the SDK
// at any given time. The default value is DefaultBigSegmentsContextCacheSize.
//
// To reduce database traffic, the SDK maintains a least-recently-used cache by context key. When a flag
// that references a Big Segment is evaluated for some context, the SDK will query the database for that
// context's Big Segment state, and will cache that information to avoid a repeated query for the same
// context. If the cache reaches its limit, the least recently used entries are discarded; increasing the
// cache size will reduce the database traffic in this case, but will use more memory.
func (b *BigSegmentsConfigurationBuilder) ContextCacheSize(
	contextCacheSize int,
) *BigSegmentsConfigurationBuilder {
	b.config.ContextCacheSize = contextCacheSize
	return b
}

// ContextCacheTime sets the maximum length of time that the Big Segment state for a context will be cached
// by the SDK. The default value is DefaultBigSegmentsContextCacheTime.
//
// A higher value means that database queries for Big Segment state will be done less often for recently
// referenced contexts, but that changes to segment membership may not be detected as soon.
func (b *BigSegmentsConfigurationBuilder) ContextCacheTime(
	contextCacheTime time.Duration,
) *BigSegmentsConfigurationBuilder {
	b.config.ContextCacheTime = contextCacheTime
	return b
}

// StatusPollInterval sets the interval at which the SDK will poll the Big Segment store to make sure it is
// available and to determine how long ago it was updated. The default value is
// DefaultBigSegmentsStatusPollInterval.
func (b *BigSegmentsConfigurationBuilder) StatusPollInterval(
	statusPollInterval time.Duration,
) *BigSegmentsConfigurationBuilder {
	if statusPollInterval <= 0 {
		statusPollInterval = DefaultBigSegmentsStatusPollInterval
	}
	b.config.StatusPollInterval = statusPollInterval
	return b
}

// StaleAfter sets the maximum length of time between updates of the Big Segments data before the data is
// considered out of date. The default value is DefaultBigSegmentsStaleAfter.
//
// Normally, the Big Segment store will receive updates periodically. This update process maintains a
// timestamp of the last update. If the data is not updated for longer than the StaleAfter time, the SDK
// assumes that the segment data may not be valid, and evaluations of flags that reference Big Segments
// will use a status of "stale" in the ldreason.EvaluationReason.
func (b *BigSegmentsConfigurationBuilder) StaleAfter(
	staleAfter time.Duration,
) *BigSegmentsConfigurationBuilder {
	b.config.StaleAfter = staleAfter
	return b
}

// Build is called internally by the SDK.
func (b *BigSegmentsConfigurationBuilder) Build(
	context subsystems.ClientContext,
) (subsystems.BigSegmentsConfiguration, error) {
	config := b.config
	if b.storeFactory != nil {
		store, err := b.storeFactory.Build(context)
		if err != nil {
			return nil, err
		}
		config.Store = store
	}
	return config, nil
}
