package interfaces

// BigSegmentStoreStatusProvider is an interface for querying the status of a Big Segment store.
//
// The Big Segment store is the component that receives information about Big Segments, normally
// from a database populated by the LaunchDarkly Relay Proxy. Big Segments are a specific type of
// segments. For more information, read the LaunchDarkly documentation:
// https://docs.launchdarkly.com/home/users/big-segments
//
// An implementation of this interface is returned by LDClient.GetBigSegmentStoreStatusProvider().
// Application code should not implement this interface.
//
// There are two ways to interact with the status. One is to simply get the current status; if its
// Available property is true, then the SDK is able to evaluate context membership in Big Segments,
// and the Stale property indicates whether the data might be out of date.
//
// The other way is to subscribe to status change notifications. Applications may wish to know if
// there is an outage in the Big Segment store, or if it has become stale (the Relay Proxy has
// stopped updating it with new data), since then flag evaluations that reference a Big Segment
// might return incorrect values.
type BigSegmentStoreStatusProvider interface {
	// GetStatus returns the current status of the store.
	GetStatus() BigSegmentStoreStatus

	// AddStatusListener subscribes for notifications of status changes. The returned channel will
	// receive a new BigSegmentStoreStatus value for any change in status.
	//
	// If the SDK is not configured to use Big Segments, the listener channel will never receive
	// values.
	AddStatusListener() <-chan BigSegmentStoreStatus

	// RemoveStatusListener unsubscribes from notifications of status changes. The specified channel
	// must be one that was previously returned by AddStatusListener(); otherwise, the method has
	// no effect.
	RemoveStatusListener(<-chan BigSegmentStoreStatus)
}

// BigSegmentStoreStatus contains information about the status of a Big Segment store, provided
// by BigSegmentStoreStatusProvider.
type BigSegmentStoreStatus struct {
	// Available is true if the Big Segment store is able to respond to queries, so that the SDK
	// can evaluate whether a context is in a segment or not.
	//
	// If this property is false, the store is not able to make queries (for instance, it may not
	// have a valid database connection). In this case, the SDK will treat any reference to a Big
	// Segment as if no contexts are included in that segment. Also, the EvaluationReason associated
	// with any flag evaluation that references a Big Segment when the store is not available will
	// have a BigSegmentsStatus of ldreason.BigSegmentsStoreError.
	Available bool

	// Stale is true if the Big Segment store is available, but has not been updated within the
	// amount of time specified by BigSegmentsConfigurationBuilder.StaleAfter(). This may indicate
	// that the LaunchDarkly Relay Proxy, which populates the store, has stopped running or has
	// become unable to receive fresh data from LaunchDarkly. Any feature flag evaluations that
	// reference a Big Segment will be using the last known data, which may be out of date.
	Stale bool
}
