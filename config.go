package ldclient

import (
	"github.com/launchdarkly/go-server-sdk-core/interfaces"
	"github.com/launchdarkly/go-server-sdk-core/ldevents"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

// Config exposes advanced configuration options for [LDClient].
//
// All of these settings are optional, so an empty Config struct is always valid. See the description of each
// field for the default behavior if it is not set.
//
// Some of the Config fields are configuration builders or factory objects for subcomponents of the SDK. The
// types of these fields are generic interfaces; the actual implementation types, which have methods for
// configuring that subcomponent, are normally provided by corresponding functions in the [ldcomponents]
// package. For instance, to set the Events field to a configuration in which the SDK will flush analytics
// events every 10 seconds:
//
//	var config ld.Config
//	config.Events = ldcomponents.SendEvents().FlushInterval(time.Second * 10)
//
// The interfaces are defined separately from the built-in component implementations because you could also
// define your own implementation, for custom SDK integrations.
type Config struct {
	// Sets the SDK's application metadata, which is used in some analytics and diagnostic data.
	ApplicationInfo interfaces.ApplicationInfo

	// Provides configuration of the SDK's Big Segments feature.
	//
	// "Big Segments" are a specific type of segments. For more information, read the LaunchDarkly
	// documentation about segments: https://docs.launchdarkly.com/home/contexts/segments
	//
	// If you are using this feature, you will normally specify a database implementation that matches how
	// the LaunchDarkly Relay Proxy is configured, since the Relay Proxy manages the Big Segment data.
	//
	// If nil, there is no implementation and Big Segments cannot be evaluated. In this case, any flag
	// evaluation that references a Big Segment will behave as if no contexts are included in any Big
	// Segments, and the EvaluationReason associated with any such flag evaluation will return
	// ldreason.BigSegmentsNotConfigured from its GetBigSegmentsStatus() method.
	//
	//	// example: use a Redis-backed Big Segment store with default properties
	//	config.BigSegments = ldcomponents.BigSegments(ldredis.DataStore())
	BigSegments subsystems.ComponentConfigurer[subsystems.BigSegmentsConfiguration]

	// Sets the implementation of [subsystems.DataSource] for receiving feature flag updates.
	//
	// If nil, the default is [ldcomponents.StreamingDataSource]; see that method for an explanation of how
	// to further configure streaming behavior. Other options include [ldcomponents.PollingDataSource],
	// [ldcomponents.ExternalUpdatesOnly], a file-based data source, or a custom implementation for testing.
	//
	// If Offline is set to true, then DataSource is ignored.
	//
	//	// example: using streaming mode and setting streaming options
	//	config.DataSource = ldcomponents.StreamingDataSource().InitialReconnectDelay(time.Second)
	//
	//	// example: using polling mode and setting polling options
	//	config.DataSource = ldcomponents.PollingDataSource().PollInterval(time.Minute)
	//
	//	// example: specifying that data will be updated by an external process (such as the Relay Proxy)
	//	config.DataSource = ldcomponents.ExternalUpdatesOnly()
	DataSource subsystems.ComponentConfigurer[subsystems.DataSource]

	// Sets the implementation of [subsystems.DataStore] for holding feature flags and related data received
	// from LaunchDarkly.
	//
	// If nil, the default is [ldcomponents.InMemoryDataStore].
	//
	// The other option is to use a persistent data store, via [ldcomponents.PersistentDataStore] with a
	// database integration such as ldredis.
	DataStore subsystems.ComponentConfigurer[subsystems.DataStore]

	// Set to true to opt out of sending diagnostic events.
	//
	// Unless DiagnosticOptOut is set to true, the client will send some diagnostics data to the LaunchDarkly
	// servers in order to assist in the development of future SDK improvements. These diagnostics consist of
	// an initial payload containing some details of the SDK in use, the SDK's configuration, and the platform
	// the SDK is being run on, as well as periodic information on irregular occurrences such as dropped events.
	DiagnosticOptOut bool

	// Sets the implementation of [ldevents.EventProcessor] for processing analytics events.
	//
	// If nil, the default is [ldcomponents.SendEvents]; see that method for an explanation of how to
	// further configure event behavior. The other built-in option is [ldcomponents.NoEvents], which turns
	// off all analytics events as well as diagnostic events.
	//
	// If Offline is set to true, then Events is ignored.
	//
	//	// example: enable events, flushing every 10 seconds
	//	config.Events = ldcomponents.SendEvents().FlushInterval(time.Second * 10)
	//
	//	// example: disable all events
	//	config.Events = ldcomponents.NoEvents()
	Events subsystems.ComponentConfigurer[ldevents.EventProcessor]

	// Provides configuration of the SDK's network connection behavior.
	//
	// If nil, the default is [ldcomponents.HTTPConfiguration]; see that method for an explanation of how to
	// further configure these options.
	//
	//	// example: set connection timeout to 8 seconds and use a proxy server
	//	config.HTTP = ldcomponents.HTTPConfiguration().ConnectTimeout(8 * time.Second).ProxyURL(myProxyURL)
	HTTP subsystems.ComponentConfigurer[subsystems.HTTPConfiguration]

	// Provides configuration of the SDK's logging behavior.
	//
	// If nil, the default is [ldcomponents.Logging]; see that method for an explanation of how to further
	// configure logging behavior. The other option is [ldcomponents.NoLogging].
	//
	//	// example: set log level to Warn
	//	config.Logging = ldcomponents.Logging().MinLevel(ldlog.Warn)
	//
	//	// example: disable all logging
	//	config.Logging = ldcomponents.NoLogging()
	Logging subsystems.ComponentConfigurer[subsystems.LoggingConfiguration]

	// Sets whether this client is offline. An offline client will not make any network connections to
	// LaunchDarkly, and will return default values for all feature flags.
	//
	// This is equivalent to setting DataSource to ldcomponents.ExternalUpdatesOnly() and Events to
	// ldcomponents.NoEvents(): it causes the SDK to not connect to LaunchDarkly for flag data or analytics.
	Offline bool

	// Provides the base service URIs used by SDK components. This field is normally only used if you are
	// connecting to a LaunchDarkly Relay Proxy instance; use [ldcomponents.RelayProxyEndpoints] for that
	// purpose.
	ServiceEndpoints interfaces.ServiceEndpoints
}
