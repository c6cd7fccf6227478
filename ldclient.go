package ldclient

import (
	gocontext "context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldmigration"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/evaluation"
	"github.com/launchdarkly/go-server-sdk-core/interfaces"
	"github.com/launchdarkly/go-server-sdk-core/interfaces/flagstate"
	"github.com/launchdarkly/go-server-sdk-core/internal"
	"github.com/launchdarkly/go-server-sdk-core/internal/bigsegments"
	"github.com/launchdarkly/go-server-sdk-core/internal/datakinds"
	"github.com/launchdarkly/go-server-sdk-core/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-core/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-core/ldcomponents"
	"github.com/launchdarkly/go-server-sdk-core/ldevents"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
	"github.com/launchdarkly/go-server-sdk-core/subsystems/ldstoreimpl"
)

// Version is the SDK version.
const Version = internal.SDKVersion

// Initialization errors
var (
	// ErrInitializationTimeout is returned by MakeClient and MakeCustomClient if the SDK did not finish
	// initializing within the specified time interval. In this case, the returned client is still usable
	// but may not yet have an up-to-date flag data state.
	ErrInitializationTimeout = errors.New("timeout encountered waiting for LaunchDarkly client initialization")

	// ErrInitializationFailed is returned by MakeClient and MakeCustomClient if the client's data source
	// determined that it could never become initialized (for instance, because the SDK key is invalid).
	ErrInitializationFailed = errors.New("LaunchDarkly client initialization failed")

	// ErrClientNotInitialized is returned by flag evaluation methods if the client has not yet finished
	// initializing and there is no previously-known flag data state to fall back on.
	ErrClientNotInitialized = errors.New("feature flag evaluation called before LaunchDarkly client initialization completed") //nolint:lll
)

// LDClient is the LaunchDarkly client.
//
// This object evaluates feature flags, generates analytics events, and communicates with
// LaunchDarkly services. Applications should instantiate a single instance for the lifetime of their
// application and share it wherever feature flags need to be evaluated; all LDClient methods are
// safe to be called concurrently from multiple goroutines.
//
// Some advanced client features are grouped together in API facades that are accessed through an
// LDClient method, such as [LDClient.GetDataSourceStatusProvider].
//
// When an application is shutting down or no longer needs to use the LDClient instance, it should
// call [LDClient.Close] to ensure that all of its connections and goroutines are shut down and that
// any pending analytics events have been delivered.
//
// For more information and code examples, see the Go SDK Reference:
// https://docs.launchdarkly.com/sdk/server-side/go
type LDClient struct {
	sdkKey                           string
	loggers                          ldlog.Loggers
	eventProcessor                   ldevents.EventProcessor
	dataSource                       subsystems.DataSource
	store                            subsystems.DataStore
	evaluator                        evaluation.Evaluator
	dataSourceStatusBroadcaster      *internal.Broadcaster[interfaces.DataSourceStatus]
	dataSourceStatusProvider         interfaces.DataSourceStatusProvider
	dataStoreStatusBroadcaster       *internal.Broadcaster[interfaces.DataStoreStatus]
	dataStoreStatusProvider          interfaces.DataStoreStatusProvider
	flagChangeEventBroadcaster       *internal.Broadcaster[interfaces.FlagChangeEvent]
	flagTracker                      interfaces.FlagTracker
	bigSegmentStoreManager           *bigsegments.BigSegmentStoreManager
	bigSegmentStoreStatusBroadcaster *internal.Broadcaster[interfaces.BigSegmentStoreStatus]
	bigSegmentStoreStatusProvider    interfaces.BigSegmentStoreStatusProvider
	eventsDefault                    eventsScope
	eventsWithReasons                eventsScope
	withEventsDisabled               interfaces.LDClientInterface
	logEvaluationErrors              bool
	offline                          bool
}

// MakeClient creates a new client instance that connects to LaunchDarkly with the default
// configuration.
//
// For advanced configuration options, use [MakeCustomClient]. Calling MakeClient is exactly
// equivalent to calling MakeCustomClient with the config parameter set to an empty Config{}.
//
// The client will begin attempting to connect to LaunchDarkly as soon as you call this constructor.
// The constructor will return when it successfully connects, or when the timeout set by the waitFor
// parameter expires, whichever comes first.
//
// If the connection succeeded, the first return value is the client instance, and the error value is
// nil.
//
// If the timeout elapsed without a successful connection, it still returns a client instance-- in an
// uninitialized state, where feature flags will return default values-- and the error value is
// [ErrInitializationTimeout]. In this case, it will still continue trying to connect in the
// background.
//
// If there was an unrecoverable error preventing initialization (for instance, the SDK key is
// invalid), it will return a client instance in an uninitialized state, and the error value is
// [ErrInitializationFailed].
//
// If you set waitFor to zero, the function will return immediately after creating the client
// instance, and do any further initialization in the background.
func MakeClient(sdkKey string, waitFor time.Duration) (*LDClient, error) {
	// COVERAGE: this constructor cannot be called in unit tests because it uses the default base
	// URI and will attempt to make a live connection to LaunchDarkly.
	return MakeCustomClient(sdkKey, Config{}, waitFor)
}

// MakeCustomClient creates a new client instance that connects to LaunchDarkly with a custom
// configuration.
//
// The config parameter allows customization of all SDK properties; some of these are represented
// directly as fields in Config, while others are set by builder methods on a more specific
// configuration object. See [Config] for details.
//
// Unless it is configured to be offline with Config.Offline or [ldcomponents.ExternalUpdatesOnly],
// the client will begin attempting to connect to LaunchDarkly as soon as you call this constructor.
// The constructor will return when it successfully connects, or when the timeout set by the waitFor
// parameter expires, whichever comes first. See [MakeClient] for the behavior of each of those
// outcomes.
func MakeCustomClient(sdkKey string, config Config, waitFor time.Duration) (*LDClient, error) {
	// Ensure that any intermediate components we create will be disposed of if we return an error
	closeWhenReady := make(chan struct{})

	eventProcessorFactory := getEventProcessorFactory(config)

	clientContext, err := newClientContextFromConfig(sdkKey, config)
	if err != nil {
		return nil, err
	}

	// Do not create a diagnostics manager if diagnostics are disabled, or if we're not using the
	// standard event processor.
	if !config.DiagnosticOptOut {
		if _, ok := eventProcessorFactory.(*ldcomponents.EventProcessorBuilder); ok {
			clientContext.DiagnosticsManager = createDiagnosticsManager(clientContext, sdkKey, config, waitFor)
		}
	}

	loggers := clientContext.GetLogging().Loggers
	loggers.Infof("Starting LaunchDarkly client %s", Version)

	client := &LDClient{
		sdkKey:              sdkKey,
		loggers:             loggers,
		logEvaluationErrors: clientContext.GetLogging().LogEvaluationErrors,
		offline:             config.Offline,
	}

	client.dataStoreStatusBroadcaster = internal.NewDataStoreStatusBroadcaster()
	dataStoreUpdateSink := datastore.NewDataStoreUpdateSinkImpl(client.dataStoreStatusBroadcaster)
	storeFactory := config.DataStore
	if storeFactory == nil {
		storeFactory = ldcomponents.InMemoryDataStore()
	}
	clientContextWithDataStoreUpdateSink := *clientContext
	clientContextWithDataStoreUpdateSink.BasicClientContext.DataStoreUpdateSink = dataStoreUpdateSink
	store, err := storeFactory.Build(clientContextWithDataStoreUpdateSink)
	if err != nil {
		return nil, err
	}
	client.store = store
	client.dataStoreStatusProvider = datastore.NewDataStoreStatusProviderImpl(store, dataStoreUpdateSink)

	bigSegmentProvider, err := client.initBigSegments(config, clientContext, loggers)
	if err != nil {
		return nil, err
	}

	dataProvider := ldstoreimpl.NewDataStoreEvaluatorDataProvider(store, loggers)
	evalOptions := []evaluation.EvaluatorOption{
		evaluation.EvaluatorOptionErrorLogger(loggers.ForLevel(ldlog.Error)),
	}
	if bigSegmentProvider != nil {
		evalOptions = append(evalOptions, evaluation.EvaluatorOptionBigSegmentProvider(bigSegmentProvider))
	}
	client.evaluator = evaluation.NewEvaluatorWithOptions(dataProvider, evalOptions...)

	client.dataSourceStatusBroadcaster = internal.NewDataSourceStatusBroadcaster()
	client.flagChangeEventBroadcaster = internal.NewFlagChangeEventBroadcaster()
	dataSourceUpdateSink := datasource.NewDataSourceUpdateSinkImpl(
		store,
		client.dataStoreStatusProvider,
		client.dataSourceStatusBroadcaster,
		client.flagChangeEventBroadcaster,
		clientContext.GetLogging().LogDataSourceOutageAsErrorAfter,
		loggers,
	)

	client.eventProcessor, err = eventProcessorFactory.Build(clientContext)
	if err != nil {
		return nil, err
	}
	if isNullEventProcessorFactory(eventProcessorFactory) {
		client.eventsDefault = newDisabledEventsScope()
		client.eventsWithReasons = newDisabledEventsScope()
	} else {
		client.eventsDefault = newEventsScope(client, false)
		client.eventsWithReasons = newEventsScope(client, true)
	}
	client.withEventsDisabled = newClientEventsDisabledDecorator(client)

	client.dataSource, err = createDataSource(config, clientContext, dataSourceUpdateSink)
	if err != nil {
		return nil, err
	}
	client.dataSourceStatusProvider = datasource.NewDataSourceStatusProviderImpl(
		client.dataSourceStatusBroadcaster,
		dataSourceUpdateSink,
	)

	client.flagTracker = internal.NewFlagTrackerImpl(
		client.flagChangeEventBroadcaster,
		func(flagKey string, context ldcontext.Context, defaultValue ldvalue.Value) ldvalue.Value {
			value, _ := client.JSONVariation(flagKey, context, defaultValue)
			return value
		},
	)

	client.dataSource.Start(closeWhenReady)
	if waitFor > 0 && client.dataSource != datasource.NewNullDataSource() {
		loggers.Infof("Waiting up to %d milliseconds for LaunchDarkly client to start...",
			waitFor/time.Millisecond)

		// If you use a long timeout and wait for the timeout, then any network delays will cause
		// your application to wait a long time before continuing execution.
		if waitFor > time.Second*60 {
			loggers.Warn(
				"Client was configured to block for up to " + fmt.Sprintf("%d", waitFor/time.Millisecond) +
					" milliseconds when initializing. We recommend blocking no longer than 60 seconds.")
		}

		timeout := time.After(waitFor)
		for {
			select {
			case <-closeWhenReady:
				if !client.dataSource.IsInitialized() {
					loggers.Warn("LaunchDarkly client initialization failed")
					return client, ErrInitializationFailed
				}

				loggers.Info("Initialized LaunchDarkly client")
				return client, nil
			case <-timeout:
				loggers.Warn("Timeout encountered waiting for LaunchDarkly client initialization")
				go func() { <-closeWhenReady }() // Don't block the DataSource when not waiting
				return client, ErrInitializationTimeout
			}
		}
	}
	go func() { <-closeWhenReady }()
	return client, nil
}

func (client *LDClient) initBigSegments(
	config Config,
	clientContext *internal.ClientContextImpl,
	loggers ldlog.Loggers,
) (evaluation.BigSegmentProvider, error) {
	var bsConfig subsystems.BigSegmentsConfiguration
	if config.BigSegments != nil {
		var err error
		bsConfig, err = config.BigSegments.Build(clientContext)
		if err != nil {
			return nil, err
		}
	}

	var bigSegmentProvider evaluation.BigSegmentProvider
	if bsConfig != nil && bsConfig.GetStore() != nil {
		client.bigSegmentStoreManager = bigsegments.NewBigSegmentStoreManager(
			bsConfig.GetStore(),
			bsConfig.GetStatusPollInterval(),
			bsConfig.GetStaleAfter(),
			bsConfig.GetContextCacheSize(),
			bsConfig.GetContextCacheTime(),
			loggers,
		)
		bigSegmentProvider = bigsegments.NewBigSegmentProviderImpl(client.bigSegmentStoreManager)
	} else {
		// The status provider still needs a broadcaster to hand out listener channels, even though
		// nothing will ever be sent on them.
		client.bigSegmentStoreStatusBroadcaster = internal.NewBigSegmentStoreStatusBroadcaster()
	}
	client.bigSegmentStoreStatusProvider = bigsegments.NewBigSegmentStoreStatusProviderImplForManager(
		client.bigSegmentStoreManager,
		client.bigSegmentStoreStatusBroadcaster,
	)

	return bigSegmentProvider, nil
}

func createDataSource(
	config Config,
	context *internal.ClientContextImpl,
	dataSourceUpdateSink subsystems.DataSourceUpdateSink,
) (subsystems.DataSource, error) {
	if config.Offline {
		context.GetLogging().Loggers.Info("Starting LaunchDarkly client in offline mode")
		dataSourceUpdateSink.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
		return datasource.NewNullDataSource(), nil
	}
	factory := config.DataSource
	if factory == nil {
		// COVERAGE: can't cause this condition in unit tests because it would try to connect to production LD
		factory = ldcomponents.StreamingDataSource()
	}
	contextCopy := *context
	contextCopy.BasicClientContext.DataSourceUpdateSink = dataSourceUpdateSink
	return factory.Build(&contextCopy)
}

// MigrationVariation returns the migration stage of the migration feature flag for the given
// evaluation context.
//
// Returns defaultStage if there is an error or the flag does not exist. In this case, the returned
// error value describes the problem. The returned tracker can be used to record migration operation
// measurements; it is always non-nil, but will not generate a valid event if the flag did not exist.
func (client *LDClient) MigrationVariation(
	key string, context ldcontext.Context, defaultStage ldmigration.Stage,
) (ldmigration.Stage, interfaces.LDMigrationOpTracker, error) {
	return client.migrationVariation(key, context, defaultStage, client.eventsDefault)
}

// MigrationVariationCtx is a version of [LDClient.MigrationVariation] that takes a Go context
// parameter. The Go context is not used by the SDK in this implementation, but the method is
// provided for forward compatibility with request-scoped usage.
func (client *LDClient) MigrationVariationCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultStage ldmigration.Stage,
) (ldmigration.Stage, interfaces.LDMigrationOpTracker, error) {
	return client.migrationVariation(key, context, defaultStage, client.eventsDefault)
}

func (client *LDClient) migrationVariation(
	key string, context ldcontext.Context, defaultStage ldmigration.Stage, eventsScope eventsScope,
) (ldmigration.Stage, interfaces.LDMigrationOpTracker, error) {
	defaultStageAsValue := ldvalue.String(string(defaultStage))
	detail, flag, _ := client.variationAndFlag(key, context, defaultStageAsValue, false, eventsScope)
	tracker := NewMigrationOpTracker(flag, context, detail, defaultStage)

	stage, err := ldmigration.ParseStage(detail.Value.StringValue())
	if err != nil {
		return defaultStage, tracker, fmt.Errorf("%w; returning default stage %s", err, defaultStage)
	}

	return stage, tracker, nil
}

// Identify reports details about an evaluation context.
//
// For more information, see the Reference Guide: https://docs.launchdarkly.com/sdk/features/identify#go
func (client *LDClient) Identify(context ldcontext.Context) error {
	if client.eventsDefault.disabled {
		return nil
	}
	if err := context.Err(); err != nil {
		client.loggers.Warnf("Identify called with invalid context: %s", err)
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}
	evt := client.eventsDefault.factory.NewIdentifyEventData(ldevents.Context(context), ldvalue.NewOptionalInt(1))
	client.eventProcessor.RecordIdentifyEvent(evt)
	return nil
}

// TrackEvent reports an event associated with an evaluation context.
//
// The eventName parameter is defined by the application and will be shown in analytics reports;
// it normally corresponds to the event name of a metric that you have created through the
// LaunchDarkly dashboard. If you want to associate additional data with this event, use
// [LDClient.TrackData] or [LDClient.TrackMetric].
//
// For more information, see the Reference Guide: https://docs.launchdarkly.com/sdk/features/events#go
func (client *LDClient) TrackEvent(eventName string, context ldcontext.Context) error {
	return client.TrackData(eventName, context, ldvalue.Null())
}

// TrackData reports an event associated with an evaluation context, and adds custom data.
//
// The eventName parameter is defined by the application and will be shown in analytics reports;
// it normally corresponds to the event name of a metric that you have created through the
// LaunchDarkly dashboard.
//
// The data parameter is a value of any JSON type, represented with the ldvalue.Value type, that
// will be sent with the event. If no such value is needed, use [ldvalue.Null]() (or call
// [LDClient.TrackEvent] instead). To send a numeric value for experimentation, use
// [LDClient.TrackMetric].
//
// For more information, see the Reference Guide: https://docs.launchdarkly.com/sdk/features/events#go
func (client *LDClient) TrackData(eventName string, context ldcontext.Context, data ldvalue.Value) error {
	if client.eventsDefault.disabled {
		return nil
	}
	if err := context.Err(); err != nil {
		client.loggers.Warnf("Track called with invalid context: %s", err)
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}

	client.eventProcessor.RecordCustomEvent(
		client.eventsDefault.factory.NewCustomEventData(
			eventName, ldevents.Context(context), data, false, 0, ldvalue.NewOptionalInt(1)))

	return nil
}

// TrackMetric reports an event associated with an evaluation context, and adds a numeric value.
// This value is used by the LaunchDarkly experimentation feature in numeric custom metrics, and
// will also be returned as part of the custom event for Data Export.
//
// The eventName parameter is defined by the application and will be shown in analytics reports;
// it normally corresponds to the event name of a metric that you have created through the
// LaunchDarkly dashboard.
//
// The data parameter is a value of any JSON type, represented with the [ldvalue.Value] type, that
// will be sent with the event. If no such value is needed, use [ldvalue.Null]().
//
// For more information, see the Reference Guide: https://docs.launchdarkly.com/sdk/features/events#go
func (client *LDClient) TrackMetric(
	eventName string,
	context ldcontext.Context,
	metricValue float64,
	data ldvalue.Value,
) error {
	if client.eventsDefault.disabled {
		return nil
	}
	if err := context.Err(); err != nil {
		client.loggers.Warnf("TrackMetric called with invalid context: %s", err)
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}

	client.eventProcessor.RecordCustomEvent(
		client.eventsDefault.factory.NewCustomEventData(
			eventName, ldevents.Context(context), data, true, metricValue, ldvalue.NewOptionalInt(1)))

	return nil
}

// TrackMigrationOp reports a migration operation event. The event data is built by a
// [MigrationOpTracker], which is normally obtained from [LDClient.MigrationVariation] and
// used by a [Migrator]; most applications will not call this method directly.
func (client *LDClient) TrackMigrationOp(event ldevents.MigrationOpEventData) error {
	if client.eventsDefault.disabled {
		return nil
	}

	client.eventProcessor.RecordMigrationOpEvent(event)

	return nil
}

// IsOffline returns whether the LaunchDarkly client is in offline mode.
//
// This is only true if you explicitly set Config.Offline to true. It does not mean that the client
// is having a problem connecting to LaunchDarkly.
func (client *LDClient) IsOffline() bool {
	return client.offline
}

// SecureModeHash generates the secure mode hash value for an evaluation context.
//
// This is used with the LaunchDarkly JavaScript SDK when secure mode is enabled, to provide
// verification that the context being evaluated is the one that the server-side application
// authorized. For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/secure-mode#go
func (client *LDClient) SecureModeHash(context ldcontext.Context) string {
	key := []byte(client.sdkKey)
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(context.FullyQualifiedKey()))
	return hex.EncodeToString(h.Sum(nil))
}

// Initialized returns whether the LaunchDarkly client is initialized.
//
// If this value is true, it means the client has succeeded at some point in connecting to
// LaunchDarkly and has received feature flag data. It could still have encountered a connection
// problem after that point, so this does not guarantee that the flags are up to date; if you need
// to know its status in more detail, use [LDClient.GetDataSourceStatusProvider].
//
// If this value is false, it means the client has not yet connected to LaunchDarkly, or has
// permanently failed. See [MakeClient] for the reasons that this could happen. In this state,
// feature flag evaluations will always return default values-- unless you are using a database
// integration and feature flag data has already been stored in the database by a successfully
// connected SDK in the past. You can use [LDClient.GetDataSourceStatusProvider] to get information
// on errors, or to wait for a successful retry.
func (client *LDClient) Initialized() bool {
	return client.dataSource.IsInitialized()
}

// Close shuts down the LaunchDarkly client. After calling this, the LaunchDarkly client
// should no longer be used. The method will block until all pending analytics events (if events
// are enabled) have been sent.
func (client *LDClient) Close() error {
	client.loggers.Info("Closing LaunchDarkly client")

	// Normally all of the following components exist; but they could be nil if we errored out
	// partway through the MakeCustomClient constructor, in which case we want to close whatever
	// did get created so far.
	if client.eventProcessor != nil {
		_ = client.eventProcessor.Close()
	}
	if client.dataSource != nil {
		_ = client.dataSource.Close()
	}
	if client.store != nil {
		_ = client.store.Close()
	}
	if client.dataSourceStatusBroadcaster != nil {
		client.dataSourceStatusBroadcaster.Close()
	}
	if client.dataStoreStatusBroadcaster != nil {
		client.dataStoreStatusBroadcaster.Close()
	}
	if client.flagChangeEventBroadcaster != nil {
		client.flagChangeEventBroadcaster.Close()
	}
	if client.bigSegmentStoreStatusBroadcaster != nil {
		client.bigSegmentStoreStatusBroadcaster.Close()
	}
	if client.bigSegmentStoreManager != nil {
		client.bigSegmentStoreManager.Close()
	}
	return nil
}

// Flush tells the client that all pending analytics events (if any) should be delivered as soon
// as possible. This flush is asynchronous, so this method will return before it is complete. To
// wait for the flush to complete, use [LDClient.FlushAndWait] instead (or, if you are done with
// the SDK, [LDClient.Close]).
//
// For more information, see the Reference Guide: https://docs.launchdarkly.com/sdk/features/flush#go
func (client *LDClient) Flush() {
	client.eventProcessor.Flush()
}

// FlushAndWait tells the client to deliver any pending analytics events synchronously now.
//
// Unlike [LDClient.Flush], this method waits for event delivery to finish. The timeout parameter,
// if greater than zero, specifies the maximum amount of time to wait. If the timeout elapses before
// delivery is finished, the method returns early and returns false; in this case, the SDK may still
// continue trying to deliver the events in the background.
//
// If the timeout parameter is zero or negative, the method waits as long as necessary to deliver
// the events. However, the SDK does not retry event delivery indefinitely; currently, any network
// error or server error will cause the SDK to wait one second and retry one time, after which the
// events will be discarded so that the SDK will not use any more memory for them.
//
// The method returns true if event delivery either succeeded, or definitively failed, before the
// timeout elapsed. It returns false if the timeout elapsed.
//
// This method is also implicitly called if you call [LDClient.Close]. The difference is that
// FlushAndWait does not shut down the SDK client.
func (client *LDClient) FlushAndWait(timeout time.Duration) bool {
	return client.eventProcessor.FlushBlocking(timeout)
}

// AllFlagsState returns an object that encapsulates the state of all feature flags for a given
// evaluation context. This includes the flag values, and also metadata that can be used on the
// front end.
//
// The most common use case for this method is to bootstrap a set of client-side feature flags
// from a back-end service.
//
// You may pass any combination of [flagstate.OptionClientSideOnly],
// [flagstate.OptionWithReasons], and [flagstate.OptionDetailsOnlyForTrackedFlags] as optional
// parameters to control what data is included.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/all-flags#go
func (client *LDClient) AllFlagsState(context ldcontext.Context, options ...flagstate.Option) flagstate.AllFlags {
	valid := true
	if client.IsOffline() {
		client.loggers.Warn("Called AllFlagsState in offline mode. Returning empty state")
		valid = false
	} else if !client.Initialized() {
		if client.store.IsInitialized() {
			client.loggers.Warn("Called AllFlagsState before client initialization; using last known values from data store")
		} else {
			client.loggers.Warn("Called AllFlagsState before client initialization. Data store not available; returning empty state") //nolint:lll
			valid = false
		}
	}

	if !valid {
		return flagstate.AllFlags{}
	}

	items, err := client.store.GetAll(datakinds.Features)
	if err != nil {
		client.loggers.Warn("Unable to fetch flags from data store. Returning empty state. Error: " + err.Error())
		return flagstate.AllFlags{}
	}

	clientSideOnly := flagstate.HasOption(options, flagstate.OptionClientSideOnly())
	state := flagstate.NewAllFlagsBuilder(options...)
	for _, item := range items {
		if item.Item.Item == nil {
			continue
		}
		if flag, ok := item.Item.Item.(*ldmodel.FeatureFlag); ok {
			if clientSideOnly && !flag.ClientSideAvailability.UsingEnvironmentID {
				continue
			}

			result := client.evaluator.Evaluate(flag, context, nil)

			state.AddFlag(item.Key, flagstate.FlagState{
				Value:                result.Detail.Value,
				Variation:            result.Detail.VariationIndex,
				Version:              flag.Version,
				Reason:               result.Detail.Reason,
				TrackEvents:          flag.TrackEvents || result.IsExperiment,
				TrackReason:          result.IsExperiment,
				DebugEventsUntilDate: flag.DebugEventsUntilDate,
			})
		}
	}

	return state.Build()
}

// BoolVariation returns the value of a boolean feature flag for a given evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned
// off and has no off variation.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluating#go
func (client *LDClient) BoolVariation(key string, context ldcontext.Context, defaultVal bool) (bool, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Bool(defaultVal), true, client.eventsDefault)
	return detail.Value.BoolValue(), err
}

// BoolVariationDetail is the same as [LDClient.BoolVariation], but also returns further
// information about how the value was calculated. The "reason" data will also be included in
// analytics events.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluation-reasons#go
func (client *LDClient) BoolVariationDetail(key string, context ldcontext.Context, defaultVal bool) (
	bool, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Bool(defaultVal), true, client.eventsWithReasons)
	return detail.Value.BoolValue(), detail, err
}

// IntVariation returns the value of a feature flag (whose variations are integers) for the given
// evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned
// off and has no off variation.
//
// If the flag variation has a numeric value that is not an integer, it is rounded toward zero
// (truncated).
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluating#go
func (client *LDClient) IntVariation(key string, context ldcontext.Context, defaultVal int) (int, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Int(defaultVal), true, client.eventsDefault)
	return detail.Value.IntValue(), err
}

// IntVariationDetail is the same as [LDClient.IntVariation], but also returns further information
// about how the value was calculated. The "reason" data will also be included in analytics events.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluation-reasons#go
func (client *LDClient) IntVariationDetail(key string, context ldcontext.Context, defaultVal int) (
	int, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Int(defaultVal), true, client.eventsWithReasons)
	return detail.Value.IntValue(), detail, err
}

// Float64Variation returns the value of a feature flag (whose variations are floats) for the
// given evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned
// off and has no off variation.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluating#go
func (client *LDClient) Float64Variation(key string, context ldcontext.Context, defaultVal float64) (float64, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Float64(defaultVal), true, client.eventsDefault)
	return detail.Value.Float64Value(), err
}

// Float64VariationDetail is the same as [LDClient.Float64Variation], but also returns further
// information about how the value was calculated. The "reason" data will also be included in
// analytics events.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluation-reasons#go
func (client *LDClient) Float64VariationDetail(key string, context ldcontext.Context, defaultVal float64) (
	float64, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Float64(defaultVal), true, client.eventsWithReasons)
	return detail.Value.Float64Value(), detail, err
}

// StringVariation returns the value of a feature flag (whose variations are strings) for the
// given evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned
// off and has no off variation.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluating#go
func (client *LDClient) StringVariation(key string, context ldcontext.Context, defaultVal string) (string, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.String(defaultVal), true, client.eventsDefault)
	return detail.Value.StringValue(), err
}

// StringVariationDetail is the same as [LDClient.StringVariation], but also returns further
// information about how the value was calculated. The "reason" data will also be included in
// analytics events.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluation-reasons#go
func (client *LDClient) StringVariationDetail(key string, context ldcontext.Context, defaultVal string) (
	string, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.String(defaultVal), true, client.eventsWithReasons)
	return detail.Value.StringValue(), detail, err
}

// JSONVariation returns the value of a feature flag for the given evaluation context, allowing
// the value to be of any JSON type.
//
// The value is returned as an [ldvalue.Value], which can be inspected or converted to other types
// using methods such as GetType() and BoolValue(). The defaultVal parameter also uses this type.
// For instance, if the values for this flag are JSON arrays:
//
//	defaultValAsArray := ldvalue.BuildArray().
//	    Add(ldvalue.String("defaultFirstItem")).
//	    Add(ldvalue.String("defaultSecondItem")).
//	    Build()
//	result, err := client.JSONVariation(flagKey, context, defaultValAsArray)
//	firstItemAsString := result.GetByIndex(0).StringValue() // "defaultFirstItem", etc.
//
// You can also use unparsed json.RawMessage values:
//
//	defaultValAsRawJSON := ldvalue.Raw(json.RawMessage(`{"things":[1,2,3]}`))
//	result, err := client.JSONVariation(flagKey, context, defaultValAsRawJSON)
//	resultAsRawJSON := result.AsRaw()
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned off.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluating#go
func (client *LDClient) JSONVariation(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
) (ldvalue.Value, error) {
	detail, _, err := client.variationAndFlag(key, context, defaultVal, false, client.eventsDefault)
	return detail.Value, err
}

// JSONVariationDetail is the same as [LDClient.JSONVariation], but also returns further
// information about how the value was calculated. The "reason" data will also be included in
// analytics events.
//
// For more information, see the Reference Guide:
// https://docs.launchdarkly.com/sdk/features/evaluation-reasons#go
func (client *LDClient) JSONVariationDetail(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
) (ldvalue.Value, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, defaultVal, false, client.eventsWithReasons)
	return detail.Value, detail, err
}

// BoolVariationCtx is a version of [LDClient.BoolVariation] that takes a Go context parameter.
// The Go context is not currently used during evaluation, but the method is provided for
// forward compatibility with request-scoped usage.
func (client *LDClient) BoolVariationCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal bool,
) (bool, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Bool(defaultVal), true, client.eventsDefault)
	return detail.Value.BoolValue(), err
}

// BoolVariationDetailCtx is a version of [LDClient.BoolVariationDetail] that takes a Go context
// parameter.
func (client *LDClient) BoolVariationDetailCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal bool,
) (bool, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Bool(defaultVal), true, client.eventsWithReasons)
	return detail.Value.BoolValue(), detail, err
}

// IntVariationCtx is a version of [LDClient.IntVariation] that takes a Go context parameter.
func (client *LDClient) IntVariationCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal int,
) (int, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Int(defaultVal), true, client.eventsDefault)
	return detail.Value.IntValue(), err
}

// IntVariationDetailCtx is a version of [LDClient.IntVariationDetail] that takes a Go context
// parameter.
func (client *LDClient) IntVariationDetailCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal int,
) (int, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Int(defaultVal), true, client.eventsWithReasons)
	return detail.Value.IntValue(), detail, err
}

// Float64VariationCtx is a version of [LDClient.Float64Variation] that takes a Go context parameter.
func (client *LDClient) Float64VariationCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal float64,
) (float64, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Float64(defaultVal), true, client.eventsDefault)
	return detail.Value.Float64Value(), err
}

// Float64VariationDetailCtx is a version of [LDClient.Float64VariationDetail] that takes a Go
// context parameter.
func (client *LDClient) Float64VariationDetailCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal float64,
) (float64, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.Float64(defaultVal), true, client.eventsWithReasons)
	return detail.Value.Float64Value(), detail, err
}

// StringVariationCtx is a version of [LDClient.StringVariation] that takes a Go context parameter.
func (client *LDClient) StringVariationCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal string,
) (string, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.String(defaultVal), true, client.eventsDefault)
	return detail.Value.StringValue(), err
}

// StringVariationDetailCtx is a version of [LDClient.StringVariationDetail] that takes a Go
// context parameter.
func (client *LDClient) StringVariationDetailCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal string,
) (string, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, ldvalue.String(defaultVal), true, client.eventsWithReasons)
	return detail.Value.StringValue(), detail, err
}

// JSONVariationCtx is a version of [LDClient.JSONVariation] that takes a Go context parameter.
func (client *LDClient) JSONVariationCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
) (ldvalue.Value, error) {
	detail, _, err := client.variationAndFlag(key, context, defaultVal, false, client.eventsDefault)
	return detail.Value, err
}

// JSONVariationDetailCtx is a version of [LDClient.JSONVariationDetail] that takes a Go context
// parameter.
func (client *LDClient) JSONVariationDetailCtx(
	ctx gocontext.Context,
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
) (ldvalue.Value, ldreason.EvaluationDetail, error) {
	detail, _, err := client.variationAndFlag(key, context, defaultVal, false, client.eventsWithReasons)
	return detail.Value, detail, err
}

// GetDataSourceStatusProvider returns an interface for tracking the status of the data source.
//
// The data source is the mechanism that the SDK uses to get feature flag configurations, such as
// a streaming connection (the default) or poll requests. The
// [interfaces.DataSourceStatusProvider] has methods for checking whether the data source is (as
// far as the SDK knows) currently operational, and tracking changes in this status.
func (client *LDClient) GetDataSourceStatusProvider() interfaces.DataSourceStatusProvider {
	return client.dataSourceStatusProvider
}

// GetDataStoreStatusProvider returns an interface for tracking the status of a persistent data
// store.
//
// The [interfaces.DataStoreStatusProvider] has methods for checking whether the data store is (as
// far as the SDK knows) currently operational and tracking changes in this status. These are only
// relevant for a persistent store like a database; if you are using an in-memory data store (the
// default), then this status will always be reported as "available".
func (client *LDClient) GetDataStoreStatusProvider() interfaces.DataStoreStatusProvider {
	return client.dataStoreStatusProvider
}

// GetFlagTracker returns an interface for tracking changes in feature flag configurations.
//
// See [interfaces.FlagTracker] for more about this functionality.
func (client *LDClient) GetFlagTracker() interfaces.FlagTracker {
	return client.flagTracker
}

// GetBigSegmentStoreStatusProvider returns an interface for tracking the status of a Big Segment
// store.
//
// The [interfaces.BigSegmentStoreStatusProvider] has methods for checking whether the Big Segment
// store is (as far as the SDK knows) currently operational and tracking changes in this status.
func (client *LDClient) GetBigSegmentStoreStatusProvider() interfaces.BigSegmentStoreStatusProvider {
	return client.bigSegmentStoreStatusProvider
}

// Loggers exposes the SDK's configured logging destination. This is used by SDK extensions such
// as the [Migrator]; applications normally configure logging with Config.Logging instead of
// logging through the client.
func (client *LDClient) Loggers() ldlog.Loggers {
	return client.loggers
}

// WithEventsDisabled returns a decorator for the LDClient that implements the same basic
// operations but will not generate any analytics events.
//
// If events were already disabled, this is just the same LDClient. Otherwise, it is an object
// whose Variation methods use the same LDClient to evaluate feature flags, but without generating
// any events, and whose Identify/Track/Custom methods do nothing. Neither evaluation counts nor
// context properties will be sent to LaunchDarkly for any operations done with this object.
//
// You can use this to suppress events within some particular area of your code where you do not
// want evaluations to affect your dashboard statistics, or do not want to incur the overhead of
// processing the events.
//
// Note that if the original client configuration already had events disabled
// (config.Events = ldcomponents.NoEvents()), you cannot re-enable them with this method. It is
// only useful for temporarily disabling events on a client that had them enabled.
func (client *LDClient) WithEventsDisabled(eventsDisabled bool) interfaces.LDClientInterface {
	if !eventsDisabled || client.eventsDefault.disabled {
		return client
	}
	return client.withEventsDisabled
}

// Generic method for evaluating a feature flag for a given evaluation context. The returned flag
// pointer is nil if the flag was not found.
func (client *LDClient) variationAndFlag(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
	checkType bool,
	eventsScope eventsScope,
) (ldreason.EvaluationDetail, *ldmodel.FeatureFlag, error) {
	if err := context.Err(); err != nil {
		client.loggers.Warnf("Tried to evaluate a flag with an invalid context: %s", err)
		return newEvaluationError(defaultVal, ldreason.EvalErrorUserNotSpecified), nil, err
	}

	result, flag, err := client.evaluateInternal(key, context, defaultVal, eventsScope)

	detail := result.Detail
	if err == nil && checkType && defaultVal.Type() != ldvalue.NullType &&
		detail.Value.Type() != defaultVal.Type() {
		detail = newEvaluationError(defaultVal, ldreason.EvalErrorWrongType)
	}

	if !eventsScope.disabled {
		var evt ldevents.EvaluationData
		if flag == nil {
			evt = eventsScope.factory.NewUnknownFlagEvaluationData(
				key,
				ldevents.Context(context),
				defaultVal,
				detail.Reason,
			)
		} else {
			evt = eventsScope.factory.NewEvaluationData(
				ldevents.FlagEventProperties{
					Key:                  flag.Key,
					Version:              flag.Version,
					RequireFullEvent:     flag.TrackEvents,
					DebugEventsUntilDate: flag.DebugEventsUntilDate,
				},
				ldevents.Context(context),
				detail,
				result.IsExperiment,
				defaultVal,
				"",
				flag.SamplingRatio,
				flag.ExcludeFromSummaries,
			)
		}
		client.eventProcessor.RecordEvaluation(evt)
	}

	return detail, flag, err
}

// Performs all the steps of evaluation except for generating the main event for the evaluation
// (the prerequisite events function is still attached, if events are enabled, so any prerequisite
// evaluations will produce events).
func (client *LDClient) evaluateInternal(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
	eventsScope eventsScope,
) (evaluation.Result, *ldmodel.FeatureFlag, error) {
	// THIS IS A HIGH-TRAFFIC code path so we should be careful about allocations

	evalErrorResult := func(
		errKind ldreason.EvalErrorKind,
		flag *ldmodel.FeatureFlag,
		err error,
	) (evaluation.Result, *ldmodel.FeatureFlag, error) {
		detail := newEvaluationError(defaultVal, errKind)
		if client.logEvaluationErrors {
			client.loggers.Warn(err)
		}
		return evaluation.Result{Detail: detail}, flag, err
	}

	if !client.Initialized() {
		if client.store.IsInitialized() {
			client.loggers.Warn("Feature flag evaluation called before LaunchDarkly client initialization completed; using last known values from data store") //nolint:lll
		} else {
			return evalErrorResult(ldreason.EvalErrorClientNotReady, nil, ErrClientNotInitialized)
		}
	}

	itemDesc, storeErr := client.store.Get(datakinds.Features, key)

	if storeErr != nil {
		client.loggers.Errorf("Encountered error fetching feature from store: %+v", storeErr)
		detail := newEvaluationError(defaultVal, ldreason.EvalErrorException)
		return evaluation.Result{Detail: detail}, nil, storeErr
	}

	var feature *ldmodel.FeatureFlag
	if itemDesc.Item != nil {
		var ok bool
		feature, ok = itemDesc.Item.(*ldmodel.FeatureFlag)
		if !ok {
			return evalErrorResult(ldreason.EvalErrorException, nil,
				fmt.Errorf(
					"unexpected data type (%T) found in store for feature key: %s. Check your database configuration!",
					itemDesc.Item,
					key,
				))
		}
	} else {
		return evalErrorResult(ldreason.EvalErrorFlagNotFound, nil,
			fmt.Errorf("unknown feature key: %s. Verify that this feature key exists. Returning default value", key))
	}

	result := client.evaluator.Evaluate(feature, context, eventsScope.prerequisiteEventRecorder)
	if result.Detail.Reason.GetKind() == ldreason.EvalReasonError && client.logEvaluationErrors {
		client.loggers.Warnf("Flag evaluation for %s failed with error %s, default value was returned",
			key, result.Detail.Reason.GetErrorKind())
	}
	if result.Detail.IsDefaultValue() {
		result.Detail.Value = defaultVal
	}
	return result, feature, nil
}

func newEvaluationError(jsonValue ldvalue.Value, errorKind ldreason.EvalErrorKind) ldreason.EvaluationDetail {
	return ldreason.EvaluationDetail{
		Value:  jsonValue,
		Reason: ldreason.NewEvalReasonError(errorKind),
	}
}
