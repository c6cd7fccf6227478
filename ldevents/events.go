package ldevents

import (
	"encoding/json"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldmigration"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// EventInputContext represents context information that is being used as part of the inputs to an
// event-generating action. It is a combination of the standard ldcontext.Context struct with
// additional information that may be relevant outside of the standard SDK event generation context.
//
// Specifically, this is because ld-relay uses go-server-sdk-core to post-process events it has
// received from the PHP SDK. In this scenario the PHP SDK will have already applied the
// private-attribute-redaction logic, so there is no need to do any further changes to the context
// data during event serialization, and the correct serialized form of the context is simply a raw
// JSON blob that was provided by the PHP SDK.
//
// For all standard usage in the Go SDK, use the Context constructor.
type EventInputContext struct {
	context       ldcontext.Context
	preserialized json.RawMessage
}

// Context creates an EventInputContext that is exactly equivalent to the given Context.
func Context(context ldcontext.Context) EventInputContext {
	return EventInputContext{context: context}
}

// PreserializedContext creates an EventInputContext that contains both a Context and a
// pre-serialized JSON representation of it. Events that include this context will use that JSON
// representation exactly as provided, rather than serializing the Context. This is for use cases
// where the JSON has already had private attributes redacted, such as events received from the
// PHP SDK. The JSON representation is assumed to be syntactically valid; if it is not, event data
// may be corrupted.
func PreserializedContext(context ldcontext.Context, jsonData json.RawMessage) EventInputContext {
	return EventInputContext{context: context, preserialized: jsonData}
}

// BaseEvent provides properties common to all events.
type BaseEvent struct {
	CreationDate ldtime.UnixMillisecondTime
	Context      EventInputContext
}

// EvaluationData is generated by calling one of the feature flag evaluation methods.
type EvaluationData struct {
	BaseEvent
	// Key is the flag key.
	Key string
	// Variation is the result variation index. It is empty if evaluation failed.
	Variation ldvalue.OptionalInt
	// Value is the result value.
	Value ldvalue.Value
	// Default is the default value that was passed in by the application.
	Default ldvalue.Value
	// Version is the flag version. It is empty if the flag was not found.
	Version ldvalue.OptionalInt
	// PrereqOf is normally empty, but if this evaluation was done for a prerequisite, it is the key of the
	// original key that referenced this flag as a prerequisite.
	PrereqOf ldvalue.OptionalString
	// Reason is the evaluation reason, if the reason should be included in the event, or empty otherwise.
	Reason ldreason.EvaluationReason
	// RequireFullEvent is true if full-fidelity analytics events should be sent for this flag.
	RequireFullEvent bool
	// DebugEventsUntilDate is non-zero if event debugging is enabled for this flag until the specified time.
	DebugEventsUntilDate ldtime.UnixMillisecondTime
	// SamplingRatio determines the 1 in x chance the event will be sampled.
	SamplingRatio ldvalue.OptionalInt
	// ExcludeFromSummaries determines if the event should be included in summary events.
	ExcludeFromSummaries bool
	debug                bool
}

// CustomEventData is generated by calling the client's Track methods.
type CustomEventData struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasMetric   bool
	MetricValue float64
	// SamplingRatio determines the 1 in x chance the event will be sampled.
	SamplingRatio ldvalue.OptionalInt
}

// IdentifyEventData is generated by calling the client's Identify method.
type IdentifyEventData struct {
	BaseEvent
	// SamplingRatio determines the 1 in x chance the event will be sampled.
	SamplingRatio ldvalue.OptionalInt
}

// MigrationOpEventData is generated through the migration op tracker.
type MigrationOpEventData struct {
	BaseEvent
	Op               ldmigration.Operation
	FlagKey          string
	Default          ldmigration.Stage
	Evaluation       ldreason.EvaluationDetail
	SamplingRatio    ldvalue.OptionalInt
	Version          ldvalue.OptionalInt
	ConsistencyCheck *ldmigration.ConsistencyCheck
	Error            map[ldmigration.Origin]bool
	Invoked          map[ldmigration.Origin]bool
	Latency          map[ldmigration.Origin]int
}

// indexEvent is generated internally to capture the context details from other events.
type indexEvent struct {
	BaseEvent
}

// rawEvent is used internally when the caller wants to pass a JSON event payload through the event
// pipeline without any further processing.
type rawEvent struct {
	data json.RawMessage
}

// anyEventInput and anyEventOutput only exist to clarify the type signatures of the event
// pipeline: "input" is events that have been passed in to the event processor, "output" is
// the larger set of types that can appear in a delivered event payload.
type anyEventInput interface{}
type anyEventOutput interface{}

// FlagEventProperties contains basic information about a feature flag that the events package
// needs. This allows the SDK to use whatever flag data model it wants, as long as it can provide
// these values.
type FlagEventProperties struct {
	// Key is the feature flag key.
	Key string
	// Version is the feature flag version.
	Version int
	// RequireFullEvent is true if the flag has been configured to always generate detailed event data.
	RequireFullEvent bool
	// DebugEventsUntilDate is non-zero if event debugging has been temporarily enabled for the flag.
	// It is the time at which debugging mode should expire.
	DebugEventsUntilDate ldtime.UnixMillisecondTime
}

// EventFactory is a configurable factory for event objects.
type EventFactory struct {
	includeReasons bool
	timeFn         func() ldtime.UnixMillisecondTime
}

// NewEventFactory creates an EventFactory.
//
// The includeReasons parameter is true if evaluation events should always include the EvaluationReason (this is
// used by the SDK when one of the "VariationDetail" methods is called). The timeFn parameter is normally nil but
// can be used to instrument the EventFactory with a source of time data other than the standard clock.
func NewEventFactory(includeReasons bool, timeFn func() ldtime.UnixMillisecondTime) EventFactory {
	if timeFn == nil {
		timeFn = ldtime.UnixMillisNow
	}
	return EventFactory{includeReasons, timeFn}
}

// NewUnknownFlagEvaluationData creates EvaluationData for a missing flag.
func (f EventFactory) NewUnknownFlagEvaluationData(
	key string,
	context EventInputContext,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
) EvaluationData {
	ed := EvaluationData{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
		Key:     key,
		Value:   defaultVal,
		Default: defaultVal,
	}
	if f.includeReasons {
		ed.Reason = reason
	}
	return ed
}

// NewEvaluationData creates EvaluationData for a successful flag evaluation.
func (f EventFactory) NewEvaluationData(
	flagProps FlagEventProperties,
	context EventInputContext,
	detail ldreason.EvaluationDetail,
	forceReasonInclusion bool,
	defaultVal ldvalue.Value,
	prereqOf string,
	samplingRatio ldvalue.OptionalInt,
	excludeFromSummaries bool,
) EvaluationData {
	ed := EvaluationData{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
		Key:                  flagProps.Key,
		Version:              ldvalue.NewOptionalInt(flagProps.Version),
		Variation:            detail.VariationIndex,
		Value:                detail.Value,
		Default:              defaultVal,
		RequireFullEvent:     flagProps.RequireFullEvent,
		DebugEventsUntilDate: flagProps.DebugEventsUntilDate,
		SamplingRatio:        samplingRatio,
		ExcludeFromSummaries: excludeFromSummaries,
	}
	if f.includeReasons || forceReasonInclusion {
		ed.Reason = detail.Reason
	}
	if prereqOf != "" {
		ed.PrereqOf = ldvalue.NewOptionalString(prereqOf)
	}
	return ed
}

// NewCustomEventData creates input parameters for a custom event. No event is actually generated until this
// is passed to EventProcessor.RecordCustomEvent.
func (f EventFactory) NewCustomEventData(
	key string,
	context EventInputContext,
	data ldvalue.Value,
	withMetric bool,
	metricValue float64,
	samplingRatio ldvalue.OptionalInt,
) CustomEventData {
	ce := CustomEventData{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
		Key:           key,
		Data:          data,
		HasMetric:     withMetric,
		MetricValue:   metricValue,
		SamplingRatio: samplingRatio,
	}
	return ce
}

// NewIdentifyEventData constructs input parameters for an identify event. No event is actually generated until this
// is passed to EventProcessor.RecordIdentifyEvent.
func (f EventFactory) NewIdentifyEventData(context EventInputContext, samplingRatio ldvalue.OptionalInt) IdentifyEventData {
	return IdentifyEventData{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
		SamplingRatio: samplingRatio,
	}
}
