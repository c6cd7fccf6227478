package evaluation

import (
	"fmt"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
)

// Evaluator is the engine for evaluating feature flags.
type Evaluator interface {
	// Evaluate evaluates a feature flag for the specified evaluation context.
	//
	// The flag is passed by reference only for efficiency; the evaluator will never modify any flag
	// properties. Passing a nil flag will result in a panic.
	//
	// The evaluator does not know anything about analytics events; generating any appropriate
	// analytics events is the responsibility of the caller, who can also provide a callback in
	// prerequisiteFlagEventRecorder to be notified if any additional evaluations were done due to
	// prerequisites. The prerequisiteFlagEventRecorder parameter can be nil if you do not need to
	// track prerequisite evaluations.
	Evaluate(
		flag *ldmodel.FeatureFlag,
		context ldcontext.Context,
		prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
	) Result
}

// Result is the result of a flag evaluation.
type Result struct {
	// Detail is the evaluation result value, variation index, and reason.
	Detail ldreason.EvaluationDetail

	// IsExperiment is true if this evaluation result was determined by an experiment, or by some
	// other condition that requires full event tracking (such as a rule with event tracking
	// enabled). The SDK uses this to force the generation of a full analytics event with an
	// evaluation reason, overriding the regular event configuration.
	IsExperiment bool
}

// PrerequisiteFlagEventRecorder is a function that Evaluator.Evaluate() will call to record the
// result of a prerequisite flag evaluation.
type PrerequisiteFlagEventRecorder func(PrerequisiteFlagEvent)

// PrerequisiteFlagEvent is the parameter data passed to PrerequisiteFlagEventRecorder.
type PrerequisiteFlagEvent struct {
	// TargetFlagKey is the key of the feature flag that had a prerequisite.
	TargetFlagKey string
	// Context is the evaluation context that the flag was evaluated for. We pass this back to the
	// caller, even though the caller already passed it to us in the Evaluate parameters, so that the
	// caller can provide a stateless function for PrerequisiteFlagEventRecorder rather than a closure
	// (since closures are less efficient).
	Context ldcontext.Context
	// PrerequisiteFlag is the full configuration of the prerequisite flag. We need to pass the full
	// flag here rather than just the key because the flag's properties (such as TrackEvents) can
	// affect how events are generated. This is passed by reference for efficiency only, and will
	// never be nil; the PrerequisiteFlagEventRecorder must not modify the flag's properties.
	PrerequisiteFlag *ldmodel.FeatureFlag
	// PrerequisiteResult is the result of evaluating the prerequisite flag.
	PrerequisiteResult Result
}

// DataProvider is an abstraction for querying feature flags and segments from a data store. The
// caller provides an implementation of this interface to NewEvaluator.
//
// Flags and segments are returned by reference for efficiency only (on the assumption that the
// caller already has these objects in memory); the evaluator will never modify their properties.
type DataProvider interface {
	// GetFeatureFlag attempts to retrieve a feature flag from the data store by key.
	//
	// The evaluator calls this method if a flag contains a prerequisite condition referencing
	// another flag.
	//
	// The method returns nil if the flag was not found. The DataProvider should treat any deleted
	// flag as "not found" even if the data store contains a deleted flag placeholder for it.
	GetFeatureFlag(key string) *ldmodel.FeatureFlag
	// GetSegment attempts to retrieve a segment from the data store by key.
	//
	// The evaluator calls this method if a clause in a flag rule uses the OperatorSegmentMatch
	// test.
	//
	// The method returns nil if the segment was not found. The DataProvider should treat any deleted
	// segment as "not found" even if the data store contains a deleted segment placeholder for it.
	GetSegment(key string) *ldmodel.Segment
}

// BigSegmentProvider is an abstraction for querying membership in Big Segments. The caller can
// provide an implementation of this interface to NewEvaluatorWithOptions.
type BigSegmentProvider interface {
	// GetBigSegmentMembership queries a snapshot of the current segment state for a specific
	// context key, returning it along with a status value describing whether the store is
	// considered to be in a valid state.
	//
	// The evaluator will call this method at most once per context key during an evaluation.
	//
	// Returning a nil BigSegmentMembership value is equivalent to a membership that returns
	// ldvalue.OptionalBool{} for every segment.
	GetBigSegmentMembership(contextKey string) (BigSegmentMembership, ldreason.BigSegmentsStatus)
}

// BigSegmentMembership is the return type of BigSegmentProvider.GetBigSegmentMembership(). It is
// associated with a single context key, and provides the ability to check whether that key is
// included in or excluded from any number of Big Segments.
//
// This is an immutable snapshot of the state for this context key at the time
// GetBigSegmentMembership was called. Calling CheckMembership should not cause the state to be
// queried again. The object should be safe for concurrent access by multiple goroutines.
type BigSegmentMembership interface {
	// CheckMembership tests whether the context key is explicitly included or explicitly excluded
	// in the specified segment, or neither. The segment is identified by a segmentRef which is not
	// the same as the segment key: it includes the key but also versioning information that the SDK
	// will provide. The store implementation should not be concerned with the format of this.
	//
	// If the context key is explicitly included (regardless of whether it is also explicitly
	// excluded or not-- that is, inclusion takes priority over exclusion), the method returns an
	// OptionalBool with a true value.
	//
	// If the context key is explicitly excluded, and is not explicitly included, the method returns
	// an OptionalBool with a false value.
	//
	// If the membership status in the segment is undefined, the method returns OptionalBool{} with
	// no value.
	CheckMembership(segmentRef string) ldvalue.OptionalBool
}

// MakeBigSegmentRef produces the string that is used to identify a big segment's membership data
// in a BigSegmentStore, combining the segment key with the segment's current generation.
//
// Big segment data for a context key is logically a set of these strings, so that if a segment is
// deleted and recreated (producing a new generation), the memberships for the old generation do
// not produce false matches.
func MakeBigSegmentRef(s *ldmodel.Segment) string {
	// The format of Big Segment references is independent of what store implementation is being
	// used; the store implementation receives only this string and does not know the details of
	// the data model. The Relay Proxy will use the same format when writing to the store.
	return fmt.Sprintf("%s.g%d", s.Key, s.Generation.IntValue())
}
