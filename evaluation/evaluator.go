package evaluation

import (
	"errors"
	"fmt"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
)

type evaluator struct {
	dataProvider       DataProvider
	bigSegmentProvider BigSegmentProvider
	errorLogger        ldlog.BaseLogger
}

// EvaluatorOption is an optional parameter for NewEvaluatorWithOptions.
type EvaluatorOption interface {
	apply(e *evaluator)
}

type evaluatorOptionBigSegmentProvider struct{ bigSegmentProvider BigSegmentProvider }

// EvaluatorOptionBigSegmentProvider is an option for NewEvaluatorWithOptions that specifies a
// BigSegmentProvider for evaluating Big Segment membership. If this is not provided, any flag
// evaluation that references a Big Segment will behave as if no Big Segment store is configured.
func EvaluatorOptionBigSegmentProvider(bigSegmentProvider BigSegmentProvider) EvaluatorOption {
	return evaluatorOptionBigSegmentProvider{bigSegmentProvider: bigSegmentProvider}
}

func (o evaluatorOptionBigSegmentProvider) apply(e *evaluator) {
	e.bigSegmentProvider = o.bigSegmentProvider
}

type evaluatorOptionErrorLogger struct{ errorLogger ldlog.BaseLogger }

// EvaluatorOptionErrorLogger is an option for NewEvaluatorWithOptions that specifies a logger for
// error reporting. The Evaluator will only log errors for conditions that should not be possible
// with correctly formatted flag data, such as a malformed attribute reference. If this is not
// provided, errors are not logged anywhere but are still reflected in the evaluation reason.
func EvaluatorOptionErrorLogger(errorLogger ldlog.BaseLogger) EvaluatorOption {
	return evaluatorOptionErrorLogger{errorLogger: errorLogger}
}

func (o evaluatorOptionErrorLogger) apply(e *evaluator) {
	e.errorLogger = o.errorLogger
}

// NewEvaluator creates an Evaluator, specifying a DataProvider that it will use if it needs to
// query additional feature flags or segments during an evaluation.
//
// To support Big Segments, you must use NewEvaluatorWithOptions and include
// EvaluatorOptionBigSegmentProvider.
func NewEvaluator(dataProvider DataProvider) Evaluator {
	return NewEvaluatorWithOptions(dataProvider)
}

// NewEvaluatorWithOptions creates an Evaluator, specifying a DataProvider that it will use if it
// needs to query additional feature flags or segments during an evaluation, and also any number of
// EvaluatorOption modifiers.
func NewEvaluatorWithOptions(dataProvider DataProvider, options ...EvaluatorOption) Evaluator {
	e := &evaluator{dataProvider: dataProvider}
	for _, o := range options {
		o.apply(e)
	}
	return e
}

// Implementation notes on the state we maintain while an evaluation is in progress:
//
// An evaluationScope is the combination of a single flag plus the shared evaluationState; every
// prerequisite evaluation gets its own scope, but they all point to the same state. The state
// tracks (a) the chain of flag keys and segment keys we are currently inside, for cycle detection,
// and (b) Big Segment membership data that we have already retrieved for a context key, so that we
// query the Big Segment store at most once per context key per evaluation.

type evaluationScope struct {
	owner                         *evaluator
	flag                          *ldmodel.FeatureFlag
	context                       ldcontext.Context
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder
	state                         *evaluationState
}

type evaluationState struct {
	stack       evaluationStack
	bigSegments bigSegmentsState
}

type evaluationStack struct {
	prerequisiteFlagChain []string
	segmentChain          []string
}

func errCircularPrereqReference(flagKey string) error {
	return fmt.Errorf("prerequisite relationship to %q caused a circular reference;"+
		" this is probably a temporary condition due to an incomplete update", flagKey)
}

func errCircularSegmentReference(segmentKey string) error {
	return fmt.Errorf("segment rule referencing segment %q caused a circular reference;"+
		" this is probably a temporary condition due to an incomplete update", segmentKey)
}

func (e *evaluator) Evaluate(
	flag *ldmodel.FeatureFlag,
	context ldcontext.Context,
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
) Result {
	if err := context.Err(); err != nil {
		e.logEvaluationError(flag.Key, err)
		return Result{Detail: ldreason.NewEvaluationDetailForError(ldreason.EvalErrorUserNotSpecified, ldvalue.Null())}
	}

	state := evaluationState{}
	es := evaluationScope{
		owner:                         e,
		flag:                          flag,
		context:                       context,
		prerequisiteFlagEventRecorder: prerequisiteFlagEventRecorder,
		state:                         &state,
	}

	result, err := es.evaluate()
	if err != nil {
		e.logEvaluationError(flag.Key, err)
		result = Result{Detail: ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())}
	}
	if state.bigSegments.referenced {
		result.Detail.Reason = ldreason.NewEvalReasonFromReasonWithBigSegmentsStatus(
			result.Detail.Reason, state.bigSegments.status)
	}
	return result
}

func (e *evaluator) logEvaluationError(flagKey string, err error) {
	if e.errorLogger != nil && err != nil {
		e.errorLogger.Printf("Invalid flag configuration detected in flag %q: %s", flagKey, err)
	}
}

// Entry point for evaluating a single flag, which could be either the original flag or a
// prerequisite. The second return value is non-nil only for conditions that should cause the
// entire evaluation to fail with a MALFORMED_FLAG error.
func (es *evaluationScope) evaluate() (Result, error) {
	if !es.flag.On {
		return es.getOffResult(ldmodel.FlagOffReason(es.flag)), nil
	}

	prereqErrorReason, ok, err := es.checkPrerequisites()
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return es.getOffResult(prereqErrorReason), nil
	}

	// Check to see if any context targets match
	if variation, ok := es.anyTargetMatchVariation(); ok {
		return es.getVariation(variation, ldmodel.FlagTargetMatchReason(es.flag)), nil
	}

	// Now walk through the rules to see if any match
	for ruleIndex := range es.flag.Rules {
		rule := &es.flag.Rules[ruleIndex] // taking address of rule here is OK because it's an array element, not a local
		match, err := es.ruleMatchesContext(rule)
		if err != nil {
			return Result{}, err
		}
		if match {
			return es.getValueForVariationOrRollout(rule.VariationOrRollout,
				func(inExperiment bool) ldreason.EvaluationReason {
					return ldmodel.RuleMatchReason(rule, ruleIndex, inExperiment)
				})
		}
	}

	return es.getValueForVariationOrRollout(es.flag.Fallthrough,
		func(inExperiment bool) ldreason.EvaluationReason {
			return ldmodel.FlagFallthroughReason(es.flag, inExperiment)
		})
}

// Checks the feature flag's prerequisites, returning an appropriate PREREQUISITE_FAILED reason and
// false in the second value if any of them failed. The error return value is non-nil only for
// conditions that should make the whole evaluation fail.
func (es *evaluationScope) checkPrerequisites() (ldreason.EvaluationReason, bool, error) {
	if len(es.flag.Prerequisites) == 0 {
		return ldreason.EvaluationReason{}, true, nil
	}

	es.state.stack.prerequisiteFlagChain = append(es.state.stack.prerequisiteFlagChain, es.flag.Key)
	defer func() {
		es.state.stack.prerequisiteFlagChain = es.state.stack.prerequisiteFlagChain[:len(es.state.stack.prerequisiteFlagChain)-1]
	}()

	for prereqIndex, prereq := range es.flag.Prerequisites {
		for _, p := range es.state.stack.prerequisiteFlagChain {
			if p == prereq.Key {
				return ldreason.EvaluationReason{}, false, errCircularPrereqReference(prereq.Key)
			}
		}

		prereqFeatureFlag := es.owner.dataProvider.GetFeatureFlag(prereq.Key)
		if prereqFeatureFlag == nil {
			return ldmodel.FlagPrerequisiteFailedReason(es.flag, prereqIndex), false, nil
		}

		prereqOK := true
		prereqScope := evaluationScope{
			owner:                         es.owner,
			flag:                          prereqFeatureFlag,
			context:                       es.context,
			prerequisiteFlagEventRecorder: es.prerequisiteFlagEventRecorder,
			state:                         es.state,
		}
		prereqResult, err := prereqScope.evaluate()
		if err != nil {
			return ldreason.EvaluationReason{}, false, err
		}
		if !prereqFeatureFlag.On || prereqResult.Detail.IsDefaultValue() ||
			prereqResult.Detail.VariationIndex.IntValue() != prereq.Variation {
			prereqOK = false
		}
		if es.prerequisiteFlagEventRecorder != nil {
			event := PrerequisiteFlagEvent{es.flag.Key, es.context, prereqFeatureFlag, prereqResult}
			es.prerequisiteFlagEventRecorder(event)
		}
		if !prereqOK {
			return ldmodel.FlagPrerequisiteFailedReason(es.flag, prereqIndex), false, nil
		}
	}
	return ldreason.EvaluationReason{}, true, nil
}

func (es *evaluationScope) getVariation(index int, reason ldreason.EvaluationReason) Result {
	if index < 0 || index >= len(es.flag.Variations) {
		return Result{Detail: ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())}
	}
	return Result{
		Detail: ldreason.NewEvaluationDetail(es.flag.Variations[index], index, reason),
		IsExperiment: isExperiment(es.flag, reason),
	}
}

func (es *evaluationScope) getOffResult(reason ldreason.EvaluationReason) Result {
	if !es.flag.OffVariation.IsDefined() {
		return Result{
			Detail: ldreason.EvaluationDetail{
				Reason: reason,
			},
			IsExperiment: isExperiment(es.flag, reason),
		}
	}
	return es.getVariation(es.flag.OffVariation.IntValue(), reason)
}

func (es *evaluationScope) getValueForVariationOrRollout(
	vr ldmodel.VariationOrRollout,
	reasonFn func(inExperiment bool) ldreason.EvaluationReason,
) (Result, error) {
	index, inExperiment, err := es.variationOrRolloutResult(vr, es.flag.Key, es.flag.Salt)
	if err != nil {
		return Result{}, err
	}
	return es.getVariation(index, reasonFn(inExperiment)), nil
}

func (es *evaluationScope) variationOrRolloutResult(
	r ldmodel.VariationOrRollout, key, salt string) (variationIndex int, inExperiment bool, err error) {
	if r.Variation.IsDefined() {
		return r.Variation.IntValue(), false, nil
	}
	if len(r.Rollout.Variations) == 0 {
		// This is an error (malformed flag); either Variation or Rollout must be non-nil.
		return -1, false, errors.New("rollout or experiment with no variations")
	}

	isExperiment := r.Rollout.IsExperiment()

	bucketVal, problem, err := es.computeBucketValue(isExperiment, r.Rollout.Seed, r.Rollout.ContextKind,
		key, r.Rollout.BucketBy, salt)
	if err != nil {
		return -1, false, err
	}
	var sum float32

	for _, bucket := range r.Rollout.Variations {
		sum += float32(bucket.Weight) / 100000.0
		if bucketVal < sum {
			resultInExperiment := isExperiment && !bucket.Untracked &&
				problem != bucketingFailureContextLacksDesiredKind
			return bucket.Variation, resultInExperiment, nil
		}
	}

	// The context's bucket value was greater than or equal to the end of the last bucket. This could
	// happen due to a rounding error, or due to the fact that we are scaling to 100000 rather than
	// 99999, or the flag data could contain buckets that don't actually add up to 100000. Rather than
	// returning an error in this case (or changing the scaling, which would potentially change the
	// results for *all* contexts), we will simply put the context in the last bucket.
	lastBucket := r.Rollout.Variations[len(r.Rollout.Variations)-1]
	return lastBucket.Variation, isExperiment && !lastBucket.Untracked, nil
}

func isExperiment(flag *ldmodel.FeatureFlag, reason ldreason.EvaluationReason) bool {
	// If the reason says we're in an experiment, we are. Otherwise, apply
	// the legacy rule exclusion logic.
	if reason.IsInExperiment() {
		return true
	}

	switch reason.GetKind() {
	case ldreason.EvalReasonFallthrough:
		return flag.TrackEventsFallthrough
	case ldreason.EvalReasonRuleMatch:
		i := reason.GetRuleIndex()
		if i >= 0 && i < len(flag.Rules) {
			return flag.Rules[i].TrackEvents
		}
	}
	return false
}
