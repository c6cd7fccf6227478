package evaluation

import (
	"fmt"
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldbuilders"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flagTestContext = ldcontext.New("userkey")

var fallthroughValue = ldvalue.String("fall")
var offValue = ldvalue.String("off")
var onValue = ldvalue.String("on")

// simpleDataProvider is a DataProvider implementation for evaluator tests. By default it panics on
// any query, so that tests must explicitly specify every flag and segment that they expect the
// evaluator to request.
type simpleDataProvider struct {
	getFlag    func(string) *ldmodel.FeatureFlag
	getSegment func(string) *ldmodel.Segment
}

func (s *simpleDataProvider) GetFeatureFlag(key string) *ldmodel.FeatureFlag {
	return s.getFlag(key)
}

func (s *simpleDataProvider) GetSegment(key string) *ldmodel.Segment {
	return s.getSegment(key)
}

func (s *simpleDataProvider) withStoredFlags(flags ...ldmodel.FeatureFlag) *simpleDataProvider {
	oldFn := s.getFlag
	return &simpleDataProvider{
		getFlag: func(key string) *ldmodel.FeatureFlag {
			for _, f := range flags {
				if f.Key == key {
					ff := f
					return &ff
				}
			}
			return oldFn(key)
		},
		getSegment: s.getSegment,
	}
}

func (s *simpleDataProvider) withNonexistentFlag(flagKey string) *simpleDataProvider {
	oldFn := s.getFlag
	return &simpleDataProvider{
		getFlag: func(key string) *ldmodel.FeatureFlag {
			if key == flagKey {
				return nil
			}
			return oldFn(key)
		},
		getSegment: s.getSegment,
	}
}

func (s *simpleDataProvider) withStoredSegments(segments ...ldmodel.Segment) *simpleDataProvider {
	oldFn := s.getSegment
	return &simpleDataProvider{
		getFlag: s.getFlag,
		getSegment: func(key string) *ldmodel.Segment {
			for _, seg := range segments {
				if seg.Key == key {
					ss := seg
					return &ss
				}
			}
			return oldFn(key)
		},
	}
}

func (s *simpleDataProvider) withNonexistentSegment(segmentKey string) *simpleDataProvider {
	oldFn := s.getSegment
	return &simpleDataProvider{
		getFlag: s.getFlag,
		getSegment: func(key string) *ldmodel.Segment {
			if key == segmentKey {
				return nil
			}
			return oldFn(key)
		},
	}
}

func basicDataProvider() *simpleDataProvider {
	return &simpleDataProvider{
		getFlag: func(key string) *ldmodel.FeatureFlag {
			panic(fmt.Errorf("unexpectedly queried feature flag: %s", key))
		},
		getSegment: func(key string) *ldmodel.Segment {
			panic(fmt.Errorf("unexpectedly queried segment: %s", key))
		},
	}
}

func basicEvaluator() Evaluator {
	return NewEvaluator(basicDataProvider())
}

func makeClauseToMatchContext(context ldcontext.Context) ldmodel.Clause {
	return ldbuilders.Clause("key", ldmodel.OperatorIn, ldvalue.String(context.Key()))
}

func makeClauseToNotMatchContext(context ldcontext.Context) ldmodel.Clause {
	return ldbuilders.Clause("key", ldmodel.OperatorIn, ldvalue.String("not-"+context.Key()))
}

func makeFlagToMatchContext(context ldcontext.Context, vr ldmodel.VariationOrRollout) ldmodel.FeatureFlag {
	return ldbuilders.NewFlagBuilder("feature").
		On(true).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule-id").
			VariationOrRollout(vr).
			Clauses(makeClauseToMatchContext(context))).
		FallthroughVariation(0).
		Variations(fallthroughValue, offValue, onValue).
		Build()
}

func assertResultDetail(t *testing.T, expected ldreason.EvaluationDetail, result Result) {
	t.Helper()
	assert.Equal(t, expected, result.Detail)
}

func TestFlagReturnsOffVariationIfFlagIsOff(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(false).
		OffVariation(1).
		Variations(ldvalue.String("a"), ldvalue.String("b"), ldvalue.String("c")).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetail(ldvalue.String("b"), 1, ldreason.NewEvalReasonOff()), result)
	assert.False(t, result.IsExperiment)
}

func TestFlagReturnsNilIfFlagIsOffAndOffVariationIsUnspecified(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(false).
		FallthroughVariation(0).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.EvaluationDetail{Reason: ldreason.NewEvalReasonOff()}, result)
}

func TestOffResultIsStableAcrossEvaluations(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(false).
		OffVariation(1).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	e := basicEvaluator()
	result1 := e.Evaluate(&f, flagTestContext, nil)
	result2 := e.Evaluate(&f, flagTestContext, nil)
	assert.Equal(t, result1, result2)
}

func TestFlagReturnsFallthroughIfFlagIsOnAndThereAreNoRules(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		FallthroughVariation(0).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetail(fallthroughValue, 0, ldreason.NewEvalReasonFallthrough()), result)
}

func TestFlagReturnsErrorIfFlagIsOnAndFallthroughHasTooHighVariation(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		FallthroughVariation(999).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestFlagReturnsErrorIfFlagIsOnAndFallthroughHasNegativeVariation(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		FallthroughVariation(-1).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestFlagReturnsErrorIfFlagIsOnAndFallthroughHasNeitherVariationNorRollout(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		Fallthrough(ldmodel.VariationOrRollout{}).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestFlagReturnsErrorIfFlagIsOnAndFallthroughHasEmptyRolloutVariationList(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		Fallthrough(ldmodel.VariationOrRollout{Rollout: ldmodel.Rollout{Variations: []ldmodel.WeightedVariation{}}}).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestFlagReturnsErrorIfContextIsInvalid(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		FallthroughVariation(0).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	badContext := ldcontext.New("") // empty key makes the context invalid

	result := basicEvaluator().Evaluate(&f, badContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorUserNotSpecified, ldvalue.Null()), result)
}

func TestFlagMatchesContextFromTargets(t *testing.T) {
	// A target match takes precedence over rules that would also match.
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		AddTarget(2, "whoever", flagTestContext.Key()).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule-id").
			Variation(0).
			Clauses(makeClauseToMatchContext(flagTestContext))).
		FallthroughVariation(1).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetail(onValue, 2, ldreason.NewEvalReasonTargetMatch()), result)
}

func TestFlagMatchesContextFromContextTargets(t *testing.T) {
	orgContext := ldcontext.NewWithKind("org", "acme")

	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		AddContextTarget("org", 2, "acme").
		FallthroughVariation(1).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	t.Run("context has matching kind and key", func(t *testing.T) {
		result := basicEvaluator().Evaluate(&f, orgContext, nil)
		assertResultDetail(t,
			ldreason.NewEvaluationDetail(onValue, 2, ldreason.NewEvalReasonTargetMatch()), result)
	})

	t.Run("context has no matching kind", func(t *testing.T) {
		result := basicEvaluator().Evaluate(&f, ldcontext.New("acme"), nil)
		assertResultDetail(t,
			ldreason.NewEvaluationDetail(offValue, 1, ldreason.NewEvalReasonFallthrough()), result)
	})
}

func TestFlagContextTargetPlaceholderDelegatesToUserTargets(t *testing.T) {
	// A context target for the default kind with no values refers to the old-style target list
	// for the same variation.
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		AddTarget(2, flagTestContext.Key()).
		AddContextTarget(ldcontext.DefaultKind, 2).
		FallthroughVariation(1).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetail(onValue, 2, ldreason.NewEvalReasonTargetMatch()), result)
}

func TestFlagMatchesContextFromRules(t *testing.T) {
	f := makeFlagToMatchContext(flagTestContext, ldbuilders.Variation(2))

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetail(onValue, 2, ldreason.NewEvalReasonRuleMatch(0, "rule-id")), result)
}

func TestRuleEvaluationStopsAtFirstMatch(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule0").
			Variation(1).
			Clauses(makeClauseToNotMatchContext(flagTestContext))).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule1").
			Variation(2).
			Clauses(makeClauseToMatchContext(flagTestContext))).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule2").
			Variation(1).
			Clauses(makeClauseToMatchContext(flagTestContext))).
		FallthroughVariation(0).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetail(onValue, 2, ldreason.NewEvalReasonRuleMatch(1, "rule1")), result)
}

func TestRuleWithTooHighVariationReturnsMalformedFlagError(t *testing.T) {
	f := makeFlagToMatchContext(flagTestContext, ldbuilders.Variation(999))

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestRuleWithNeitherVariationNorRolloutReturnsMalformedFlagError(t *testing.T) {
	f := makeFlagToMatchContext(flagTestContext, ldmodel.VariationOrRollout{})

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestMalformedFlagErrorIsReportedThroughLogger(t *testing.T) {
	f := makeFlagToMatchContext(flagTestContext, ldmodel.VariationOrRollout{})

	logger := &capturingLogger{}
	e := NewEvaluatorWithOptions(basicDataProvider(), EvaluatorOptionErrorLogger(logger))

	result := e.Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], f.Key)
}

func TestTrackEventsFallthroughForcesReasonTracking(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		FallthroughVariation(0).
		TrackEventsFallthrough(true).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assert.True(t, result.IsExperiment)
}

func TestTrackEventsOnMatchedRuleForcesReasonTracking(t *testing.T) {
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule-id").
			Variation(2).
			TrackEvents(true).
			Clauses(makeClauseToMatchContext(flagTestContext))).
		FallthroughVariation(0).
		Variations(fallthroughValue, offValue, onValue).
		Build()

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assert.True(t, result.IsExperiment)
}

type capturingLogger struct {
	lines []string
}

func (l *capturingLogger) Println(values ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintln(values...))
}

func (l *capturingLogger) Printf(format string, values ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, values...))
}
