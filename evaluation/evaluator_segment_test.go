package evaluation

import (
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldbuilders"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBooleanFlagToMatchAnyOfSegments(segmentKeys ...string) ldmodel.FeatureFlag {
	return ldbuilders.NewFlagBuilder("feature").
		On(true).
		OffVariation(0).
		FallthroughVariation(0).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule-id").
			Variation(1).
			Clauses(ldbuilders.SegmentMatchClause(segmentKeys...))).
		Variations(ldvalue.Bool(false), ldvalue.Bool(true)).
		Build()
}

func assertSegmentMatch(t *testing.T, e Evaluator, f ldmodel.FeatureFlag, context ldcontext.Context, expected bool) {
	t.Helper()
	result := e.Evaluate(&f, context, nil)
	assert.Equal(t, ldvalue.Bool(expected), result.Detail.Value)
}

func TestSegmentMatchClauseRetrievesSegmentFromStore(t *testing.T) {
	segment := ldbuilders.NewSegmentBuilder("segkey").Included(flagTestContext.Key()).Build()
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	e := NewEvaluator(basicDataProvider().withStoredSegments(segment))

	assertSegmentMatch(t, e, f, flagTestContext, true)
}

func TestSegmentMatchClauseFallsThroughIfSegmentNotFound(t *testing.T) {
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	e := NewEvaluator(basicDataProvider().withNonexistentSegment("segkey"))

	assertSegmentMatch(t, e, f, flagTestContext, false)
}

func TestCanMatchJustOneSegmentFromList(t *testing.T) {
	segment := ldbuilders.NewSegmentBuilder("segkey").Included(flagTestContext.Key()).Build()
	f := makeBooleanFlagToMatchAnyOfSegments("unknownsegkey", "segkey")
	e := NewEvaluator(basicDataProvider().
		withNonexistentSegment("unknownsegkey").
		withStoredSegments(segment))

	assertSegmentMatch(t, e, f, flagTestContext, true)
}

func TestSegmentIncludesContextByKeyForSpecificKind(t *testing.T) {
	orgContext := ldcontext.NewWithKind("org", "acme")
	segment := ldbuilders.NewSegmentBuilder("segkey").
		IncludedContextKind("org", "acme").
		Build()
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	e := NewEvaluator(basicDataProvider().withStoredSegments(segment))

	assertSegmentMatch(t, e, f, orgContext, true)
	assertSegmentMatch(t, e, f, ldcontext.New("acme"), false)
}

func TestSegmentExcludeTakesPrecedenceOverRules(t *testing.T) {
	segment := ldbuilders.NewSegmentBuilder("segkey").
		Excluded(flagTestContext.Key()).
		AddRule(ldbuilders.NewSegmentRuleBuilder().
			Clauses(ldbuilders.Clause("key", ldmodel.OperatorIn, ldvalue.String(flagTestContext.Key())))).
		Build()
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	e := NewEvaluator(basicDataProvider().withStoredSegments(segment))

	assertSegmentMatch(t, e, f, flagTestContext, false)
}

func TestSegmentIncludeTakesPrecedenceOverExclude(t *testing.T) {
	segment := ldbuilders.NewSegmentBuilder("segkey").
		Included(flagTestContext.Key()).
		Excluded(flagTestContext.Key()).
		Build()
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	e := NewEvaluator(basicDataProvider().withStoredSegments(segment))

	assertSegmentMatch(t, e, f, flagTestContext, true)
}

func TestSegmentRuleMatchesContextWithClauses(t *testing.T) {
	context := ldcontext.NewBuilder("userkey").SetString("email", "test@example.com").Build()
	segment := ldbuilders.NewSegmentBuilder("segkey").
		AddRule(ldbuilders.NewSegmentRuleBuilder().
			Clauses(ldbuilders.Clause("email", ldmodel.OperatorIn, ldvalue.String("test@example.com")))).
		Build()
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	e := NewEvaluator(basicDataProvider().withStoredSegments(segment))

	assertSegmentMatch(t, e, f, context, true)
}

func TestSegmentRuleCanHavePercentageRollout(t *testing.T) {
	// userKeyA's bucket value for segment key "segkey" and salt "salty" is 0.14574753, so a rule
	// weight above that threshold includes the context and one below it does not.
	context := ldcontext.New("userKeyA")
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")

	t.Run("weight just above bucket value matches", func(t *testing.T) {
		segment := ldbuilders.NewSegmentBuilder("segkey").
			Salt("salty").
			AddRule(ldbuilders.NewSegmentRuleBuilder().
				Clauses(ldbuilders.Clause("key", ldmodel.OperatorIn, ldvalue.String("userKeyA"))).
				Weight(14575)).
			Build()
		e := NewEvaluator(basicDataProvider().withStoredSegments(segment))
		assertSegmentMatch(t, e, f, context, true)
	})

	t.Run("weight just below bucket value does not match", func(t *testing.T) {
		segment := ldbuilders.NewSegmentBuilder("segkey").
			Salt("salty").
			AddRule(ldbuilders.NewSegmentRuleBuilder().
				Clauses(ldbuilders.Clause("key", ldmodel.OperatorIn, ldvalue.String("userKeyA"))).
				Weight(14574)).
			Build()
		e := NewEvaluator(basicDataProvider().withStoredSegments(segment))
		assertSegmentMatch(t, e, f, context, false)
	})
}

func TestSegmentReferencingSegmentCycleReturnsMalformedFlagError(t *testing.T) {
	segment0 := ldbuilders.NewSegmentBuilder("segkey0").
		AddRule(ldbuilders.NewSegmentRuleBuilder().
			Clauses(ldbuilders.SegmentMatchClause("segkey1"))).
		Build()
	segment1 := ldbuilders.NewSegmentBuilder("segkey1").
		AddRule(ldbuilders.NewSegmentRuleBuilder().
			Clauses(ldbuilders.SegmentMatchClause("segkey0"))).
		Build()
	f := makeBooleanFlagToMatchAnyOfSegments("segkey0")
	e := NewEvaluator(basicDataProvider().withStoredSegments(segment0, segment1))

	result := e.Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

// Big Segment tests

type mockBigSegmentMembership map[string]bool

func (m mockBigSegmentMembership) CheckMembership(segmentRef string) ldvalue.OptionalBool {
	if value, found := m[segmentRef]; found {
		return ldvalue.NewOptionalBool(value)
	}
	return ldvalue.OptionalBool{}
}

type mockBigSegmentProvider struct {
	memberships map[string]mockBigSegmentMembership
	status      ldreason.BigSegmentsStatus
	queryCount  int
}

func (m *mockBigSegmentProvider) GetBigSegmentMembership(
	contextKey string,
) (BigSegmentMembership, ldreason.BigSegmentsStatus) {
	m.queryCount++
	if membership, found := m.memberships[contextKey]; found {
		return membership, m.status
	}
	return nil, m.status
}

func makeBigSegment(key string, generation int) ldmodel.Segment {
	return ldbuilders.NewSegmentBuilder(key).Unbounded(true).Generation(generation).Build()
}

func TestBigSegmentWithNoProviderIsNotConfigured(t *testing.T) {
	segment := makeBigSegment("segkey", 1)
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	e := NewEvaluator(basicDataProvider().withStoredSegments(segment))

	result := e.Evaluate(&f, flagTestContext, nil)
	assert.Equal(t, ldvalue.Bool(false), result.Detail.Value)
	assert.Equal(t, ldreason.BigSegmentsNotConfigured, result.Detail.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentWithNoGenerationIsNotConfigured(t *testing.T) {
	segment := ldbuilders.NewSegmentBuilder("segkey").Unbounded(true).Build() // no generation
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	provider := &mockBigSegmentProvider{status: ldreason.BigSegmentsHealthy}
	e := NewEvaluatorWithOptions(basicDataProvider().withStoredSegments(segment),
		EvaluatorOptionBigSegmentProvider(provider))

	result := e.Evaluate(&f, flagTestContext, nil)
	assert.Equal(t, ldvalue.Bool(false), result.Detail.Value)
	assert.Equal(t, ldreason.BigSegmentsNotConfigured, result.Detail.Reason.GetBigSegmentsStatus())
	assert.Equal(t, 0, provider.queryCount)
}

func TestBigSegmentMatchedWithInclude(t *testing.T) {
	segment := makeBigSegment("segkey", 2)
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	provider := &mockBigSegmentProvider{
		memberships: map[string]mockBigSegmentMembership{
			flagTestContext.Key(): {MakeBigSegmentRef(&segment): true},
		},
		status: ldreason.BigSegmentsHealthy,
	}
	e := NewEvaluatorWithOptions(basicDataProvider().withStoredSegments(segment),
		EvaluatorOptionBigSegmentProvider(provider))

	result := e.Evaluate(&f, flagTestContext, nil)
	assert.Equal(t, ldvalue.Bool(true), result.Detail.Value)
	assert.Equal(t, ldreason.BigSegmentsHealthy, result.Detail.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentExcludedContextFallsThroughToRules(t *testing.T) {
	// An undefined membership result for the segment ref means we fall back to the segment rules.
	segment := ldbuilders.NewSegmentBuilder("segkey").
		Unbounded(true).
		Generation(2).
		AddRule(ldbuilders.NewSegmentRuleBuilder().
			Clauses(ldbuilders.Clause("key", ldmodel.OperatorIn, ldvalue.String(flagTestContext.Key())))).
		Build()
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	provider := &mockBigSegmentProvider{
		memberships: map[string]mockBigSegmentMembership{flagTestContext.Key(): {}},
		status:      ldreason.BigSegmentsHealthy,
	}
	e := NewEvaluatorWithOptions(basicDataProvider().withStoredSegments(segment),
		EvaluatorOptionBigSegmentProvider(provider))

	result := e.Evaluate(&f, flagTestContext, nil)
	assert.Equal(t, ldvalue.Bool(true), result.Detail.Value)
	assert.Equal(t, ldreason.BigSegmentsHealthy, result.Detail.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentStaleStatusIsPropagated(t *testing.T) {
	segment := makeBigSegment("segkey", 2)
	f := makeBooleanFlagToMatchAnyOfSegments("segkey")
	provider := &mockBigSegmentProvider{
		memberships: map[string]mockBigSegmentMembership{
			flagTestContext.Key(): {MakeBigSegmentRef(&segment): true},
		},
		status: ldreason.BigSegmentsStale,
	}
	e := NewEvaluatorWithOptions(basicDataProvider().withStoredSegments(segment),
		EvaluatorOptionBigSegmentProvider(provider))

	result := e.Evaluate(&f, flagTestContext, nil)
	assert.Equal(t, ldvalue.Bool(true), result.Detail.Value)
	assert.Equal(t, ldreason.BigSegmentsStale, result.Detail.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentStoreIsQueriedOnlyOncePerContextPerEvaluation(t *testing.T) {
	segment0 := makeBigSegment("segkey0", 2)
	segment1 := makeBigSegment("segkey1", 3)
	f := ldbuilders.NewFlagBuilder("feature").
		On(true).
		OffVariation(0).
		FallthroughVariation(0).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule0").
			Variation(1).
			Clauses(ldbuilders.SegmentMatchClause("segkey0"))).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule1").
			Variation(1).
			Clauses(ldbuilders.SegmentMatchClause("segkey1"))).
		Variations(ldvalue.Bool(false), ldvalue.Bool(true)).
		Build()
	provider := &mockBigSegmentProvider{
		memberships: map[string]mockBigSegmentMembership{
			flagTestContext.Key(): {MakeBigSegmentRef(&segment1): true},
		},
		status: ldreason.BigSegmentsHealthy,
	}
	e := NewEvaluatorWithOptions(basicDataProvider().withStoredSegments(segment0, segment1),
		EvaluatorOptionBigSegmentProvider(provider))

	result := e.Evaluate(&f, flagTestContext, nil)
	assert.Equal(t, ldvalue.Bool(true), result.Detail.Value)
	require.Equal(t, 1, provider.queryCount)
}
