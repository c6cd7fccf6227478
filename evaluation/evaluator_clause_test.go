package evaluation

import (
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldattr"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldbuilders"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"

	"github.com/stretchr/testify/assert"
)

func makeBooleanFlagWithClauses(clauses ...ldmodel.Clause) ldmodel.FeatureFlag {
	return ldbuilders.NewFlagBuilder("feature").
		On(true).
		OffVariation(0).
		FallthroughVariation(0).
		AddRule(ldbuilders.NewRuleBuilder().ID("rule-id").Variation(1).Clauses(clauses...)).
		Variations(ldvalue.Bool(false), ldvalue.Bool(true)).
		Build()
}

func assertClauseMatch(t *testing.T, expected bool, clause ldmodel.Clause, context ldcontext.Context) {
	t.Helper()
	f := makeBooleanFlagWithClauses(clause)
	result := basicEvaluator().Evaluate(&f, context, nil)
	assert.Equal(t, ldvalue.Bool(expected), result.Detail.Value)
}

func TestClauseCanMatchBuiltInAttribute(t *testing.T) {
	clause := ldbuilders.Clause("name", ldmodel.OperatorIn, ldvalue.String("Bob"))
	context := ldcontext.NewBuilder("key").Name("Bob").Build()
	assertClauseMatch(t, true, clause, context)
}

func TestClauseCanMatchCustomAttribute(t *testing.T) {
	clause := ldbuilders.Clause("legs", ldmodel.OperatorIn, ldvalue.Int(4))
	context := ldcontext.NewBuilder("key").SetInt("legs", 4).Build()
	assertClauseMatch(t, true, clause, context)
}

func TestClauseReturnsFalseForMissingAttribute(t *testing.T) {
	clause := ldbuilders.Clause("legs", ldmodel.OperatorIn, ldvalue.Int(4))
	context := ldcontext.NewBuilder("key").Name("Bob").Build()
	assertClauseMatch(t, false, clause, context)
}

func TestClauseMatchesIfAnyClauseValueMatches(t *testing.T) {
	clause := ldbuilders.Clause("name", ldmodel.OperatorIn, ldvalue.String("Bob"), ldvalue.String("Carol"))
	context := ldcontext.NewBuilder("key").Name("Carol").Build()
	assertClauseMatch(t, true, clause, context)
}

func TestClauseMatchesIfAnyElementOfArrayAttributeMatches(t *testing.T) {
	clause := ldbuilders.Clause("pets", ldmodel.OperatorIn, ldvalue.String("cat"))
	context := ldcontext.NewBuilder("key").
		SetValue("pets", ldvalue.ArrayOf(ldvalue.String("dog"), ldvalue.String("cat"))).
		Build()
	assertClauseMatch(t, true, clause, context)
}

func TestClauseCanBeNegated(t *testing.T) {
	clause := ldbuilders.Negate(ldbuilders.Clause("name", ldmodel.OperatorIn, ldvalue.String("Bob")))
	context := ldcontext.NewBuilder("key").Name("Bob").Build()
	assertClauseMatch(t, false, clause, context)

	context = ldcontext.NewBuilder("key").Name("Carol").Build()
	assertClauseMatch(t, true, clause, context)
}

func TestNegatedClauseStillDoesNotMatchIfAttributeIsMissing(t *testing.T) {
	clause := ldbuilders.Negate(ldbuilders.Clause("legs", ldmodel.OperatorIn, ldvalue.Int(4)))
	context := ldcontext.NewBuilder("key").Name("Bob").Build()
	assertClauseMatch(t, false, clause, context)
}

func TestClauseMatchesKindAttribute(t *testing.T) {
	clause := ldbuilders.Clause("kind", ldmodel.OperatorIn, ldvalue.String("org"))

	t.Run("single-kind context with matching kind", func(t *testing.T) {
		assertClauseMatch(t, true, clause, ldcontext.NewWithKind("org", "key"))
	})

	t.Run("single-kind context with non-matching kind", func(t *testing.T) {
		assertClauseMatch(t, false, clause, ldcontext.New("key"))
	})

	t.Run("multi-kind context where any kind matches", func(t *testing.T) {
		multi := ldcontext.NewMulti(ldcontext.New("userkey"), ldcontext.NewWithKind("org", "orgkey"))
		assertClauseMatch(t, true, clause, multi)
	})
}

func TestClauseWithSpecificKindSelectsThatIndividualContext(t *testing.T) {
	clause := ldbuilders.ClauseWithKind("org", "region", ldmodel.OperatorIn, ldvalue.String("emea"))

	orgContext := ldcontext.NewBuilder("orgkey").Kind("org").SetString("region", "emea").Build()
	userContext := ldcontext.NewBuilder("userkey").SetString("region", "emea").Build()

	assertClauseMatch(t, true, clause, orgContext)
	assertClauseMatch(t, false, clause, userContext)
	assertClauseMatch(t, true, clause, ldcontext.NewMulti(userContext, orgContext))
}

func TestClauseWithUndefinedAttributeIsMalformedFlagError(t *testing.T) {
	clause := ldmodel.Clause{Op: ldmodel.OperatorIn, Values: []ldvalue.Value{ldvalue.String("x")}}
	f := makeBooleanFlagWithClauses(clause)

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestClauseWithInvalidAttributeReferenceIsMalformedFlagError(t *testing.T) {
	clause := ldbuilders.ClauseRef(ldattr.NewRef("///"), ldmodel.OperatorIn, ldvalue.String("x"))
	f := makeBooleanFlagWithClauses(clause)

	result := basicEvaluator().Evaluate(&f, flagTestContext, nil)
	assertResultDetail(t,
		ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestAllClausesInRuleMustMatch(t *testing.T) {
	clause1 := ldbuilders.Clause("name", ldmodel.OperatorIn, ldvalue.String("Bob"))
	clause2 := ldbuilders.Clause("legs", ldmodel.OperatorIn, ldvalue.Int(4))
	f := makeBooleanFlagWithClauses(clause1, clause2)

	context := ldcontext.NewBuilder("key").Name("Bob").Build()
	result := basicEvaluator().Evaluate(&f, context, nil)
	assert.Equal(t, ldvalue.Bool(false), result.Detail.Value)

	context = ldcontext.NewBuilder("key").Name("Bob").SetInt("legs", 4).Build()
	result = basicEvaluator().Evaluate(&f, context, nil)
	assert.Equal(t, ldvalue.Bool(true), result.Detail.Value)
}
