package evaluation

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
)

func (es *evaluationScope) anyTargetMatchVariation() (int, bool) {
	if len(es.flag.ContextTargets) == 0 {
		// Old-style data has only targets for the default kind
		for i := range es.flag.Targets {
			if variation, ok := es.targetMatchVariation(&es.flag.Targets[i]); ok {
				return variation, ok
			}
		}
		return -1, false
	}
	for i := range es.flag.ContextTargets {
		target := &es.flag.ContextTargets[i]
		if (target.ContextKind == "" || target.ContextKind == ldcontext.DefaultKind) && len(target.Values) == 0 {
			// A default-kind entry with no values is a placeholder which tells us to preserve the
			// relative ordering of the corresponding old-style target list for the same variation.
			for j := range es.flag.Targets {
				oldStyleTarget := &es.flag.Targets[j]
				if oldStyleTarget.Variation == target.Variation {
					if variation, ok := es.targetMatchVariation(oldStyleTarget); ok {
						return variation, ok
					}
				}
			}
		} else if variation, ok := es.targetMatchVariation(target); ok {
			return variation, ok
		}
	}
	return -1, false
}

func (es *evaluationScope) targetMatchVariation(target *ldmodel.Target) (int, bool) {
	kind := target.ContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	if individualContext := es.context.IndividualContextByKind(kind); individualContext.IsDefined() {
		if ldmodel.TargetContainsKey(target, individualContext.Key()) {
			return target.Variation, true
		}
	}
	return -1, false
}

func (es *evaluationScope) ruleMatchesContext(rule *ldmodel.FlagRule) (bool, error) {
	// Note that rule is passed by reference only for efficiency; we do not modify it
	for i := range rule.Clauses {
		match, err := es.clauseMatchesContext(&rule.Clauses[i])
		if err != nil || !match {
			return false, err
		}
	}
	return true, nil
}

func (es *evaluationScope) clauseMatchesContext(clause *ldmodel.Clause) (bool, error) {
	// Clause matching logic is mostly in the ldmodel package, except for segmentMatch clauses,
	// which require us to query segments from the data provider.
	if clause.Op == ldmodel.OperatorSegmentMatch {
		anyMatch := false
		for _, value := range clause.Values {
			if value.Type() != ldvalue.StringType {
				continue
			}
			if segment := es.owner.dataProvider.GetSegment(value.StringValue()); segment != nil {
				match, err := es.segmentContainsContext(segment)
				if err != nil {
					return false, err
				}
				if match {
					anyMatch = true
					break
				}
			}
		}
		if clause.Negate {
			return !anyMatch, nil
		}
		return anyMatch, nil
	}
	return ldmodel.ClauseMatchesContext(clause, &es.context)
}
