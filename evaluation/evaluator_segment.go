package evaluation

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
)

// State that we accumulate during an evaluation if any Big Segments are referenced. The
// memberships map is keyed by context key; we query the Big Segment store at most once per context
// key per evaluation, no matter how many Big Segments are referenced.
type bigSegmentsState struct {
	referenced  bool
	memberships map[string]BigSegmentMembership
	status      ldreason.BigSegmentsStatus
}

// Ordering of status values from "best" to "worst"; when multiple Big Segment queries happen
// during one evaluation, the overall status is the worst one seen.
var bigSegmentsStatusPriority = map[ldreason.BigSegmentsStatus]int{ //nolint:gochecknoglobals
	ldreason.BigSegmentsHealthy:       0,
	ldreason.BigSegmentsStale:         1,
	ldreason.BigSegmentsStoreError:    2,
	ldreason.BigSegmentsNotConfigured: 3,
}

func (es *evaluationScope) noteBigSegmentsStatus(status ldreason.BigSegmentsStatus) {
	state := &es.state.bigSegments
	if !state.referenced || bigSegmentsStatusPriority[status] > bigSegmentsStatusPriority[state.status] {
		state.status = status
	}
	state.referenced = true
}

func (es *evaluationScope) segmentContainsContext(s *ldmodel.Segment) (bool, error) {
	// Check against the segment chain so that a segmentMatch clause within a segment rule cannot
	// cause infinite recursion.
	for _, seenKey := range es.state.stack.segmentChain {
		if seenKey == s.Key {
			return false, errCircularSegmentReference(s.Key)
		}
	}
	es.state.stack.segmentChain = append(es.state.stack.segmentChain, s.Key)
	defer func() {
		es.state.stack.segmentChain = es.state.stack.segmentChain[:len(es.state.stack.segmentChain)-1]
	}()

	if s.Unbounded {
		return es.bigSegmentContainsContext(s)
	}

	// Inclusion takes precedence over exclusion, so we must do all of the inclusion tests first
	if defaultKindContext := es.context.IndividualContextByKind(ldcontext.DefaultKind); defaultKindContext.IsDefined() {
		if ldmodel.SegmentIncludesKey(s, defaultKindContext.Key()) {
			return true, nil
		}
	}
	for i := range s.IncludedContexts {
		if es.segmentTargetContainsContext(&s.IncludedContexts[i]) {
			return true, nil
		}
	}

	if defaultKindContext := es.context.IndividualContextByKind(ldcontext.DefaultKind); defaultKindContext.IsDefined() {
		if ldmodel.SegmentExcludesKey(s, defaultKindContext.Key()) {
			return false, nil
		}
	}
	for i := range s.ExcludedContexts {
		if es.segmentTargetContainsContext(&s.ExcludedContexts[i]) {
			return false, nil
		}
	}

	return es.anySegmentRuleMatchesContext(s)
}

func (es *evaluationScope) segmentTargetContainsContext(t *ldmodel.SegmentTarget) bool {
	kind := t.ContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	if individualContext := es.context.IndividualContextByKind(kind); individualContext.IsDefined() {
		return ldmodel.SegmentTargetContainsKey(t, individualContext.Key())
	}
	return false
}

func (es *evaluationScope) anySegmentRuleMatchesContext(s *ldmodel.Segment) (bool, error) {
	for ruleIndex := range s.Rules {
		match, err := es.segmentRuleMatchesContext(&s.Rules[ruleIndex], s.Key, s.Salt)
		if match || err != nil {
			return match, err
		}
	}
	return false, nil
}

func (es *evaluationScope) segmentRuleMatchesContext(r *ldmodel.SegmentRule, key, salt string) (bool, error) {
	// Note that r is passed by reference only for efficiency; we do not modify it
	for i := range r.Clauses {
		// A segment rule clause may itself be a segmentMatch test, so we go through the evaluator's
		// own clause logic here rather than calling ldmodel directly.
		match, err := es.clauseMatchesContext(&r.Clauses[i])
		if !match || err != nil {
			return false, err
		}
	}

	// If the Weight is absent, this rule matches
	if !r.Weight.IsDefined() {
		return true, nil
	}

	// All of the clauses are met. Check to see if the context buckets in
	bucket, _, err := es.computeBucketValue(false, ldvalue.OptionalInt{}, r.RolloutContextKind, key, r.BucketBy, salt)
	if err != nil {
		return false, err
	}
	weight := float32(r.Weight.IntValue()) / 100000.0
	return bucket < weight, nil
}

func (es *evaluationScope) bigSegmentContainsContext(s *ldmodel.Segment) (bool, error) {
	if !s.Generation.IsDefined() {
		// Big Segment data must always have a generation; if it doesn't, the data is presumed to be
		// in an inconsistent state, which we report as NOT_CONFIGURED.
		es.noteBigSegmentsStatus(ldreason.BigSegmentsNotConfigured)
		return false, nil
	}

	kind := s.UnboundedContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	individualContext := es.context.IndividualContextByKind(kind)
	if !individualContext.IsDefined() {
		return false, nil
	}
	key := individualContext.Key()

	membership, haveMembership := es.state.bigSegments.memberships[key]
	if !haveMembership {
		if es.owner.bigSegmentProvider == nil {
			// A flag referenced a Big Segment but the SDK wasn't configured to use them
			es.noteBigSegmentsStatus(ldreason.BigSegmentsNotConfigured)
			return false, nil
		}
		var status ldreason.BigSegmentsStatus
		membership, status = es.owner.bigSegmentProvider.GetBigSegmentMembership(key)
		if es.state.bigSegments.memberships == nil {
			es.state.bigSegments.memberships = make(map[string]BigSegmentMembership)
		}
		es.state.bigSegments.memberships[key] = membership
		es.noteBigSegmentsStatus(status)
	}

	if membership != nil {
		if included := membership.CheckMembership(MakeBigSegmentRef(s)); included.IsDefined() {
			return included.BoolValue(), nil
		}
	}
	// The store has no inclusion or exclusion for this context, so fall back to the segment's rules
	return es.anySegmentRuleMatchesContext(s)
}
