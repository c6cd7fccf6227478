package ldmodel

import "github.com/launchdarkly/go-sdk-common/v3/ldreason"

// The functions in this file return the precomputed EvaluationReason instances that are created by
// PreprocessFlag(). Each one falls back to constructing a new reason value if the flag was not
// preprocessed, so that evaluation behavior does not depend on preprocessing having happened.
//
// This part of the flag evaluation logic is defined in ldmodel and exported, rather than being
// internal to Evaluator, as a compromise to allow for optimizations that require storing precomputed
// data in the model object. Exporting these functions is preferable to exporting those internal
// implementation details.

// FlagOffReason returns the EvaluationReason for this flag being off.
func FlagOffReason(f *FeatureFlag) ldreason.EvaluationReason {
	if f.preprocessed.offReason.IsDefined() {
		return f.preprocessed.offReason
	}
	return ldreason.NewEvalReasonOff()
}

// FlagFallthroughReason returns the EvaluationReason for this flag's fallthrough outcome.
func FlagFallthroughReason(f *FeatureFlag, inExperiment bool) ldreason.EvaluationReason {
	if inExperiment {
		if f.preprocessed.fallthroughExperimentReason.IsDefined() {
			return f.preprocessed.fallthroughExperimentReason
		}
		return ldreason.NewEvalReasonFallthroughExperiment(true)
	}
	if f.preprocessed.fallthroughReason.IsDefined() {
		return f.preprocessed.fallthroughReason
	}
	return ldreason.NewEvalReasonFallthrough()
}

// FlagTargetMatchReason returns the EvaluationReason for this flag matching an individual target.
func FlagTargetMatchReason(f *FeatureFlag) ldreason.EvaluationReason {
	if f.preprocessed.targetMatchReason.IsDefined() {
		return f.preprocessed.targetMatchReason
	}
	return ldreason.NewEvalReasonTargetMatch()
}

// FlagPrerequisiteFailedReason returns the EvaluationReason for the failure of the prerequisite at
// the specified index in this flag's Prerequisites list.
func FlagPrerequisiteFailedReason(f *FeatureFlag, prereqIndex int) ldreason.EvaluationReason {
	if prereqIndex >= 0 && prereqIndex < len(f.preprocessed.prerequisiteFailedReasons) {
		return f.preprocessed.prerequisiteFailedReasons[prereqIndex]
	}
	if prereqIndex >= 0 && prereqIndex < len(f.Prerequisites) {
		return ldreason.NewEvalReasonPrerequisiteFailed(f.Prerequisites[prereqIndex].Key)
	}
	return ldreason.NewEvalReasonPrerequisiteFailed("")
}

// RuleMatchReason returns the EvaluationReason for a match of the rule at the specified index in
// this flag's Rules list.
func RuleMatchReason(r *FlagRule, ruleIndex int, inExperiment bool) ldreason.EvaluationReason {
	if inExperiment {
		if r.preprocessed.matchExperimentReason.IsDefined() {
			return r.preprocessed.matchExperimentReason
		}
		return ldreason.NewEvalReasonRuleMatchExperiment(ruleIndex, r.ID, true)
	}
	if r.preprocessed.matchReason.IsDefined() {
		return r.preprocessed.matchReason
	}
	return ldreason.NewEvalReasonRuleMatch(ruleIndex, r.ID)
}
