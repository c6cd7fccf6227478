package ldmodel

import (
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldattr"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// DataModelSerialization defines an encoding for SDK data model objects.
//
// For the default JSON encoding used by LaunchDarkly SDKs, use NewJSONDataModelSerialization.
type DataModelSerialization interface {
	// MarshalFeatureFlag converts a FeatureFlag into its serialized encoding.
	MarshalFeatureFlag(item FeatureFlag) ([]byte, error)
	// MarshalSegment converts a Segment into its serialized encoding.
	MarshalSegment(item Segment) ([]byte, error)
	// UnmarshalFeatureFlag attempts to convert a FeatureFlag from its serialized encoding.
	UnmarshalFeatureFlag(data []byte) (FeatureFlag, error)
	// UnmarshalSegment attempts to convert a Segment from its serialized encoding.
	UnmarshalSegment(data []byte) (Segment, error)
}

type jsonDataModelSerialization struct{}

// NewJSONDataModelSerialization provides the default JSON encoding for SDK data model objects.
//
// Always use this rather than relying on json.Marshal() and json.Unmarshal(). The data model
// structs are guaranteed to serialize and deserialize correctly with json.Marshal() and
// json.Unmarshal(), but this mechanism uses the go-jsonstream API
// (https://pkg.go.dev/github.com/launchdarkly/go-jsonstream/v3) to avoid the inefficiency of
// reflection-based marshaling.
func NewJSONDataModelSerialization() DataModelSerialization {
	return jsonDataModelSerialization{}
}

func (s jsonDataModelSerialization) MarshalFeatureFlag(item FeatureFlag) ([]byte, error) {
	w := jwriter.NewWriter()
	MarshalFeatureFlagToJSONWriter(item, &w)
	return w.Bytes(), w.Error()
}

func (s jsonDataModelSerialization) MarshalSegment(item Segment) ([]byte, error) {
	w := jwriter.NewWriter()
	MarshalSegmentToJSONWriter(item, &w)
	return w.Bytes(), w.Error()
}

func (s jsonDataModelSerialization) UnmarshalFeatureFlag(data []byte) (FeatureFlag, error) {
	r := jreader.NewReader(data)
	item := UnmarshalFeatureFlagFromJSONReader(&r)
	return item, r.Error()
}

func (s jsonDataModelSerialization) UnmarshalSegment(data []byte) (Segment, error) {
	r := jreader.NewReader(data)
	item := UnmarshalSegmentFromJSONReader(&r)
	return item, r.Error()
}

// MarshalJSON overrides the default json.Marshal behavior to provide the same marshalling behavior
// that is used by NewJSONDataModelSerialization().
func (f FeatureFlag) MarshalJSON() ([]byte, error) {
	return NewJSONDataModelSerialization().MarshalFeatureFlag(f)
}

// MarshalJSON overrides the default json.Marshal behavior to provide the same marshalling behavior
// that is used by NewJSONDataModelSerialization().
func (s Segment) MarshalJSON() ([]byte, error) {
	return NewJSONDataModelSerialization().MarshalSegment(s)
}

// UnmarshalJSON overrides the default json.Unmarshal behavior to provide the same unmarshalling
// behavior that is used by NewJSONDataModelSerialization().
func (f *FeatureFlag) UnmarshalJSON(data []byte) error {
	result, err := NewJSONDataModelSerialization().UnmarshalFeatureFlag(data)
	if err == nil {
		*f = result
	}
	return err
}

// UnmarshalJSON overrides the default json.Unmarshal behavior to provide the same unmarshalling
// behavior that is used by NewJSONDataModelSerialization().
func (s *Segment) UnmarshalJSON(data []byte) error {
	result, err := NewJSONDataModelSerialization().UnmarshalSegment(data)
	if err == nil {
		*s = result
	}
	return err
}

// MarshalFeatureFlagToJSONWriter attempts to convert a FeatureFlag to JSON using the jsonstream
// API. For details, see: https://pkg.go.dev/github.com/launchdarkly/go-jsonstream/v3
func MarshalFeatureFlagToJSONWriter(item FeatureFlag, w *jwriter.Writer) {
	obj := w.Object()

	obj.Name("key").String(item.Key)
	obj.Name("on").Bool(item.On)

	prereqsArr := obj.Name("prerequisites").Array()
	for _, p := range item.Prerequisites {
		prereqObj := prereqsArr.Object()
		prereqObj.Name("key").String(p.Key)
		prereqObj.Name("variation").Int(p.Variation)
		prereqObj.End()
	}
	prereqsArr.End()

	targetsArr := obj.Name("targets").Array()
	for _, t := range item.Targets {
		writeTarget(&targetsArr, t, false)
	}
	targetsArr.End()

	if len(item.ContextTargets) > 0 {
		contextTargetsArr := obj.Name("contextTargets").Array()
		for _, t := range item.ContextTargets {
			writeTarget(&contextTargetsArr, t, true)
		}
		contextTargetsArr.End()
	}

	rulesArr := obj.Name("rules").Array()
	for _, r := range item.Rules {
		ruleObj := rulesArr.Object()
		ruleObj.Maybe("id", r.ID != "").String(r.ID)
		writeVariationOrRolloutProperties(&ruleObj, r.VariationOrRollout)
		clausesArr := ruleObj.Name("clauses").Array()
		for _, c := range r.Clauses {
			writeClause(w, &clausesArr, c)
		}
		clausesArr.End()
		ruleObj.Name("trackEvents").Bool(r.TrackEvents)
		ruleObj.End()
	}
	rulesArr.End()

	fallthroughObj := obj.Name("fallthrough").Object()
	writeVariationOrRolloutProperties(&fallthroughObj, item.Fallthrough)
	fallthroughObj.End()

	obj.Maybe("offVariation", item.OffVariation.IsDefined()).Int(item.OffVariation.IntValue())

	variationsArr := obj.Name("variations").Array()
	for _, v := range item.Variations {
		v.WriteToJSONWriter(w)
	}
	variationsArr.End()

	// In the older JSON schema, the clientSide property was true if the flag was available to
	// client-side JS SDKs. In the newer schema, there is a clientSideAvailability object; we write
	// both, for compatibility with older SDKs that might be reading this representation.
	if item.ClientSideAvailability.Explicit {
		csaObj := obj.Name("clientSideAvailability").Object()
		csaObj.Name("usingMobileKey").Bool(item.ClientSideAvailability.UsingMobileKey)
		csaObj.Name("usingEnvironmentId").Bool(item.ClientSideAvailability.UsingEnvironmentID)
		csaObj.End()
	}
	obj.Name("clientSide").Bool(item.ClientSideAvailability.UsingEnvironmentID)

	obj.Name("salt").String(item.Salt)

	obj.Name("trackEvents").Bool(item.TrackEvents)
	obj.Name("trackEventsFallthrough").Bool(item.TrackEventsFallthrough)

	obj.Maybe("debugEventsUntilDate", item.DebugEventsUntilDate > 0).
		Float64(float64(item.DebugEventsUntilDate))

	obj.Name("version").Int(item.Version)
	obj.Name("deleted").Bool(item.Deleted)

	obj.Maybe("samplingRatio", item.SamplingRatio.IsDefined()).Int(item.SamplingRatio.IntValue())
	obj.Maybe("excludeFromSummaries", item.ExcludeFromSummaries).Bool(item.ExcludeFromSummaries)

	if item.Migration != nil {
		migrationObj := obj.Name("migration").Object()
		migrationObj.Maybe("checkRatio", item.Migration.CheckRatio.IsDefined()).
			Int(item.Migration.CheckRatio.IntValue())
		migrationObj.End()
	}

	obj.End()
}

// MarshalSegmentToJSONWriter attempts to convert a Segment to JSON using the jsonstream API. For
// details, see: https://pkg.go.dev/github.com/launchdarkly/go-jsonstream/v3
func MarshalSegmentToJSONWriter(item Segment, w *jwriter.Writer) {
	obj := w.Object()

	obj.Name("key").String(item.Key)

	writeStringArray(&obj, "included", item.Included)
	writeStringArray(&obj, "excluded", item.Excluded)

	if len(item.IncludedContexts) > 0 {
		writeSegmentTargets(&obj, "includedContexts", item.IncludedContexts)
	}
	if len(item.ExcludedContexts) > 0 {
		writeSegmentTargets(&obj, "excludedContexts", item.ExcludedContexts)
	}

	obj.Name("salt").String(item.Salt)

	rulesArr := obj.Name("rules").Array()
	for _, r := range item.Rules {
		ruleObj := rulesArr.Object()
		ruleObj.Maybe("id", r.ID != "").String(r.ID)
		clausesArr := ruleObj.Name("clauses").Array()
		for _, c := range r.Clauses {
			writeClause(w, &clausesArr, c)
		}
		clausesArr.End()
		ruleObj.Maybe("weight", r.Weight.IsDefined()).Int(r.Weight.IntValue())
		ruleObj.Maybe("bucketBy", r.BucketBy.IsDefined()).String(r.BucketBy.String())
		ruleObj.Maybe("rolloutContextKind", r.RolloutContextKind != "").
			String(string(r.RolloutContextKind))
		ruleObj.End()
	}
	rulesArr.End()

	obj.Maybe("unbounded", item.Unbounded).Bool(item.Unbounded)
	obj.Maybe("unboundedContextKind", item.UnboundedContextKind != "").
		String(string(item.UnboundedContextKind))
	obj.Maybe("generation", item.Generation.IsDefined()).Int(item.Generation.IntValue())

	obj.Name("version").Int(item.Version)
	obj.Name("deleted").Bool(item.Deleted)

	obj.End()
}

func writeTarget(arr *jwriter.ArrayState, t Target, withKind bool) {
	targetObj := arr.Object()
	if withKind {
		targetObj.Maybe("contextKind", t.ContextKind != "").String(string(t.ContextKind))
	}
	valuesArr := targetObj.Name("values").Array()
	for _, v := range t.Values {
		valuesArr.String(v)
	}
	valuesArr.End()
	targetObj.Name("variation").Int(t.Variation)
	targetObj.End()
}

func writeSegmentTargets(obj *jwriter.ObjectState, name string, targets []SegmentTarget) {
	arr := obj.Name(name).Array()
	for _, t := range targets {
		targetObj := arr.Object()
		targetObj.Maybe("contextKind", t.ContextKind != "").String(string(t.ContextKind))
		valuesArr := targetObj.Name("values").Array()
		for _, v := range t.Values {
			valuesArr.String(v)
		}
		valuesArr.End()
		targetObj.End()
	}
	arr.End()
}

func writeStringArray(obj *jwriter.ObjectState, name string, values []string) {
	arr := obj.Name(name).Array()
	for _, v := range values {
		arr.String(v)
	}
	arr.End()
}

func writeVariationOrRolloutProperties(obj *jwriter.ObjectState, vr VariationOrRollout) {
	obj.Maybe("variation", vr.Variation.IsDefined()).Int(vr.Variation.IntValue())
	if len(vr.Rollout.Variations) > 0 {
		rolloutObj := obj.Name("rollout").Object()
		rolloutObj.Maybe("kind", vr.Rollout.Kind != "").String(string(vr.Rollout.Kind))
		rolloutObj.Maybe("contextKind", vr.Rollout.ContextKind != "").
			String(string(vr.Rollout.ContextKind))
		variationsArr := rolloutObj.Name("variations").Array()
		for _, wv := range vr.Rollout.Variations {
			wvObj := variationsArr.Object()
			wvObj.Name("variation").Int(wv.Variation)
			wvObj.Name("weight").Int(wv.Weight)
			wvObj.Maybe("untracked", wv.Untracked).Bool(wv.Untracked)
			wvObj.End()
		}
		variationsArr.End()
		rolloutObj.Maybe("bucketBy", vr.Rollout.BucketBy.IsDefined()).
			String(vr.Rollout.BucketBy.String())
		rolloutObj.Maybe("seed", vr.Rollout.Seed.IsDefined()).Int(vr.Rollout.Seed.IntValue())
		rolloutObj.End()
	}
}

func writeClause(w *jwriter.Writer, arr *jwriter.ArrayState, c Clause) {
	clauseObj := arr.Object()
	clauseObj.Maybe("contextKind", c.ContextKind != "").String(string(c.ContextKind))
	clauseObj.Name("attribute").String(c.Attribute.String())
	clauseObj.Name("op").String(string(c.Op))
	valuesArr := clauseObj.Name("values").Array()
	for _, v := range c.Values {
		v.WriteToJSONWriter(w)
	}
	valuesArr.End()
	clauseObj.Name("negate").Bool(c.Negate)
	clauseObj.End()
}

// UnmarshalFeatureFlagFromJSONReader attempts to convert a FeatureFlag from JSON using the
// jsonstream API. For details, see: https://pkg.go.dev/github.com/launchdarkly/go-jsonstream/v3
func UnmarshalFeatureFlagFromJSONReader(r *jreader.Reader) FeatureFlag {
	var ret FeatureFlag
	var hasExplicitClientSideAvailability bool
	var oldClientSide bool
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "key":
			ret.Key = r.String()
		case "on":
			ret.On = r.Bool()
		case "prerequisites":
			for arr := r.ArrayOrNull(); arr.Next(); {
				var p Prerequisite
				for prereqObj := r.Object(); prereqObj.Next(); {
					switch string(prereqObj.Name()) {
					case "key":
						p.Key = r.String()
					case "variation":
						p.Variation = r.Int()
					}
				}
				ret.Prerequisites = append(ret.Prerequisites, p)
			}
		case "targets":
			ret.Targets = readTargets(r)
		case "contextTargets":
			ret.ContextTargets = readTargets(r)
		case "rules":
			for arr := r.ArrayOrNull(); arr.Next(); {
				var rule FlagRule
				for ruleObj := r.Object(); ruleObj.Next(); {
					switch string(ruleObj.Name()) {
					case "id":
						rule.ID = r.String()
					case "variation":
						rule.Variation = readOptionalInt(r)
					case "rollout":
						rule.Rollout = readRollout(r)
					case "clauses":
						rule.Clauses = readClauses(r)
					case "trackEvents":
						rule.TrackEvents = r.Bool()
					}
				}
				ret.Rules = append(ret.Rules, rule)
			}
		case "fallthrough":
			for ftObj := r.ObjectOrNull(); ftObj.Next(); {
				switch string(ftObj.Name()) {
				case "variation":
					ret.Fallthrough.Variation = readOptionalInt(r)
				case "rollout":
					ret.Fallthrough.Rollout = readRollout(r)
				}
			}
		case "offVariation":
			ret.OffVariation = readOptionalInt(r)
		case "variations":
			for arr := r.ArrayOrNull(); arr.Next(); {
				var v ldvalue.Value
				v.ReadFromJSONReader(r)
				ret.Variations = append(ret.Variations, v)
			}
		case "clientSideAvailability":
			hasExplicitClientSideAvailability = true
			for csaObj := r.ObjectOrNull(); csaObj.Next(); {
				switch string(csaObj.Name()) {
				case "usingMobileKey":
					ret.ClientSideAvailability.UsingMobileKey = r.Bool()
				case "usingEnvironmentId":
					ret.ClientSideAvailability.UsingEnvironmentID = r.Bool()
				}
			}
		case "clientSide":
			oldClientSide = r.Bool()
		case "salt":
			ret.Salt = r.String()
		case "trackEvents":
			ret.TrackEvents = r.Bool()
		case "trackEventsFallthrough":
			ret.TrackEventsFallthrough = r.Bool()
		case "debugEventsUntilDate":
			var v ldvalue.Value
			v.ReadFromJSONReader(r)
			ret.DebugEventsUntilDate = ldtime.UnixMillisecondTime(v.Float64Value())
		case "version":
			ret.Version = r.Int()
		case "deleted":
			ret.Deleted = r.Bool()
		case "samplingRatio":
			ret.SamplingRatio = readOptionalInt(r)
		case "excludeFromSummaries":
			ret.ExcludeFromSummaries = r.Bool()
		case "migration":
			params := MigrationFlagParameters{}
			for migrationObj := r.Object(); migrationObj.Next(); {
				if string(migrationObj.Name()) == "checkRatio" {
					params.CheckRatio = readOptionalInt(r)
				}
			}
			ret.Migration = &params
		}
	}
	if r.Error() != nil {
		return FeatureFlag{}
	}
	if hasExplicitClientSideAvailability {
		ret.ClientSideAvailability.Explicit = true
	} else {
		ret.ClientSideAvailability.UsingMobileKey = true
		ret.ClientSideAvailability.UsingEnvironmentID = oldClientSide
	}
	PreprocessFlag(&ret)
	return ret
}

// UnmarshalSegmentFromJSONReader attempts to convert a Segment from JSON using the jsonstream API.
// For details, see: https://pkg.go.dev/github.com/launchdarkly/go-jsonstream/v3
func UnmarshalSegmentFromJSONReader(r *jreader.Reader) Segment {
	var ret Segment
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "key":
			ret.Key = r.String()
		case "included":
			ret.Included = readStringArray(r)
		case "excluded":
			ret.Excluded = readStringArray(r)
		case "includedContexts":
			ret.IncludedContexts = readSegmentTargets(r)
		case "excludedContexts":
			ret.ExcludedContexts = readSegmentTargets(r)
		case "salt":
			ret.Salt = r.String()
		case "rules":
			for arr := r.ArrayOrNull(); arr.Next(); {
				var rule SegmentRule
				var bucketByStr string
				var hasBucketBy bool
				for ruleObj := r.Object(); ruleObj.Next(); {
					switch string(ruleObj.Name()) {
					case "id":
						rule.ID = r.String()
					case "clauses":
						rule.Clauses = readClauses(r)
					case "weight":
						rule.Weight = readOptionalInt(r)
					case "bucketBy":
						bucketByStr, hasBucketBy = r.String(), true
					case "rolloutContextKind":
						rule.RolloutContextKind = ldcontext.Kind(r.String())
					}
				}
				if hasBucketBy {
					rule.BucketBy = makeAttrRef(bucketByStr, rule.RolloutContextKind != "")
				}
				ret.Rules = append(ret.Rules, rule)
			}
		case "unbounded":
			ret.Unbounded = r.Bool()
		case "unboundedContextKind":
			ret.UnboundedContextKind = ldcontext.Kind(r.String())
		case "generation":
			ret.Generation = readOptionalInt(r)
		case "version":
			ret.Version = r.Int()
		case "deleted":
			ret.Deleted = r.Bool()
		}
	}
	if r.Error() != nil {
		return Segment{}
	}
	PreprocessSegment(&ret)
	return ret
}

func readTargets(r *jreader.Reader) []Target {
	var ret []Target
	for arr := r.ArrayOrNull(); arr.Next(); {
		var t Target
		for targetObj := r.Object(); targetObj.Next(); {
			switch string(targetObj.Name()) {
			case "contextKind":
				t.ContextKind = ldcontext.Kind(r.String())
			case "values":
				t.Values = readStringArray(r)
			case "variation":
				t.Variation = r.Int()
			}
		}
		ret = append(ret, t)
	}
	return ret
}

func readSegmentTargets(r *jreader.Reader) []SegmentTarget {
	var ret []SegmentTarget
	for arr := r.ArrayOrNull(); arr.Next(); {
		var t SegmentTarget
		for targetObj := r.Object(); targetObj.Next(); {
			switch string(targetObj.Name()) {
			case "contextKind":
				t.ContextKind = ldcontext.Kind(r.String())
			case "values":
				t.Values = readStringArray(r)
			}
		}
		ret = append(ret, t)
	}
	return ret
}

func readStringArray(r *jreader.Reader) []string {
	var ret []string
	for arr := r.ArrayOrNull(); arr.Next(); {
		ret = append(ret, r.String())
	}
	return ret
}

func readOptionalInt(r *jreader.Reader) ldvalue.OptionalInt {
	if n, nonNull := r.IntOrNull(); nonNull {
		return ldvalue.NewOptionalInt(n)
	}
	return ldvalue.OptionalInt{}
}

func readRollout(r *jreader.Reader) Rollout {
	var ret Rollout
	var bucketByStr string
	var hasBucketBy bool
	for rolloutObj := r.ObjectOrNull(); rolloutObj.Next(); {
		switch string(rolloutObj.Name()) {
		case "kind":
			ret.Kind = RolloutKind(r.String())
		case "contextKind":
			ret.ContextKind = ldcontext.Kind(r.String())
		case "variations":
			for arr := r.ArrayOrNull(); arr.Next(); {
				var wv WeightedVariation
				for wvObj := r.Object(); wvObj.Next(); {
					switch string(wvObj.Name()) {
					case "variation":
						wv.Variation = r.Int()
					case "weight":
						wv.Weight = r.Int()
					case "untracked":
						wv.Untracked = r.Bool()
					}
				}
				ret.Variations = append(ret.Variations, wv)
			}
		case "bucketBy":
			bucketByStr, hasBucketBy = r.String(), true
		case "seed":
			ret.Seed = readOptionalInt(r)
		}
	}
	if hasBucketBy {
		ret.BucketBy = makeAttrRef(bucketByStr, ret.ContextKind != "")
	}
	return ret
}

func readClauses(r *jreader.Reader) []Clause {
	var ret []Clause
	for arr := r.ArrayOrNull(); arr.Next(); {
		var c Clause
		var attrStr string
		var hasAttr bool
		for clauseObj := r.Object(); clauseObj.Next(); {
			switch string(clauseObj.Name()) {
			case "contextKind":
				c.ContextKind = ldcontext.Kind(r.String())
			case "attribute":
				attrStr, hasAttr = r.String(), true
			case "op":
				c.Op = Operator(r.String())
			case "values":
				for valuesArr := r.ArrayOrNull(); valuesArr.Next(); {
					var v ldvalue.Value
					v.ReadFromJSONReader(r)
					c.Values = append(c.Values, v)
				}
			case "negate":
				c.Negate = r.Bool()
			}
		}
		if hasAttr && attrStr != "" {
			c.Attribute = makeAttrRef(attrStr, c.ContextKind != "")
		}
		ret = append(ret, c)
	}
	return ret
}

// In the older JSON schema, attribute names were plain names rather than attribute references, so
// an attribute like "/a/b" means a top-level attribute literally named "/a/b" rather than a nested
// lookup. The presence of a contextKind property tells us which schema is in use.
func makeAttrRef(s string, isRefSyntax bool) ldattr.Ref {
	if isRefSyntax {
		return ldattr.NewRef(s)
	}
	return ldattr.NewLiteralRef(s)
}
