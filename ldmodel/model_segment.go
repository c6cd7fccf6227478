package ldmodel

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldattr"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Segment describes a group of contexts based on context keys and/or matching rules.
//
// The fields of this struct are exported for use by LaunchDarkly internal components. Application code
// should normally not reference Segment fields directly; segment data normally comes from LaunchDarkly
// SDK endpoints in JSON form and can be deserialized using the DataModelSerialization interface.
type Segment struct {
	// Key is the unique key of the segment.
	Key string
	// Included is a list of context keys of the default kind (user) that are always matched by this
	// segment.
	Included []string
	// Excluded is a list of context keys of the default kind (user) that are never matched by this
	// segment, unless the key is also in Included.
	Excluded []string
	// IncludedContexts contains sets of individually included contexts for specific context kinds.
	IncludedContexts []SegmentTarget
	// ExcludedContexts contains sets of individually excluded contexts for specific context kinds.
	ExcludedContexts []SegmentTarget
	// Salt is a randomized value assigned to this segment when it is created.
	//
	// The hash function used for calculating percentage rollouts uses this as a salt to ensure that
	// rollouts are consistent within each segment but not predictable from one segment to another.
	Salt string
	// Rules is a list of rules that may match a context.
	//
	// If a context is matched by a Rule, all subsequent Rules in the list are skipped. Rules are
	// ignored if the context's key was matched by Included, Excluded, IncludedContexts, or
	// ExcludedContexts.
	Rules []SegmentRule
	// Unbounded is true if this is a segment whose included context list is stored separately and is
	// not limited in size. Unbounded segments are also known as Big Segments.
	//
	// The name is historical: it refers to the fact that the segment does not have a fixed list of
	// inclusions/exclusions in this data model object. Instead, it has a generation number, and the
	// inclusions/exclusions are queried from a BigSegmentStore.
	Unbounded bool
	// UnboundedContextKind is the context kind associated with the included context list for this
	// segment, if Unbounded is true. An empty value is equivalent to ldcontext.DefaultKind.
	UnboundedContextKind ldcontext.Kind
	// Generation is an integer that indicates which set of big segment data is currently active for
	// this segment key. LaunchDarkly increments it if a segment is deleted and recreated. This value
	// is only meaningful for big segments. If this field is unset, the segment representation is out
	// of date, and any attempt to evaluate it produces a BigSegmentsNotConfigured status.
	Generation ldvalue.OptionalInt
	// Version is an integer that is incremented by LaunchDarkly every time the configuration of the
	// segment is changed.
	Version int
	// Deleted is true if this is not actually a segment but rather a placeholder (tombstone) for a
	// deleted segment. This is only relevant in data store implementations.
	Deleted bool
	// preprocessed is created by PreprocessSegment() to speed up target matching.
	preprocessed segmentPreprocessedData
}

// SegmentTarget describes a target list within a segment, for a specific context kind.
type SegmentTarget struct {
	// ContextKind is the context kind that this target list applies to.
	//
	// LaunchDarkly will normally always set this property, but if it is empty/omitted, it should be
	// treated as ldcontext.DefaultKind. An empty string value here represents the property being unset
	// (so it will be omitted in serialization).
	ContextKind ldcontext.Kind
	// Values is the set of context keys in this Target.
	Values []string
	// preprocessed is created by PreprocessSegment() to speed up target matching.
	preprocessed targetPreprocessedData
}

// SegmentRule describes a single rule within a segment.
type SegmentRule struct {
	// ID is a randomized identifier assigned to each rule when it is created.
	ID string
	// Clauses is a list of test conditions that make up the rule. These are ANDed: every Clause must
	// match in order for the SegmentRule to match.
	Clauses []Clause
	// Weight, if defined, specifies a percentage rollout in which only a subset of contexts matching
	// this rule are included in the segment. This is specified as an integer from 0 (0%) to 100000
	// (100%).
	Weight ldvalue.OptionalInt
	// BucketBy specifies which context attribute should be used to distinguish between contexts in a
	// rollout. This only applies if Weight is defined.
	//
	// The default (when BucketBy is empty) is ldattr.KeyAttr, the context's primary key. If you wish to
	// treat contexts with different keys as the same for rollout purposes as long as they have the same
	// "country" attribute, you would set this to "country".
	BucketBy ldattr.Ref
	// RolloutContextKind is the context kind to be used for the rollout, if Weight is defined. An
	// empty value is equivalent to ldcontext.DefaultKind.
	RolloutContextKind ldcontext.Kind
}

// String returns a basic printed representation of the segment, currently equivalent to its JSON
// representation.
func (s Segment) String() string {
	bytes, _ := NewJSONDataModelSerialization().MarshalSegment(s)
	return string(bytes)
}

// String returns a basic printed representation of the flag, currently equivalent to its JSON
// representation.
func (f FeatureFlag) String() string {
	bytes, _ := NewJSONDataModelSerialization().MarshalFeatureFlag(f)
	return string(bytes)
}
