package evaluation

import (
	"crypto/sha1" //nolint:gosec // SHA1 is cryptographically weak but we are not using it to hash any credentials
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/launchdarkly/go-sdk-common/v3/ldattr"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Number of hex digits we want to use from the hash
const bucketHashLength = 15

// The hash digits are interpreted as a fraction of this value
const longScale = float32(0xFFFFFFFFFFFFFFF)

// A "bucketing failure" is any condition that prevents us from being able to compute a valid bucket
// value; we handle all of these by simply not bucketing the context, rather than failing the whole
// evaluation. The enum allows the caller to distinguish between these conditions, since in
// experiments a missing context kind means the result is not counted as being in the experiment.
type bucketingFailureReason int

const (
	bucketingFailureInvalidAttrRef        bucketingFailureReason = iota + 1 // 0 means no failure
	bucketingFailureContextLacksDesiredKind
	bucketingFailureAttributeNotFound
	bucketingFailureAttributeValueWrongType
)

// Computes a number from 0.0 to 1.0 deterministically based on a context attribute. This is used
// for percentage rollouts, experiments, and percentage-based segment rules.
//
// The second return value indicates, if non-zero, a condition that prevented us from computing a
// real bucket value, in which case the bucket value is zero. A non-nil error means the flag or
// segment data was malformed in a way that should make the whole evaluation fail.
func (es *evaluationScope) computeBucketValue(
	isExperiment bool,
	seed ldvalue.OptionalInt,
	contextKind ldcontext.Kind,
	key string,
	attr ldattr.Ref,
	salt string,
) (float32, bucketingFailureReason, error) {
	var prefix string
	if seed.IsDefined() {
		prefix = strconv.Itoa(seed.IntValue())
	} else {
		prefix = key + "." + salt
	}

	if isExperiment || !attr.IsDefined() {
		attr = ldattr.NewLiteralRef(ldattr.KeyAttr) // experiments always bucket by key
	} else if attr.Err() != nil {
		return 0, bucketingFailureInvalidAttrRef, fmt.Errorf("invalid attribute reference %q in rollout", attr.String())
	}

	if contextKind == "" {
		contextKind = ldcontext.DefaultKind
	}
	selectedContext := es.context.IndividualContextByKind(contextKind)
	if !selectedContext.IsDefined() {
		return 0, bucketingFailureContextLacksDesiredKind, nil
	}

	uValue := selectedContext.GetValueForRef(attr)
	idHash, ok := bucketableStringValue(uValue)
	if !ok {
		if uValue.IsNull() {
			return 0, bucketingFailureAttributeNotFound, nil
		}
		return 0, bucketingFailureAttributeValueWrongType, nil
	}

	h := sha1.New() //nolint:gas // just used for insecure hashing
	_, _ = io.WriteString(h, prefix+"."+idHash)
	hash := hex.EncodeToString(h.Sum(nil))[:bucketHashLength]

	intVal, _ := strconv.ParseInt(hash, 16, 64)

	return float32(intVal) / longScale, 0, nil
}

// Strings are usable as-is; integer numbers are converted to their decimal representation; any
// other value cannot be used for bucketing.
func bucketableStringValue(uValue ldvalue.Value) (string, bool) {
	if uValue.Type() == ldvalue.StringType {
		return uValue.StringValue(), true
	}
	if uValue.IsInt() {
		return strconv.Itoa(uValue.IntValue()), true
	}
	return "", false
}
