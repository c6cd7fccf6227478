package bigsegments

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-server-sdk-core/evaluation"
)

// Internal implementation of the evaluation.BigSegmentProvider interface. This is a simple
// wrapper around BigSegmentStoreManager; the latter handles context key hashing and caching.

type bigSegmentProviderImpl struct {
	storeManager *BigSegmentStoreManager
}

// NewBigSegmentProviderImpl creates the internal implementation of BigSegmentProvider.
func NewBigSegmentProviderImpl(storeManager *BigSegmentStoreManager) evaluation.BigSegmentProvider {
	return &bigSegmentProviderImpl{
		storeManager: storeManager,
	}
}

// GetBigSegmentMembership is called by the evaluator when it needs to get the Big Segment
// membership state for an evaluation context.
func (u *bigSegmentProviderImpl) GetBigSegmentMembership(
	contextKey string,
) (evaluation.BigSegmentMembership, ldreason.BigSegmentsStatus) {
	membership, ok := u.storeManager.getContextMembership(contextKey)
	if !ok {
		return nil, ldreason.BigSegmentsStoreError
	}
	status := ldreason.BigSegmentsHealthy
	if u.storeManager.getStatus().Stale {
		status = ldreason.BigSegmentsStale
	}
	if membership == nil {
		return nil, status
	}
	return membership, status
}
