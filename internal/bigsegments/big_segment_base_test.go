package bigsegments

import (
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"

	"github.com/stretchr/testify/assert"
)

type storeManagerTestParams struct {
	t                *testing.T
	store            *sharedtest.MockBigSegmentStore
	manager          *BigSegmentStoreManager
	pollInterval     time.Duration
	staleTime        time.Duration
	contextCacheSize int
	contextCacheTime time.Duration
	mockLog          *ldlogtest.MockLog
}

func storeManagerTest(t *testing.T) *storeManagerTestParams {
	return &storeManagerTestParams{
		t:                t,
		store:            &sharedtest.MockBigSegmentStore{},
		pollInterval:     time.Millisecond * 10,
		staleTime:        time.Hour,
		contextCacheSize: 1000,
		contextCacheTime: time.Hour,
		mockLog:          ldlogtest.NewMockLog(),
	}
}

func (p *storeManagerTestParams) run(action func(*storeManagerTestParams)) {
	defer p.mockLog.DumpIfTestFailed(p.t)
	p.manager = NewBigSegmentStoreManager(p.store, p.pollInterval, p.staleTime,
		p.contextCacheSize, p.contextCacheTime, p.mockLog.Loggers)
	p.store.TestSetMetadataToCurrentTime()
	defer p.manager.Close()
	action(p)
}

func (p *storeManagerTestParams) assertMembership(contextKey string, expected subsystems.BigSegmentMembership) {
	membership, ok := p.manager.getContextMembership(contextKey)
	assert.True(p.t, ok)
	assert.Equal(p.t, expected, membership)
}

func (p *storeManagerTestParams) assertContextHashesQueried(hashes ...string) {
	assert.Equal(p.t, hashes, p.store.TestGetMembershipQueries())
}
