package bigsegments

import (
	"errors"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-server-sdk-core/interfaces"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest"
	"github.com/launchdarkly/go-server-sdk-core/subsystems/ldstoreimpl"

	"github.com/stretchr/testify/assert"
)

func TestBigSegmentProviderContextNotFound(t *testing.T) {
	storeManagerTest(t).run(func(p *storeManagerTestParams) {
		provider := NewBigSegmentProviderImpl(p.manager)

		membership, status := provider.GetBigSegmentMembership("contextkey1")
		assert.Nil(t, membership)
		assert.Equal(t, ldreason.BigSegmentsHealthy, status)
	})
}

func TestBigSegmentProviderContextFoundAndStoreNotStale(t *testing.T) {
	key := "contextkey1"
	hash := HashForContextKey(key)
	expectedMembership := ldstoreimpl.NewBigSegmentMembershipFromSegmentRefs([]string{"yes"}, []string{"no"})

	storeManagerTest(t).run(func(p *storeManagerTestParams) {
		provider := NewBigSegmentProviderImpl(p.manager)
		p.store.TestSetMembership(hash, expectedMembership)

		membership, status := provider.GetBigSegmentMembership(key)
		assert.Equal(t, expectedMembership, membership)
		assert.Equal(t, ldreason.BigSegmentsHealthy, status)
	})
}

func TestBigSegmentProviderContextFoundAndStoreStale(t *testing.T) {
	key := "contextkey1"
	hash := HashForContextKey(key)
	expectedMembership := ldstoreimpl.NewBigSegmentMembershipFromSegmentRefs([]string{"yes"}, []string{"no"})

	p := storeManagerTest(t)
	p.staleTime = time.Millisecond * 100
	p.run(func(p *storeManagerTestParams) {
		provider := NewBigSegmentProviderImpl(p.manager)
		statusCh := p.manager.getBroadcaster().AddListener()
		sharedtest.ExpectBigSegmentStoreStatus(t, statusCh, p.manager.getStatus, time.Second,
			interfaces.BigSegmentStoreStatus{Available: true, Stale: false})
		sharedtest.ExpectBigSegmentStoreStatus(t, statusCh, p.manager.getStatus, time.Second,
			interfaces.BigSegmentStoreStatus{Available: true, Stale: true})
		p.store.TestSetMembership(hash, expectedMembership)

		membership, status := provider.GetBigSegmentMembership(key)
		assert.Equal(t, expectedMembership, membership)
		assert.Equal(t, ldreason.BigSegmentsStale, status)
	})
}

func TestBigSegmentProviderStoreError(t *testing.T) {
	storeManagerTest(t).run(func(p *storeManagerTestParams) {
		provider := NewBigSegmentProviderImpl(p.manager)
		fakeError := errors.New("sorry")
		p.store.TestSetMembershipError(fakeError)

		membership, status := provider.GetBigSegmentMembership("contextkey1")
		assert.Nil(t, membership)
		assert.Equal(t, ldreason.BigSegmentsStoreError, status)
	})
}
