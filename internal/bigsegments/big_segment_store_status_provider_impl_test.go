package bigsegments

import (
	"errors"
	"testing"
	"time"

	"github.com/launchdarkly/go-server-sdk-core/interfaces"
	"github.com/launchdarkly/go-server-sdk-core/internal"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"

	"github.com/stretchr/testify/assert"
)

func TestGetStatusWhenNoStoreExists(t *testing.T) {
	broadcaster := internal.NewBroadcaster[interfaces.BigSegmentStoreStatus]()
	defer broadcaster.Close()
	provider := NewBigSegmentStoreStatusProviderImpl(nil, broadcaster)

	status := provider.GetStatus()
	assert.False(t, status.Available)
	assert.False(t, status.Stale)
}

func TestStatusListener(t *testing.T) {
	storeManagerTest(t).run(func(p *storeManagerTestParams) {
		provider := NewBigSegmentStoreStatusProviderImpl(p.manager.getStatus, p.manager.getBroadcaster())
		p.store.TestSetMetadataToCurrentTime()

		statusCh := provider.AddStatusListener()

		sharedtest.ExpectBigSegmentStoreStatus(t, statusCh, provider.GetStatus, time.Second,
			interfaces.BigSegmentStoreStatus{Available: true, Stale: false})

		p.store.TestSetMetadataState(subsystems.BigSegmentStoreMetadata{}, errors.New("sorry"))
		sharedtest.ExpectBigSegmentStoreStatus(t, statusCh, provider.GetStatus, time.Second,
			interfaces.BigSegmentStoreStatus{Available: false, Stale: false})

		p.store.TestSetMetadataToCurrentTime()
		sharedtest.ExpectBigSegmentStoreStatus(t, statusCh, provider.GetStatus, time.Second,
			interfaces.BigSegmentStoreStatus{Available: true, Stale: false})
	})
}

func TestStatusListenerWhenNoStoreExists(t *testing.T) {
	broadcaster := internal.NewBroadcaster[interfaces.BigSegmentStoreStatus]()
	defer broadcaster.Close()
	provider := NewBigSegmentStoreStatusProviderImpl(nil, broadcaster)

	statusCh := provider.AddStatusListener()
	assert.NotNil(t, statusCh) // nothing will be sent on this channel, but there should be one
}
