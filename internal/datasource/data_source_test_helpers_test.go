package datasource

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-server-sdk-core/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest/mocks"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

const testSDKKey = "test-sdk-key"

func basicClientContext() subsystems.ClientContext {
	return sharedtest.NewSimpleTestContext(testSDKKey)
}

func withMockDataSourceUpdates(action func(*mocks.MockDataSourceUpdates)) {
	d := mocks.NewMockDataSourceUpdates(datastore.NewInMemoryDataStore(sharedtest.NewTestLoggers()))
	// currently don't need to defer any cleanup actions
	action(d)
}

func waitForReadyWithTimeout(t *testing.T, closeWhenReady <-chan struct{}, timeout time.Duration) {
	select {
	case <-closeWhenReady:
		return
	case <-time.After(timeout):
		require.Fail(t, "timed out waiting for data source to finish starting")
	}
}

type urlAppendingHTTPTransport string

func urlAppendingHTTPClientFactory(suffix string) func() *http.Client {
	return func() *http.Client {
		return &http.Client{Transport: urlAppendingHTTPTransport(suffix)}
	}
}

func (t urlAppendingHTTPTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	req := *r
	req.URL.Path = req.URL.Path + string(t)
	return http.DefaultTransport.RoundTrip(&req)
}

type filterTest struct {
	name  string
	key   string
	query string
}

func testWithFilters(t *testing.T, test func(t *testing.T, filter filterTest)) {
	filters := []filterTest{
		{name: "no filter", key: "", query: ""},
		{name: "filter", key: "microservice-1", query: "filter=microservice-1"},
		{name: "filter requiring urlencoding", key: "micro service 1", query: "filter=micro+service+1"},
	}
	for _, f := range filters {
		t.Run(f.name, func(t *testing.T) {
			test(t, f)
		})
	}
}
