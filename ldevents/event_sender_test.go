package ldevents

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakeEventData = []byte(`[{"kind":"fake"}]`)

func makeSenderConfig(client *http.Client) EventSenderConfiguration {
	return EventSenderConfiguration{
		Client:     client,
		BaseURI:    fakeBaseURI,
		RetryDelay: briefRetryDelay,
	}
}

// Records all requests, and responds with the given statuses in order, using the last status for
// any further requests.
func newHTTPClientWithStatuses(statuses ...int) (*http.Client, *[]httpRequestInfo) {
	requests := &[]httpRequestInfo{}
	var lock sync.Mutex
	client := newHTTPClientWithHandler(func(request *http.Request) (*http.Response, error) {
		lock.Lock()
		defer lock.Unlock()
		*requests = append(*requests, httpRequestInfo{request: request, body: getBody(request)})
		status := statuses[0]
		if len(statuses) > 1 {
			statuses = statuses[1:]
		}
		return newHTTPResponse(request, status, nil, nil), nil
	})
	return client, requests
}

func TestAnalyticsEventDataIsSentToBulkURI(t *testing.T) {
	client, requests := newHTTPClientWithStatuses(202)
	sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

	result := sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)

	assert.True(t, result.Success)
	assert.False(t, result.MustShutDown)
	require.Len(t, *requests, 1)
	r := (*requests)[0]
	assert.Equal(t, "POST", r.request.Method)
	assert.Equal(t, fakeEventsURI, r.request.URL.String())
	assert.Equal(t, fakeEventData, r.body)
}

func TestAnalyticsEventDataRequestHasStandardHeaders(t *testing.T) {
	client, requests := newHTTPClientWithStatuses(202)
	sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

	_ = sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)
	_ = sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)

	require.Len(t, *requests, 2)
	headers1 := (*requests)[0].request.Header
	assert.Equal(t, sdkKey, headers1.Get("Authorization"))
	assert.Equal(t, "application/json", headers1.Get("Content-Type"))
	assert.Equal(t, "4", headers1.Get("X-LaunchDarkly-Event-Schema"))
	assert.NotEqual(t, "", headers1.Get("X-LaunchDarkly-Payload-ID"))

	// each payload gets its own ID
	headers2 := (*requests)[1].request.Header
	assert.NotEqual(t, headers1.Get("X-LaunchDarkly-Payload-ID"), headers2.Get("X-LaunchDarkly-Payload-ID"))
}

func TestDiagnosticEventDataIsSentToDiagnosticURI(t *testing.T) {
	client, requests := newHTTPClientWithStatuses(202)
	sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

	result := sender.SendEventData(DiagnosticEventDataKind, fakeEventData, 1)

	assert.True(t, result.Success)
	require.Len(t, *requests, 1)
	r := (*requests)[0]
	assert.Equal(t, fakeDiagnosticURI, r.request.URL.String())
	assert.Equal(t, fakeEventData, r.body)

	// diagnostic events do not get the schema or payload ID headers
	assert.Equal(t, sdkKey, r.request.Header.Get("Authorization"))
	assert.Equal(t, "", r.request.Header.Get("X-LaunchDarkly-Event-Schema"))
	assert.Equal(t, "", r.request.Header.Get("X-LaunchDarkly-Payload-ID"))
}

func TestServerDateIsParsed(t *testing.T) {
	serverTime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	client := newHTTPClientWithHandler(func(request *http.Request) (*http.Response, error) {
		headers := make(http.Header)
		headers.Set("Date", serverTime.Format(http.TimeFormat))
		return newHTTPResponse(request, 202, headers, nil), nil
	})
	sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

	result := sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)

	assert.True(t, result.Success)
	assert.Equal(t, ldtime.UnixMillisFromTime(serverTime), result.TimeFromServer)
}

func TestRecoverableHTTPErrorIsRetriedOnce(t *testing.T) {
	for _, status := range []int{400, 408, 429, 500, 503} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client, requests := newHTTPClientWithStatuses(status, 202)
			sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

			result := sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)

			assert.True(t, result.Success)
			assert.False(t, result.MustShutDown)
			require.Len(t, *requests, 2)
			assert.Equal(t, fakeEventData, (*requests)[0].body)
			assert.Equal(t, fakeEventData, (*requests)[1].body)
		})
	}
}

func TestEventDeliveryFailsAfterTwoAttempts(t *testing.T) {
	client, requests := newHTTPClientWithStatuses(503, 503)
	sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

	result := sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)

	assert.False(t, result.Success)
	assert.False(t, result.MustShutDown)
	assert.Len(t, *requests, 2)
}

func TestNetworkErrorIsRetriedOnce(t *testing.T) {
	attempts := 0
	var lock sync.Mutex
	client := newHTTPClientWithHandler(func(request *http.Request) (*http.Response, error) {
		lock.Lock()
		defer lock.Unlock()
		attempts++
		if attempts == 1 {
			return nil, errors.New("fake network failure")
		}
		return newHTTPResponse(request, 202, nil, nil), nil
	})
	sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

	result := sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)

	assert.True(t, result.Success)
	assert.Equal(t, 2, attempts)
}

func TestUnrecoverableHTTPErrorStopsSending(t *testing.T) {
	for _, status := range []int{401, 403} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client, requests := newHTTPClientWithStatuses(status)
			sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

			result := sender.SendEventData(AnalyticsEventDataKind, fakeEventData, 1)

			assert.False(t, result.Success)
			assert.True(t, result.MustShutDown)
			assert.Len(t, *requests, 1) // no retry
		})
	}
}

func TestSendEventDataWithRetryUsesOverridePath(t *testing.T) {
	client, requests := newHTTPClientWithStatuses(202)

	result := SendEventDataWithRetry(makeSenderConfig(client), AnalyticsEventDataKind, "custom/path",
		fakeEventData, 1)

	assert.True(t, result.Success)
	require.Len(t, *requests, 1)
	assert.Equal(t, fakeBaseURI+"/custom/path", (*requests)[0].request.URL.String())
}

func TestSendEventDataWithRetryUsesBaseHeaders(t *testing.T) {
	client, requests := newHTTPClientWithStatuses(202)
	config := makeSenderConfig(client)
	config.BaseHeaders = func() http.Header {
		headers := make(http.Header)
		headers.Set("X-Custom-Header", "hello")
		return headers
	}

	_ = SendEventDataWithRetry(config, AnalyticsEventDataKind, "", fakeEventData, 1)

	require.Len(t, *requests, 1)
	assert.Equal(t, "hello", (*requests)[0].request.Header.Get("X-Custom-Header"))
}

func TestUnknownEventDataKindIsIgnored(t *testing.T) {
	client, requests := newHTTPClientWithStatuses(202)
	sender := NewServerSideEventSender(makeSenderConfig(client), sdkKey)

	result := sender.SendEventData(EventDataKind("other"), fakeEventData, 1)

	assert.False(t, result.Success)
	assert.Len(t, *requests, 0)
}
