package ldevents

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"

	"github.com/google/uuid"
)

const (
	defaultEventsURIPath     = "/bulk"
	defaultDiagnosticURIPath = "/diagnostic"

	currentEventSchemaVersion = 4

	defaultRetryDelay = time.Second
)

// EventSenderConfiguration contains parameters for event delivery that do not vary from one event payload to
// another.
type EventSenderConfiguration struct {
	// Client is the HTTP client instance to use, or nil to use http.DefaultClient.
	Client *http.Client
	// BaseURI is the base URI to which the standard endpoint paths will be added.
	BaseURI string
	// BaseHeaders returns the headers that should be included in all requests, not including
	// Content-Type or the event schema headers. The function is called each time a request is made.
	BaseHeaders func() http.Header
	// SchemaVersion is the value to send in the X-LaunchDarkly-Event-Schema header, or 0 to use the
	// latest version.
	SchemaVersion int
	// RetryDelay is the length of time to wait before a retry, or 0 to use the default delay (1 second).
	RetryDelay time.Duration
	// Loggers is used for logging any output related to event delivery.
	Loggers ldlog.Loggers
}

type defaultEventSender struct {
	config EventSenderConfiguration
	sdkKey string
}

// NewServerSideEventSender creates the standard implementation of EventSender for server-side SDKs.
//
// The underlying behavior is mostly provided by SendEventDataWithRetry. It adds the Authorization
// header for the SDK key, and uses the standard URI paths for analytics and diagnostic events.
func NewServerSideEventSender(
	config EventSenderConfiguration,
	sdkKey string,
) EventSender {
	return &defaultEventSender{
		config: config,
		sdkKey: sdkKey,
	}
}

func (s *defaultEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	config := s.config
	originalBaseHeaders := config.BaseHeaders
	config.BaseHeaders = func() http.Header {
		ret := make(http.Header)
		if originalBaseHeaders != nil {
			for k, v := range originalBaseHeaders() {
				ret[k] = v
			}
		}
		ret.Set("Authorization", s.sdkKey)
		return ret
	}
	return SendEventDataWithRetry(config, kind, "", data, eventCount)
}

// SendEventDataWithRetry provides an entry point to the same event delivery logic that is used by the
// default EventSender. This is exported separately for convenience in code such as the Relay Proxy which
// needs to implement the same behavior in situations where the ldevents package is not managing the
// overall event delivery.
//
// The behavior provided is specifically: 1. send a POST request to the designated URI, with headers as
// computed by config.BaseHeaders plus Content-Type and (for analytics events) the event schema and
// payload ID headers; 2. in case of a recoverable error such as a 503 or an I/O error, retry exactly
// once, after a delay configured by config.RetryDelay; 3. parse the Date header in the response, if any,
// so the caller can know the current date as the events service sees it.
//
// If overridePath is non-empty, it is used as the URI path; otherwise, the standard path of /bulk or
// /diagnostic is used.
func SendEventDataWithRetry(
	config EventSenderConfiguration,
	kind EventDataKind,
	overridePath string,
	data []byte,
	eventCount int,
) EventSenderResult {
	headers := make(http.Header)
	if config.BaseHeaders != nil {
		for k, v := range config.BaseHeaders() {
			headers[k] = v
		}
	}
	headers.Set("Content-Type", "application/json")

	var uri, description, path string

	switch kind {
	case AnalyticsEventDataKind:
		description = fmt.Sprintf("%d events", eventCount)
		path = defaultEventsURIPath
		payloadUUID, _ := uuid.NewRandom()
		headers.Add("X-LaunchDarkly-Payload-ID", payloadUUID.String())
		// if NewRandom somehow failed, we'll just proceed with an empty string
		schemaVersion := config.SchemaVersion
		if schemaVersion == 0 {
			schemaVersion = currentEventSchemaVersion
		}
		headers.Add("X-LaunchDarkly-Event-Schema", strconv.Itoa(schemaVersion))
	case DiagnosticEventDataKind:
		description = "diagnostic event"
		path = defaultDiagnosticURIPath
	default:
		return EventSenderResult{}
	}

	if overridePath != "" {
		path = "/" + strings.TrimLeft(overridePath, "/")
	}
	uri = strings.TrimRight(config.BaseURI, "/") + path

	client := config.Client
	if client == nil {
		client = http.DefaultClient
	}

	retryDelay := config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	var result EventSenderResult

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			config.Loggers.Warnf("Will retry posting events after %s", retryDelay)
			time.Sleep(retryDelay)
		}

		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(data))
		if reqErr != nil {
			config.Loggers.Errorf("Unexpected error while creating event request: %+v", reqErr)
			return result
		}
		req.Header = headers

		resp, respErr := client.Do(req)
		if respErr != nil {
			config.Loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		}

		// Read the response body even if we don't need it, to allow the connection to be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			config.Loggers.Debugf("Successfully posted %s", description)
			result.Success = true
			if t, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
				result.TimeFromServer = ldtime.UnixMillisFromTime(t)
			}
			return result
		}

		if isHTTPErrorRecoverable(resp.StatusCode) {
			maybeRetry := "will retry"
			if attempt == 1 {
				maybeRetry = "some events were dropped"
			}
			config.Loggers.Warnf(httpErrorMessage(resp.StatusCode, "sending "+description, maybeRetry))
		} else {
			config.Loggers.Errorf(httpErrorMessage(resp.StatusCode, "sending "+description, ""))
			result.MustShutDown = true
			return result
		}
	}

	return result
}
