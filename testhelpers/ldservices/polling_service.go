package ldservices

import (
	"net/http"

	"github.com/launchdarkly/go-test-helpers/v3/httphelpers"
)

// ServerSideSDKPollingPath is the expected request path for server-side SDK polling requests.
const ServerSideSDKPollingPath = "/sdk/latest-all"

// ServerSidePollingServiceHandler creates an HTTP handler to mimic the LaunchDarkly server-side polling service.
//
// This handler returns JSON data for requests to /sdk/latest-all, and a 404 error for all other requests.
// The data parameter is marshaled to JSON again for each request; if it is nil, the response is an empty
// JSON object {}.
//
//	data := NewServerSDKData().Flags(flag1, flag2)
//	handler := ldservices.ServerSidePollingServiceHandler(data)
func ServerSidePollingServiceHandler(data interface{}) http.Handler {
	if data == nil {
		data = map[string]interface{}{} // default is an empty JSON object rather than null
	}
	return httphelpers.HandlerForPath(ServerSideSDKPollingPath,
		httphelpers.HandlerForMethod("GET", httphelpers.HandlerWithJSONResponse(data, nil), nil), nil)
}
