package ldcomponents

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/internal"
	"github.com/launchdarkly/go-server-sdk-core/ldhttp"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

// DefaultConnectTimeout is the HTTP connection timeout that is used if
// HTTPConfigurationBuilder.ConnectTimeout is not set.
const DefaultConnectTimeout = 3 * time.Second

var validTagValueRegex = regexp.MustCompile(`^[\w.-]+$`) //nolint:gochecknoglobals

// HTTPConfigurationBuilder contains methods for configuring the SDK's networking behavior.
//
// If you want to set non-default values for any of these properties, create a builder with
// ldcomponents.HTTPConfiguration(), change its properties with the HTTPConfigurationBuilder methods,
// and store it in the HTTP field of your SDK configuration:
//
//	config := ld.Config{
//	    HTTP: ldcomponents.HTTPConfiguration().
//	        ConnectTimeout(3 * time.Second).
//	        ProxyURL(proxyUrl),
//	}
type HTTPConfigurationBuilder struct {
	connectTimeout    time.Duration
	httpClientFactory func() *http.Client
	httpOptions       []ldhttp.TransportOption
	proxyURL          string
	wrapperName       string
	wrapperVersion    string
}

// HTTPConfiguration returns a configuration builder for the SDK's HTTP configuration.
//
//	config := ld.Config{
//	    HTTP: ldcomponents.HTTPConfiguration().
//	        ConnectTimeout(3 * time.Second).
//	        ProxyURL(proxyUrl),
//	}
func HTTPConfiguration() *HTTPConfigurationBuilder {
	return &HTTPConfigurationBuilder{
		connectTimeout: DefaultConnectTimeout,
	}
}

// CACert specifies a CA certificate to be added to the trusted root CA list for HTTPS requests.
//
// If the certificate is not valid, the LDClient constructor will return an error when you try to create
// the client.
func (b *HTTPConfigurationBuilder) CACert(certData []byte) *HTTPConfigurationBuilder {
	b.httpOptions = append(b.httpOptions, ldhttp.CACertOption(certData))
	return b
}

// CACertFile specifies a CA certificate to be added to the trusted root CA list for HTTPS requests,
// reading the certificate data from a file in PEM format.
//
// If the certificate is not valid or the file does not exist, the LDClient constructor will return an
// error when you try to create the client.
func (b *HTTPConfigurationBuilder) CACertFile(filePath string) *HTTPConfigurationBuilder {
	b.httpOptions = append(b.httpOptions, ldhttp.CACertFileOption(filePath))
	return b
}

// ConnectTimeout sets the connection timeout.
//
// This is the maximum amount of time to wait for each individual connection attempt to a remote service
// before determining that that attempt has failed. It is not the same as the timeout for initializing the
// SDK client (the waitFor parameter to MakeClient); that is the total length of time that MakeClient will
// wait regardless of how many connection attempts are required.
//
//	config := ld.Config{
//	    HTTP: ldcomponents.ConnectTimeout(),
//	}
func (b *HTTPConfigurationBuilder) ConnectTimeout(connectTimeout time.Duration) *HTTPConfigurationBuilder {
	if connectTimeout <= 0 {
		b.connectTimeout = DefaultConnectTimeout
	} else {
		b.connectTimeout = connectTimeout
	}
	return b
}

// HTTPClientFactory specifies a function for creating each HTTP client instance that is used by the SDK.
//
// If you use this option, it overrides any other settings that you may have specified with
// ConnectTimeout or ProxyURL; you are responsible for setting up any desired custom configuration
// on the HTTP client. The SDK may modify the client properties after the client is created (for
// instance, to add caching), but will not replace the underlying Transport, and will not modify any
// timeout properties you set.
func (b *HTTPConfigurationBuilder) HTTPClientFactory(factory func() *http.Client) *HTTPConfigurationBuilder {
	b.httpClientFactory = factory
	return b
}

// ProxyURL specifies a proxy URL to be used for all requests. This overrides any setting of the
// HTTP_PROXY, HTTPS_PROXY, or NO_PROXY environment variables.
//
// If the string is not a valid URL, the LDClient constructor will return an error when you try to create
// the client.
func (b *HTTPConfigurationBuilder) ProxyURL(proxyURL string) *HTTPConfigurationBuilder {
	b.proxyURL = proxyURL
	return b
}

// Wrapper allows wrapper libraries to set an identifying name for the wrapper being used.
//
// This will be sent in request headers during requests to the LaunchDarkly servers to allow recording
// metrics on the usage of these wrapper libraries.
func (b *HTTPConfigurationBuilder) Wrapper(wrapperName, wrapperVersion string) *HTTPConfigurationBuilder {
	b.wrapperName = wrapperName
	b.wrapperVersion = wrapperVersion
	return b
}

// Build is called internally by the SDK.
func (b *HTTPConfigurationBuilder) Build(
	clientContext subsystems.ClientContext,
) (subsystems.HTTPConfiguration, error) {
	headers := make(http.Header)
	headers.Set("Authorization", clientContext.GetSDKKey())
	headers.Set("User-Agent", "GoClient/"+internal.SDKVersion)
	if b.wrapperName != "" {
		w := b.wrapperName
		if b.wrapperVersion != "" {
			w = w + "/" + b.wrapperVersion
		}
		headers.Add("X-LaunchDarkly-Wrapper", w)
	}
	if tagsHeaderValue := buildTagsHeaderValue(clientContext); tagsHeaderValue != "" {
		headers.Add("X-LaunchDarkly-Tags", tagsHeaderValue)
	}

	transportOpts := b.httpOptions

	if b.proxyURL != "" {
		u, err := url.Parse(b.proxyURL)
		if err != nil {
			return subsystems.HTTPConfiguration{}, fmt.Errorf("invalid proxy URL %q: %w", b.proxyURL, err)
		}
		transportOpts = append(transportOpts, ldhttp.ProxyOption(*u))
	}

	clientFactory := b.httpClientFactory
	if clientFactory == nil {
		connectTimeout := b.connectTimeout
		if connectTimeout <= 0 {
			connectTimeout = DefaultConnectTimeout
		}
		transportOpts = append(transportOpts, ldhttp.ConnectTimeoutOption(connectTimeout))
		transport, _, err := ldhttp.NewHTTPTransport(transportOpts...)
		if err != nil {
			return subsystems.HTTPConfiguration{}, err
		}
		clientFactory = func() *http.Client {
			return &http.Client{
				Timeout:   connectTimeout,
				Transport: transport,
			}
		}
	}

	return subsystems.HTTPConfiguration{
		DefaultHeaders:   headers,
		CreateHTTPClient: clientFactory,
	}, nil
}

// DescribeConfiguration is used internally by the SDK to inspect the configuration.
func (b *HTTPConfigurationBuilder) DescribeConfiguration(context subsystems.ClientContext) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("connectTimeoutMillis", durationToMillisValue(b.connectTimeout)).
		Set("socketTimeoutMillis", durationToMillisValue(b.connectTimeout)).
		Build()
}

func buildTagsHeaderValue(clientContext subsystems.ClientContext) string {
	var parts []string
	if value := clientContext.GetApplicationInfo().ApplicationID; validTagValueRegex.MatchString(value) {
		parts = append(parts, "application-id/"+value)
	}
	if value := clientContext.GetApplicationInfo().ApplicationVersion; validTagValueRegex.MatchString(value) {
		parts = append(parts, "application-version/"+value)
	}
	return strings.Join(parts, " ")
}
