package testhelpers

import (
	"github.com/launchdarkly/go-server-sdk-core/interfaces"
	"github.com/launchdarkly/go-server-sdk-core/ldcomponents"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

// SimpleClientContext is a reference implementation of subsystems.ClientContext for test code.
//
// The SDK uses the ClientContext interface to pass its configuration to subcomponents. Its standard
// implementation also contains other environment information that is only relevant to built-in SDK
// code. SimpleClientContext may be useful for external code to test a custom component.
type SimpleClientContext struct {
	sdkKey  string
	http    *subsystems.HTTPConfiguration
	logging *subsystems.LoggingConfiguration
}

// NewSimpleClientContext creates a SimpleClientContext instance, with a standard HTTP configuration
// and a default logging configuration.
func NewSimpleClientContext(sdkKey string) SimpleClientContext {
	return SimpleClientContext{sdkKey: sdkKey}
}

// WithHTTP returns a new SimpleClientContext based on the original one, but substituting the specified
// HTTP configuration.
func (s SimpleClientContext) WithHTTP(
	httpConfig subsystems.ComponentConfigurer[subsystems.HTTPConfiguration],
) SimpleClientContext {
	ret := s
	config, _ := httpConfig.Build(subsystems.BasicClientContext{SDKKey: s.sdkKey})
	ret.http = &config
	return ret
}

// WithLogging returns a new SimpleClientContext based on the original one, but substituting the specified
// logging configuration.
func (s SimpleClientContext) WithLogging(
	loggingConfig subsystems.ComponentConfigurer[subsystems.LoggingConfiguration],
) SimpleClientContext {
	ret := s
	config, _ := loggingConfig.Build(subsystems.BasicClientContext{SDKKey: s.sdkKey})
	ret.logging = &config
	return ret
}

func (s SimpleClientContext) GetSDKKey() string { return s.sdkKey } //nolint:revive

func (s SimpleClientContext) GetApplicationInfo() interfaces.ApplicationInfo { //nolint:revive
	return interfaces.ApplicationInfo{}
}

func (s SimpleClientContext) GetHTTP() subsystems.HTTPConfiguration { //nolint:revive
	if s.http != nil {
		return *s.http
	}
	config, _ := ldcomponents.HTTPConfiguration().Build(subsystems.BasicClientContext{SDKKey: s.sdkKey})
	return config
}

func (s SimpleClientContext) GetLogging() subsystems.LoggingConfiguration { //nolint:revive
	if s.logging != nil {
		return *s.logging
	}
	config, _ := ldcomponents.Logging().Build(subsystems.BasicClientContext{SDKKey: s.sdkKey})
	return config
}

func (s SimpleClientContext) GetOffline() bool { return false } //nolint:revive

func (s SimpleClientContext) GetServiceEndpoints() interfaces.ServiceEndpoints { //nolint:revive
	return interfaces.ServiceEndpoints{}
}

func (s SimpleClientContext) GetDataSourceUpdateSink() subsystems.DataSourceUpdateSink { //nolint:revive
	return nil
}

func (s SimpleClientContext) GetDataStoreUpdateSink() subsystems.DataStoreUpdateSink { //nolint:revive
	return nil
}
