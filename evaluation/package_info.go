// Package evaluation contains the feature flag evaluation engine.
//
// Normal use of the SDK does not require referencing this package directly. It is used internally
// by LDClient, but is published and versioned separately so it can also be used by other
// LaunchDarkly components such as the Relay Proxy.
package evaluation
