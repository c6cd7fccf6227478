// Package ldmodel contains the SDK's data model types for feature flags and segments, and the
// logic for serializing and deserializing them.
//
// Application code normally does not need to use these types; they are used internally by the SDK
// and by the evaluation package. They are exported to support tools that need to inspect or
// construct flag data, such as test fixtures and the Relay Proxy.
//
// The JSON representations defined here are the standard LaunchDarkly data formats. Always use the
// DataModelSerialization interface, or the MarshalJSON/UnmarshalJSON methods of the model types,
// rather than relying on the default behavior of encoding/json.
package ldmodel
