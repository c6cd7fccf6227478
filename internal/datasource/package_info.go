// Package datasource is an internal package containing implementation types for the SDK's data source
// implementations (streaming, polling, etc.) and related functionality. These types are not visible
// from outside of the SDK.
//
// This does not include the file data source, which is in the ldfiledata package.
package datasource
