// Package ldbuilders contains helpers for constructing the data model objects defined in ldmodel.
//
// These are mainly intended for use in test code, since flag and segment data normally comes from
// LaunchDarkly rather than being constructed programmatically.
package ldbuilders
