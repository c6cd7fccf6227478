// Package storetest contains the standard test suite for persistent data store implementations.
//
// If you are writing your own database integration, use this test suite to ensure that it is being
// fully tested in the same way that all of the built-in ones are tested.
package storetest
