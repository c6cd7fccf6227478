package ldstoreimpl

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-server-sdk-core/evaluation"
	"github.com/launchdarkly/go-server-sdk-core/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

// This file contains the public API for creating the adapter that bridges Evaluator to DataStore. The
// actual implementation is in internal/datastore, but we expose it because it is helpful when flags
// are evaluated outside of the SDK client, as the Relay Proxy does.

// NewDataStoreEvaluatorDataProvider provides an adapter for using a DataStore with the Evaluator type
// in the evaluation package.
//
// Normal use of the SDK does not require this type. It is provided for use by other LaunchDarkly
// components that use DataStore and Evaluator separately from the SDK.
func NewDataStoreEvaluatorDataProvider(store subsystems.DataStore, loggers ldlog.Loggers) evaluation.DataProvider {
	return datastore.NewDataStoreEvaluatorDataProviderImpl(store, loggers)
}
