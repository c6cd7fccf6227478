package internal

import (
	ldevents "github.com/launchdarkly/go-server-sdk-core/ldevents"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

// ClientContextImpl is the SDK's standard implementation of interfaces.ClientContext.
type ClientContextImpl struct {
	subsystems.BasicClientContext
	// Used internally to share a diagnosticsManager instance between components.
	DiagnosticsManager *ldevents.DiagnosticsManager
}
