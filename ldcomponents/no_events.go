package ldcomponents

import (
	ldevents "github.com/launchdarkly/go-server-sdk-core/ldevents"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

type nullEventProcessorFactory struct{}

// NoEvents returns a configuration object that disables analytics events.
//
// Storing this in Config.Events causes the SDK to discard all analytics events and not send them to
// LaunchDarkly, regardless of any other configuration.
//
//	config := ld.Config{
//	    Events: ldcomponents.NoEvents(),
//	}
func NoEvents() subsystems.ComponentConfigurer[ldevents.EventProcessor] {
	return nullEventProcessorFactory{}
}

func (f nullEventProcessorFactory) Build(
	context subsystems.ClientContext,
) (ldevents.EventProcessor, error) {
	return ldevents.NewNullEventProcessor(), nil
}

// IsNullEventProcessorFactory lets the SDK determine that events are disabled without having to
// build the component first.
func (f nullEventProcessorFactory) IsNullEventProcessorFactory() bool { return true }
