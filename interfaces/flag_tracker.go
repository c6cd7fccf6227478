package interfaces

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// FlagTracker is an interface for tracking changes in feature flag configurations.
//
// An implementation of this interface is returned by LDClient.GetFlagTracker(). Application code
// should not implement this interface.
type FlagTracker interface {
	// AddFlagChangeListener subscribes for notifications of feature flag changes in general.
	//
	// The returned channel will receive a new FlagChangeEvent value whenever the SDK receives any
	// change to any feature flag's configuration, or to a segment that is referenced by a feature
	// flag. The events do not contain any information about what the changes were: to find out the
	// current value of a flag for a given evaluation context, you would need to call one of the
	// LDClient methods such as BoolVariation.
	//
	// Change events only work if the SDK is actually connecting to LaunchDarkly (or using the file
	// data source). If the SDK is only reading flags from a database then it cannot know when there
	// is a change, because flags are read on an as-needed basis.
	AddFlagChangeListener() <-chan FlagChangeEvent

	// RemoveFlagChangeListener unsubscribes from notifications of feature flag changes. The
	// specified channel must be one that was previously returned by AddFlagChangeListener();
	// otherwise, the method has no effect.
	RemoveFlagChangeListener(listener <-chan FlagChangeEvent)

	// AddFlagValueChangeListener subscribes for notifications of changes in a specific feature
	// flag's value for a specific evaluation context.
	//
	// When you call this method, it first immediately evaluates the feature flag. It then starts
	// listening for feature flag configuration changes, and whenever the specified feature flag
	// changes, it re-evaluates the flag for the same context. It then pushes a new
	// FlagValueChangeEvent to the channel whenever the flag's value has changed.
	AddFlagValueChangeListener(
		flagKey string,
		context ldcontext.Context,
		defaultValue ldvalue.Value,
	) <-chan FlagValueChangeEvent

	// RemoveFlagValueChangeListener unsubscribes from notifications of feature flag value changes.
	// The specified channel must be one that was previously returned by
	// AddFlagValueChangeListener(); otherwise, the method has no effect.
	RemoveFlagValueChangeListener(listener <-chan FlagValueChangeEvent)
}

// FlagChangeEvent is a notification parameter type that indicates that some flag's configuration
// has changed, or that a segment referenced by some flag has changed.
type FlagChangeEvent struct {
	// Key is the key of the feature flag whose configuration has changed.
	//
	// The specified flag may have been modified directly, or this may be an indirect change due to
	// a change in some other flag that is a prerequisite of this flag, or a segment that is
	// referenced in the flag's rules.
	Key string
}

// FlagValueChangeEvent is a notification parameter type that indicates that a flag's value has
// changed for a specific evaluation context.
type FlagValueChangeEvent struct {
	// Key is the key of the feature flag whose configuration has changed.
	Key string

	// OldValue is the last known value of the flag for the specified evaluation context prior to
	// the update.
	OldValue ldvalue.Value

	// NewValue is the new value of the flag for the specified evaluation context.
	NewValue ldvalue.Value
}
