package mocks

import "github.com/launchdarkly/go-server-sdk-core/subsystems"

// SingleComponentConfigurer is a test implementation of ComponentConfigurer that always returns the same
// pre-existing instance.
type SingleComponentConfigurer[T any] struct {
	Instance T
}

// Build builds the component.
func (c SingleComponentConfigurer[T]) Build(clientContext subsystems.ClientContext) (T, error) {
	return c.Instance, nil
}

// ComponentConfigurerThatReturnsError is a test implementation of ComponentConfigurer that always returns
// an error.
type ComponentConfigurerThatReturnsError[T any] struct {
	Err error
}

// Build builds the component.
func (c ComponentConfigurerThatReturnsError[T]) Build(clientContext subsystems.ClientContext) (T, error) {
	var empty T
	return empty, c.Err
}

// DataStoreFactoryThatExposesUpdater is a test decorator for a data store ComponentConfigurer that
// allows tests to see the DataStoreUpdateSink that the SDK provided during configuration.
type DataStoreFactoryThatExposesUpdater struct {
	UnderlyingFactory   subsystems.ComponentConfigurer[subsystems.DataStore]
	DataStoreUpdateSink subsystems.DataStoreUpdateSink
}

// Build builds the component.
func (f *DataStoreFactoryThatExposesUpdater) Build(
	context subsystems.ClientContext,
) (subsystems.DataStore, error) {
	f.DataStoreUpdateSink = context.GetDataStoreUpdateSink()
	return f.UnderlyingFactory.Build(context)
}

// ComponentConfigurerThatCapturesClientContext is a test decorator for a ComponentConfigurer that allows
// tests to see the ClientContext that was passed to it.
type ComponentConfigurerThatCapturesClientContext[T any] struct {
	Configurer            subsystems.ComponentConfigurer[T]
	ReceivedClientContext subsystems.ClientContext
}

// Build builds the component.
func (c *ComponentConfigurerThatCapturesClientContext[T]) Build(clientContext subsystems.ClientContext) (T, error) {
	c.ReceivedClientContext = clientContext
	return c.Configurer.Build(clientContext)
}
