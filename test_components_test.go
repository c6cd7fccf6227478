package ldclient

import (
	"github.com/launchdarkly/go-sdk-common/v3/lduser"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest"
	"github.com/launchdarkly/go-server-sdk-core/internal/sharedtest/mocks"
	"github.com/launchdarkly/go-server-sdk-core/ldbuilders"
	"github.com/launchdarkly/go-server-sdk-core/ldcomponents"
	ldevents "github.com/launchdarkly/go-server-sdk-core/ldevents"
)

const testSdkKey = "test-sdk-key"

var testUser = lduser.NewUser("test-user-key")

var alwaysTrueFlag = ldbuilders.NewFlagBuilder("always-true-flag").
	SingleVariation(ldvalue.Bool(true)).Build()

// makeTestClient returns a client with an in-memory store, an already-initialized data
// source, and a CapturingEventProcessor, suitable for most client-level tests.
func makeTestClient() *LDClient {
	return makeTestClientWithConfig(nil)
}

func makeTestClientWithConfig(modConfig func(*Config)) *LDClient {
	config := Config{
		Offline:    false,
		DataStore:  ldcomponents.InMemoryDataStore(),
		DataSource: mocks.DataSourceThatIsAlwaysInitialized(),
		Events:     mocks.SingleComponentConfigurer[ldevents.EventProcessor]{Instance: &mocks.CapturingEventProcessor{}},
		Logging:    ldcomponents.Logging().Loggers(sharedtest.NewTestLoggers()),
	}
	if modConfig != nil {
		modConfig(&config)
	}
	client, _ := MakeCustomClient(testSdkKey, config, 0)
	return client
}
