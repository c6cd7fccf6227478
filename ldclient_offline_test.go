package ldclient

import (
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/stretchr/testify/assert"
)

func makeOfflineClient() *LDClient {
	config := Config{Offline: true}
	client, _ := MakeCustomClient("api_key", config, 0)
	return client
}

func TestOfflineClientIsInitialized(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	assert.True(t, client.IsOffline())
	assert.True(t, client.Initialized())
}

func TestBoolVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	defaultVal := true
	value, err := client.BoolVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.BoolVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.Bool(defaultVal), detail.Value)
	assert.Equal(t, ldvalue.OptionalInt{}, detail.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonError(ldreason.EvalErrorFlagNotFound), detail.Reason)
}

func TestIntVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	defaultVal := 100
	value, err := client.IntVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.IntVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.Int(defaultVal), detail.Value)
	assert.Equal(t, ldvalue.OptionalInt{}, detail.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonError(ldreason.EvalErrorFlagNotFound), detail.Reason)
}

func TestFloat64VariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	defaultVal := 100.0
	value, err := client.Float64Variation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.Float64VariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.Float64(defaultVal), detail.Value)
	assert.Equal(t, ldvalue.OptionalInt{}, detail.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonError(ldreason.EvalErrorFlagNotFound), detail.Reason)
}

func TestStringVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	defaultVal := "expected"
	value, err := client.StringVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.StringVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.String(defaultVal), detail.Value)
	assert.Equal(t, ldvalue.OptionalInt{}, detail.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonError(ldreason.EvalErrorFlagNotFound), detail.Reason)
}

func TestJSONVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	defaultVal := ldvalue.ObjectBuild().Set("field2", ldvalue.String("value2")).Build()
	value, err := client.JSONVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.JSONVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, defaultVal, detail.Value)
	assert.Equal(t, ldvalue.OptionalInt{}, detail.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonError(ldreason.EvalErrorFlagNotFound), detail.Reason)
}

func TestAllFlagsStateReturnsEmptyStateOffline(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	result := client.AllFlagsState(evalTestUser)
	assert.False(t, result.IsValid())
}

func TestSecureModeHashOffline(t *testing.T) {
	client := makeOfflineClient()
	defer client.Close()

	hash := client.SecureModeHash(evalTestUser)
	assert.NotEmpty(t, hash)
}
