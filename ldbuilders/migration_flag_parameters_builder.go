package ldbuilders

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
)

// MigrationFlagParametersBuilder provides a builder for constructing migration flag parameters.
type MigrationFlagParametersBuilder struct {
	params ldmodel.MigrationFlagParameters
}

// NewMigrationFlagParametersBuilder creates a builder for constructing migration flag parameters.
func NewMigrationFlagParametersBuilder() *MigrationFlagParametersBuilder {
	return &MigrationFlagParametersBuilder{}
}

// Build returns the configured migration flag parameters.
func (b *MigrationFlagParametersBuilder) Build() ldmodel.MigrationFlagParameters {
	return b.params
}

// CheckRatio sets the rate at which consistency checks should be sampled during migration operations.
func (b *MigrationFlagParametersBuilder) CheckRatio(ratio ldvalue.OptionalInt) *MigrationFlagParametersBuilder {
	b.params.CheckRatio = ratio
	return b
}
