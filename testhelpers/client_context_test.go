package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-server-sdk-core/ldcomponents"
	"github.com/launchdarkly/go-server-sdk-core/subsystems"
)

func TestSimpleClientContext(t *testing.T) {
	c := NewSimpleClientContext("key")
	assert.Equal(t, "key", c.GetSDKKey())
	assert.False(t, c.GetOffline())

	basic := subsystems.BasicClientContext{SDKKey: "key"}

	// Note, can't test equality of HTTPConfiguration as a whole because it contains a function
	hc, _ := ldcomponents.HTTPConfiguration().Build(basic)
	assert.Equal(t, hc.DefaultHeaders, c.GetHTTP().DefaultHeaders)

	lc, _ := ldcomponents.Logging().Build(basic)
	assert.Equal(t, lc, c.GetLogging())

	h := ldcomponents.HTTPConfiguration().Wrapper("w", "")
	hc1, _ := h.Build(basic)
	assert.Equal(t, hc1.DefaultHeaders, c.WithHTTP(h).GetHTTP().DefaultHeaders)

	l := ldcomponents.Logging().Loggers(ldlog.NewDefaultLoggers()).MinLevel(ldlog.Debug)
	lc1, _ := l.Build(basic)
	assert.Equal(t, lc1, c.WithLogging(l).GetLogging())
}
