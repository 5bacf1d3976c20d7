package appconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvFlagToEnvironment(t *testing.T) {
	assert.Equal(t, Test, EnvFlagToEnvironment("test"))
	assert.Equal(t, Production, EnvFlagToEnvironment("production"))
	assert.Equal(t, Development, EnvFlagToEnvironment("development"))
	assert.Equal(t, Development, EnvFlagToEnvironment(""))
	assert.Equal(t, Development, EnvFlagToEnvironment("staging"))
}

func TestEnvironmentString(t *testing.T) {
	assert.Equal(t, "test", Test.String())
	assert.Equal(t, "production", Production.String())
	assert.Equal(t, "development", Development.String())
}
