package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Short(t *testing.T) {
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	// Save and restore version
	originalVersion := version
	SetVersion("test-version-1.0.0")
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "recall version test-version-1.0.0")
}

func TestVersionCmd_DoesNotOpenEngine(t *testing.T) {
	originalVersion := version
	version = "dev"
	defer func() { version = originalVersion }()
	engine = nil

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "recall version dev")
	assert.Nil(t, engine)
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	originalVersion := version
	defer func() { version = originalVersion }()

	version = "1.2.3"
	SetVersion("")
	assert.Equal(t, "1.2.3", version)
}
