package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	unsetEnv(t, "DOTENV_A", "DOTENV_B", "DOTENV_C", "DOTENV_QUOTED")
	t.Setenv("DOTENV_C", "from-env")

	path := writeFile(t, t.TempDir(), ".env", `
# comment
DOTENV_A=1
 DOTENV_B = two words
not a pair
DOTENV_C=from-file
DOTENV_QUOTED='x=y'
`)

	applied, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	assert.Equal(t, "1", os.Getenv("DOTENV_A"))
	assert.Equal(t, "two words", os.Getenv("DOTENV_B"))
	assert.Equal(t, "from-env", os.Getenv("DOTENV_C"))
	assert.Equal(t, "x=y", os.Getenv("DOTENV_QUOTED"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	applied, err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Zero(t, applied)
}
