package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cost-dashboard/domain/expense"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	c, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, c.Server.Addr)
	assert.Equal(t, DefaultRegion, c.AWS.Region)
	assert.Equal(t, 5*time.Minute, c.Server.CacheTTL)
	assert.False(t, c.OpenAI.Configured())
	assert.False(t, c.Azure.Configured())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("TEST_OPENAI_KEY", "sk-org-123")
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  data_dir: /tmp/data
  cache_ttl: 30s
  rate_limit:
    rps: 2
    burst: 4
aws:
  access_key_id: AKIA
  secret_access_key: secret
openai:
  api_key: ${TEST_OPENAI_KEY}
attribution:
  openai:
    team_id: team-2
    project_id: proj-2
    environment: staging
import:
  days: 7
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8088", c.Server.Addr)
	assert.Equal(t, "/tmp/data", c.Server.DataDir)
	assert.Equal(t, DefaultUIDir, c.Server.UIDir)
	assert.Equal(t, 30*time.Second, c.Server.CacheTTL)
	assert.Equal(t, RateLimit{RPS: 2, Burst: 4}, c.Server.RateLimit)
	assert.True(t, c.AWS.Configured())
	assert.Equal(t, DefaultRegion, c.AWS.Region)
	assert.Equal(t, "sk-org-123", c.OpenAI.APIKey)
	assert.Equal(t, expense.EnvStaging, c.Attribution["openai"].Environment)
	assert.Equal(t, 7, c.Import.Days)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv("CONFIG_PATH", "/etc/cost.yml")
	assert.Equal(t, "/etc/cost.yml", Path())
}
