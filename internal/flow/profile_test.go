package flow

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

func TestDefaultProfileTable(t *testing.T) {
	p := DefaultProfile()
	require.NoError(t, p.Validate())

	assert.Equal(t, 50*time.Millisecond, p.resolverLatency(models.ResolverVTL))
	assert.Equal(t, 300*time.Millisecond, p.resolverLatency(models.ResolverDirect))
	assert.Equal(t, 400*time.Millisecond, p.preDelay(models.SourceHTTP))
	assert.Equal(t, 100*time.Millisecond, p.preDelay(models.DataSourceKind("unknown")))
	assert.Equal(t, 0.1, p.DataSources[models.SourceHTTP].FailureRate)
	assert.Equal(t, 0.03, p.DataSources[models.SourceLambda].FailureRate)
}

func TestParseProfileOverlaysDefaults(t *testing.T) {
	doc := []byte(`
auth_failure_rate: 0
client_delay_ms: 10
resolvers_ms:
  vtl: 5
data_sources:
  http:
    pre_delay_ms: 1
    min_ms: 2
    max_ms: 3
    failure_rate: 0.5
`)
	p, err := ParseProfile(doc)
	require.NoError(t, err)

	assert.Zero(t, p.AuthFailureRate)
	assert.Equal(t, 0.05, p.ResolverFailureRate)
	assert.Equal(t, 10*time.Millisecond, p.ClientDelay)
	assert.Equal(t, 200*time.Millisecond, p.ValidateDelay)
	assert.Equal(t, 5*time.Millisecond, p.Resolvers[models.ResolverVTL])
	assert.Equal(t, 300*time.Millisecond, p.Resolvers[models.ResolverDirect])
	assert.Equal(t, DataSourceProfile{
		PreDelay: time.Millisecond, MinLatency: 2 * time.Millisecond, MaxLatency: 3 * time.Millisecond, FailureRate: 0.5,
	}, p.DataSources[models.SourceHTTP])
	assert.Equal(t, 20*time.Millisecond, p.DataSources[models.SourceDynamoDB].MinLatency)
}

func TestParseProfileRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"rate out of range":  "auth_failure_rate: 1.5",
		"inverted range":     "data_sources:\n  lambda:\n    min_ms: 10\n    max_ms: 5",
		"unknown resolver":   "resolvers_ms:\n  cobol: 5",
		"unknown datasource": "data_sources:\n  redis:\n    max_ms: 5",
		"not yaml":           "auth_failure_rate: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolver_failure_rate: 0\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Zero(t, p.ResolverFailureRate)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
