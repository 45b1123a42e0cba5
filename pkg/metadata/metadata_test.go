package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitoredModelID(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		prefix  string
		want    string
	}{
		{
			name:    "base prefix uses bare model id",
			modelID: "anthropic.claude-3-5-sonnet-20241022-v2:0",
			prefix:  "base",
			want:    "anthropic.claude-3-5-sonnet-20241022-v2:0",
		},
		{
			name:    "empty prefix uses bare model id",
			modelID: "amazon.nova-lite-v1:0",
			prefix:  "",
			want:    "amazon.nova-lite-v1:0",
		},
		{
			name:    "regional prefix is prepended",
			modelID: "anthropic.claude-3-5-haiku-20241022-v1:0",
			prefix:  "us",
			want:    "us.anthropic.claude-3-5-haiku-20241022-v1:0",
		},
		{
			name:    "global prefix is prepended",
			modelID: "anthropic.claude-3-5-haiku-20241022-v1:0",
			prefix:  "global",
			want:    "global.anthropic.claude-3-5-haiku-20241022-v1:0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonitoredModelID(tt.modelID, tt.prefix))
		})
	}
}

func TestQuotaKeywordFor(t *testing.T) {
	assert.Equal(t, QuotaKeywordOnDemand, QuotaKeywordFor(""))
	assert.Equal(t, QuotaKeywordOnDemand, QuotaKeywordFor("base"))
	assert.Equal(t, QuotaKeywordCrossRegion, QuotaKeywordFor("eu"))
	assert.Equal(t, QuotaKeywordCrossRegion, QuotaKeywordFor("apac"))
	assert.Equal(t, QuotaKeywordGlobal, QuotaKeywordFor("global"))
	assert.Equal(t, "", QuotaKeywordFor("mars"))
}

func TestKnownPrefix(t *testing.T) {
	for _, p := range []string{"", "base", "us", "eu", "jp", "au", "apac", "ca", "global"} {
		assert.True(t, KnownPrefix(p), p)
	}
	assert.False(t, KnownPrefix("ap"))
	assert.False(t, KnownPrefix("US"))
}

func TestIsRegionalPrefix(t *testing.T) {
	assert.True(t, IsRegionalPrefix("us"))
	assert.True(t, IsRegionalPrefix("ca"))
	assert.False(t, IsRegionalPrefix("base"))
	assert.False(t, IsRegionalPrefix("global"))
	assert.False(t, IsRegionalPrefix("unknown"))
}

func TestValidRegionName(t *testing.T) {
	assert.True(t, ValidRegionName("us-east-1"))
	assert.True(t, ValidRegionName("ap-southeast-4"))
	assert.False(t, ValidRegionName(""))
	assert.False(t, ValidRegionName("us_east_1"))
	assert.False(t, ValidRegionName("../../etc/passwd"))
	assert.False(t, ValidRegionName("US-EAST-1"))
}

const fmListFixture = `models:
  - model_id: anthropic.claude-3-5-sonnet-20241022-v2:0
    provider: Anthropic
    inference_types:
      - ON_DEMAND
      - INFERENCE_PROFILE
    inference_profiles:
      - eu
      - us
    endpoints:
      base:
        quotas:
          concurrent: null
          rpm: L-254CACF4
          tpd: L-21C23E52
          tpm: L-79E773B3
      us:
        quotas:
          concurrent: null
          rpm: L-8F36DE26
          tpd: null
          tpm: L-338FD224
  - model_id: amazon.nova-lite-v1:0
    provider: Amazon
    inference_types:
      - INFERENCE_PROFILE
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadModelList(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "fm-list-us-east-1.yml", fmListFixture)

	list, err := LoadModelList(dir, "us-east-1")
	require.NoError(t, err)
	require.Len(t, list.Models, 2)

	m := list.Lookup("anthropic.claude-3-5-sonnet-20241022-v2:0")
	require.NotNil(t, m)
	assert.Equal(t, "Anthropic", m.Provider)
	assert.Equal(t, []string{"eu", "us"}, m.InferenceProfiles)

	base := m.EndpointQuotas("base")
	require.NotNil(t, base)
	assert.Nil(t, base.Concurrent)
	require.NotNil(t, base.TPM)
	assert.Equal(t, "L-79E773B3", *base.TPM)

	// Empty prefix resolves to the base endpoint.
	assert.Equal(t, base, m.EndpointQuotas(""))

	assert.Nil(t, m.EndpointQuotas("global"))
	assert.Nil(t, list.Lookup("amazon.nova-lite-v1:0").EndpointQuotas("base"))
	assert.Nil(t, list.Lookup("nope"))

	assert.Equal(t, []string{"Amazon", "Anthropic"}, list.Providers())
}

func TestLoadModelListErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadModelList(dir, "bad/region")
	assert.ErrorContains(t, err, "invalid region name")

	_, err = LoadModelList(dir, "us-east-1")
	assert.ErrorContains(t, err, "reading model list")

	writeFixture(t, dir, "fm-list-us-east-1.yml", "models: []\n")
	_, err = LoadModelList(dir, "us-east-1")
	assert.ErrorContains(t, err, "is empty")
}

func TestLoadRegions(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "regions.yml", "regions:\n  - eu-west-1\n  - us-east-1\n")

	regions, err := LoadRegions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1", "us-east-1"}, regions)

	_, err = LoadRegions(t.TempDir())
	assert.ErrorContains(t, err, "reading regions list")
}
