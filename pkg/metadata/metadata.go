// Package metadata reads the region and foundation-model metadata files
// produced by the refresh tooling. The analyzer only ever reads these files.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Quota keywords used by the Service Quotas console to distinguish endpoint
// flavors of the same model family.
const (
	QuotaKeywordOnDemand    = "on-demand"
	QuotaKeywordCrossRegion = "cross-region"
	QuotaKeywordGlobal      = "global"
)

// PrefixBase is the pseudo-prefix for invoking a foundation model directly,
// without an inference profile.
const PrefixBase = "base"

// ProfilePrefix describes one inference-profile prefix and how it maps to
// Service Quotas terminology.
type ProfilePrefix struct {
	Prefix       string
	QuotaKeyword string
	Description  string
	Regional     bool
}

// ProfilePrefixes is the single source of truth for inference-profile prefix
// mappings. Derived lookups below are built from this table.
var ProfilePrefixes = []ProfilePrefix{
	{Prefix: PrefixBase, QuotaKeyword: QuotaKeywordOnDemand, Description: "on-demand", Regional: false},
	{Prefix: "us", QuotaKeyword: QuotaKeywordCrossRegion, Description: "cross-region inference profile", Regional: true},
	{Prefix: "eu", QuotaKeyword: QuotaKeywordCrossRegion, Description: "cross-region inference profile", Regional: true},
	{Prefix: "jp", QuotaKeyword: QuotaKeywordCrossRegion, Description: "cross-region inference profile", Regional: true},
	{Prefix: "au", QuotaKeyword: QuotaKeywordCrossRegion, Description: "cross-region inference profile", Regional: true},
	{Prefix: "apac", QuotaKeyword: QuotaKeywordCrossRegion, Description: "cross-region inference profile", Regional: true},
	{Prefix: "ca", QuotaKeyword: QuotaKeywordCrossRegion, Description: "cross-region inference profile", Regional: true},
	{Prefix: "global", QuotaKeyword: QuotaKeywordGlobal, Description: "global inference profile", Regional: false},
}

// QuotaKeywordFor returns the Service Quotas keyword for a profile prefix, or
// an empty string if the prefix is unknown. An empty prefix means base.
func QuotaKeywordFor(prefix string) string {
	if prefix == "" {
		prefix = PrefixBase
	}
	for _, p := range ProfilePrefixes {
		if p.Prefix == prefix {
			return p.QuotaKeyword
		}
	}
	return ""
}

// IsRegionalPrefix reports whether prefix identifies a cross-region
// inference profile.
func IsRegionalPrefix(prefix string) bool {
	for _, p := range ProfilePrefixes {
		if p.Prefix == prefix {
			return p.Regional
		}
	}
	return false
}

// KnownPrefix reports whether prefix appears in the prefix table. The empty
// prefix is accepted as an alias for base.
func KnownPrefix(prefix string) bool {
	return QuotaKeywordFor(prefix) != ""
}

// MonitoredModelID returns the value of the CloudWatch ModelId dimension for a
// model invoked through the given profile prefix. Base invocations use the
// bare model ID; profile invocations are recorded as "<prefix>.<model_id>".
func MonitoredModelID(modelID, prefix string) string {
	if prefix == "" || prefix == PrefixBase {
		return modelID
	}
	return prefix + "." + modelID
}

// QuotaCodes holds the Service Quotas codes (or raw values, for accounts that
// never ran the mapping tooling) for one model endpoint. Nil means unmapped.
type QuotaCodes struct {
	Concurrent *string `yaml:"concurrent"`
	RPM        *string `yaml:"rpm"`
	TPD        *string `yaml:"tpd"`
	TPM        *string `yaml:"tpm"`
}

// Endpoint is one invocable flavor of a model (base, us, eu, global, ...).
type Endpoint struct {
	Quotas QuotaCodes `yaml:"quotas"`
}

// Model is one foundation model entry from fm-list-<region>.yml.
type Model struct {
	ModelID           string              `yaml:"model_id"`
	Provider          string              `yaml:"provider"`
	InferenceTypes    []string            `yaml:"inference_types,omitempty"`
	InferenceProfiles []string            `yaml:"inference_profiles,omitempty"`
	Endpoints         map[string]Endpoint `yaml:"endpoints,omitempty"`
}

// ModelList is the parsed contents of one fm-list-<region>.yml file.
type ModelList struct {
	Models []Model `yaml:"models"`
}

// Lookup returns the model with the given ID, or nil.
func (l *ModelList) Lookup(modelID string) *Model {
	for i := range l.Models {
		if l.Models[i].ModelID == modelID {
			return &l.Models[i]
		}
	}
	return nil
}

// Providers returns the sorted set of distinct providers in the list.
func (l *ModelList) Providers() []string {
	seen := map[string]struct{}{}
	for _, m := range l.Models {
		seen[m.Provider] = struct{}{}
	}
	providers := make([]string, 0, len(seen))
	for p := range seen {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// EndpointQuotas returns the quota codes for the endpoint matching the given
// profile prefix, or nil if the metadata carries none.
func (m *Model) EndpointQuotas(prefix string) *QuotaCodes {
	if m.Endpoints == nil {
		return nil
	}
	if prefix == "" {
		prefix = PrefixBase
	}
	ep, ok := m.Endpoints[prefix]
	if !ok {
		return nil
	}
	return &ep.Quotas
}

type regionsFile struct {
	Regions []string `yaml:"regions"`
}

// ValidRegionName reports whether region looks like an AWS region name.
// Region names are alphanumeric with hyphens; everything else is rejected
// before it is interpolated into a file path.
func ValidRegionName(region string) bool {
	if region == "" {
		return false
	}
	for _, c := range region {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

// LoadRegions reads regions.yml from dir.
func LoadRegions(dir string) ([]string, error) {
	path := filepath.Join(dir, "regions.yml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading regions list %s: %w", path, err)
	}
	var f regionsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing regions list %s: %w", path, err)
	}
	if len(f.Regions) == 0 {
		return nil, fmt.Errorf("regions list %s is empty, run the refresh tooling first", path)
	}
	return f.Regions, nil
}

// LoadModelList reads fm-list-<region>.yml from dir.
func LoadModelList(dir, region string) (*ModelList, error) {
	if !ValidRegionName(region) {
		return nil, fmt.Errorf("invalid region name %q", region)
	}
	path := filepath.Join(dir, fmt.Sprintf("fm-list-%s.yml", region))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model list %s: %w", path, err)
	}
	var l ModelList
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parsing model list %s: %w", path, err)
	}
	if len(l.Models) == 0 {
		return nil, fmt.Errorf("model list %s is empty, run the refresh tooling first", path)
	}
	return &l, nil
}
