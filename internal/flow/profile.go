package flow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// DataSourceProfile is the latency and error model of one data source
type DataSourceProfile struct {
	PreDelay    time.Duration
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64
}

// Profile is the latency and failure table driving a run
type Profile struct {
	ClientDelay         time.Duration
	ValidateDelay       time.Duration
	AuthDelay           time.Duration
	ResolverBaseDelay   time.Duration
	CacheCheckDelay     time.Duration
	ResponseDelay       time.Duration
	DefaultPreDelay     time.Duration
	AuthFailureRate     float64
	ResolverFailureRate float64
	Resolvers           map[models.ResolverKind]time.Duration
	DataSources         map[models.DataSourceKind]DataSourceProfile
}

// DefaultProfile returns the stock latency and failure table
func DefaultProfile() Profile {
	return Profile{
		ClientDelay:         300 * time.Millisecond,
		ValidateDelay:       200 * time.Millisecond,
		AuthDelay:           100 * time.Millisecond,
		ResolverBaseDelay:   150 * time.Millisecond,
		CacheCheckDelay:     50 * time.Millisecond,
		ResponseDelay:       100 * time.Millisecond,
		DefaultPreDelay:     100 * time.Millisecond,
		AuthFailureRate:     0.1,
		ResolverFailureRate: 0.05,
		Resolvers: map[models.ResolverKind]time.Duration{
			models.ResolverVTL:        50 * time.Millisecond,
			models.ResolverJavaScript: 100 * time.Millisecond,
			models.ResolverPipeline:   200 * time.Millisecond,
			models.ResolverDirect:     300 * time.Millisecond,
		},
		DataSources: map[models.DataSourceKind]DataSourceProfile{
			models.SourceDynamoDB: {
				PreDelay: 75 * time.Millisecond, MinLatency: 20 * time.Millisecond, MaxLatency: 100 * time.Millisecond, FailureRate: 0.03,
			},
			models.SourceLambda: {
				PreDelay: 200 * time.Millisecond, MinLatency: 100 * time.Millisecond, MaxLatency: 500 * time.Millisecond, FailureRate: 0.03,
			},
			models.SourceElasticsearch: {
				PreDelay: 100 * time.Millisecond, MinLatency: 50 * time.Millisecond, MaxLatency: 200 * time.Millisecond, FailureRate: 0.03,
			},
			models.SourceHTTP: {
				PreDelay: 400 * time.Millisecond, MinLatency: 200 * time.Millisecond, MaxLatency: 1000 * time.Millisecond, FailureRate: 0.1,
			},
		},
	}
}

// Validate checks rates and latency ranges
func (p Profile) Validate() error {
	if p.AuthFailureRate < 0 || p.AuthFailureRate > 1 {
		return fmt.Errorf("auth failure rate %v out of [0,1]", p.AuthFailureRate)
	}
	if p.ResolverFailureRate < 0 || p.ResolverFailureRate > 1 {
		return fmt.Errorf("resolver failure rate %v out of [0,1]", p.ResolverFailureRate)
	}
	for kind, ds := range p.DataSources {
		if ds.FailureRate < 0 || ds.FailureRate > 1 {
			return fmt.Errorf("data source %s: failure rate %v out of [0,1]", kind, ds.FailureRate)
		}
		if ds.MinLatency < 0 || ds.MaxLatency < ds.MinLatency {
			return fmt.Errorf("data source %s: invalid latency range %v-%v", kind, ds.MinLatency, ds.MaxLatency)
		}
	}
	return nil
}

func (p Profile) resolverLatency(kind models.ResolverKind) time.Duration {
	return p.Resolvers[kind]
}

func (p Profile) preDelay(kind models.DataSourceKind) time.Duration {
	if ds, ok := p.DataSources[kind]; ok && ds.PreDelay > 0 {
		return ds.PreDelay
	}
	return p.DefaultPreDelay
}

// profileFile is the on-disk form of a Profile. Durations are milliseconds.
type profileFile struct {
	ClientDelayMS       int64                         `yaml:"client_delay_ms"`
	ValidateDelayMS     int64                         `yaml:"validate_delay_ms"`
	AuthDelayMS         int64                         `yaml:"auth_delay_ms"`
	ResolverBaseDelayMS int64                         `yaml:"resolver_base_delay_ms"`
	CacheCheckDelayMS   int64                         `yaml:"cache_check_delay_ms"`
	ResponseDelayMS     int64                         `yaml:"response_delay_ms"`
	DefaultPreDelayMS   int64                         `yaml:"default_pre_delay_ms"`
	AuthFailureRate     float64                       `yaml:"auth_failure_rate"`
	ResolverFailureRate float64                       `yaml:"resolver_failure_rate"`
	Resolvers           map[string]int64              `yaml:"resolvers_ms"`
	DataSources         map[string]dataSourceFileSpec `yaml:"data_sources"`
}

type dataSourceFileSpec struct {
	PreDelayMS  int64   `yaml:"pre_delay_ms"`
	MinMS       int64   `yaml:"min_ms"`
	MaxMS       int64   `yaml:"max_ms"`
	FailureRate float64 `yaml:"failure_rate"`
}

// ParseProfile overlays a YAML document on the default profile. Keys left out
// of the document keep their defaults; a data source entry replaces the whole
// default entry for that source.
func ParseProfile(data []byte) (Profile, error) {
	file := toFile(DefaultProfile())
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}

	p, err := fromFile(file)
	if err != nil {
		return Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// LoadProfile reads a YAML profile from path
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

func ms(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

func toFile(p Profile) profileFile {
	f := profileFile{
		ClientDelayMS:       p.ClientDelay.Milliseconds(),
		ValidateDelayMS:     p.ValidateDelay.Milliseconds(),
		AuthDelayMS:         p.AuthDelay.Milliseconds(),
		ResolverBaseDelayMS: p.ResolverBaseDelay.Milliseconds(),
		CacheCheckDelayMS:   p.CacheCheckDelay.Milliseconds(),
		ResponseDelayMS:     p.ResponseDelay.Milliseconds(),
		DefaultPreDelayMS:   p.DefaultPreDelay.Milliseconds(),
		AuthFailureRate:     p.AuthFailureRate,
		ResolverFailureRate: p.ResolverFailureRate,
		Resolvers:           make(map[string]int64, len(p.Resolvers)),
		DataSources:         make(map[string]dataSourceFileSpec, len(p.DataSources)),
	}
	for k, v := range p.Resolvers {
		f.Resolvers[string(k)] = v.Milliseconds()
	}
	for k, v := range p.DataSources {
		f.DataSources[string(k)] = dataSourceFileSpec{
			PreDelayMS:  v.PreDelay.Milliseconds(),
			MinMS:       v.MinLatency.Milliseconds(),
			MaxMS:       v.MaxLatency.Milliseconds(),
			FailureRate: v.FailureRate,
		}
	}
	return f
}

func fromFile(f profileFile) (Profile, error) {
	p := Profile{
		ClientDelay:         ms(f.ClientDelayMS),
		ValidateDelay:       ms(f.ValidateDelayMS),
		AuthDelay:           ms(f.AuthDelayMS),
		ResolverBaseDelay:   ms(f.ResolverBaseDelayMS),
		CacheCheckDelay:     ms(f.CacheCheckDelayMS),
		ResponseDelay:       ms(f.ResponseDelayMS),
		DefaultPreDelay:     ms(f.DefaultPreDelayMS),
		AuthFailureRate:     f.AuthFailureRate,
		ResolverFailureRate: f.ResolverFailureRate,
		Resolvers:           make(map[models.ResolverKind]time.Duration, len(f.Resolvers)),
		DataSources:         make(map[models.DataSourceKind]DataSourceProfile, len(f.DataSources)),
	}
	for k, v := range f.Resolvers {
		kind, err := models.ParseResolverKind(k)
		if err != nil {
			return Profile{}, fmt.Errorf("profile resolvers: %w", err)
		}
		p.Resolvers[kind] = ms(v)
	}
	for k, v := range f.DataSources {
		kind, err := models.ParseDataSourceKind(k)
		if err != nil {
			return Profile{}, fmt.Errorf("profile data sources: %w", err)
		}
		p.DataSources[kind] = DataSourceProfile{
			PreDelay:    ms(v.PreDelayMS),
			MinLatency:  ms(v.MinMS),
			MaxLatency:  ms(v.MaxMS),
			FailureRate: v.FailureRate,
		}
	}
	return p, nil
}
