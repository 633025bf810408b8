// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the configuration shared by the citeflow CLI and
// its packages.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by resolvers that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citeflow/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is how often a 429 response is retried (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RequestsPerSecond limits the request rate across all sources.
	// Zero disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ResolutionConfig controls the resolution pipeline.
type ResolutionConfig struct {
	// SourceOrder ranks provenance sources, most trusted first.
	SourceOrder []string `json:"source_order" yaml:"source_order" mapstructure:"source_order"`

	// Mergeable lists the list fields unioned across sources.
	Mergeable []string `json:"mergeable" yaml:"mergeable" mapstructure:"mergeable"`

	// Workers bounds how many equal-weight resolvers run at once.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// ResolverTimeout is the deadline for each resolver invocation.
	ResolverTimeout time.Duration `json:"resolver_timeout" yaml:"resolver_timeout" mapstructure:"resolver_timeout"`

	// Disabled names resolvers to skip (e.g. "resolvers.Publisher").
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty" mapstructure:"disabled"`
}

// SourcesConfig holds per-source credentials.
type SourcesConfig struct {
	// ContactEmail joins the CrossRef, OpenAlex, and NCBI polite pools.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty" mapstructure:"contact_email"`

	// NCBIAPIKey raises the NCBI rate limit.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty" mapstructure:"ncbi_api_key"`
}

// StoreConfig locates the citation database.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config is the complete citeflow configuration.
type Config struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http" mapstructure:"http"`
	Resolution ResolutionConfig `json:"resolution" yaml:"resolution" mapstructure:"resolution"`
	Sources    SourcesConfig    `json:"sources" yaml:"sources" mapstructure:"sources"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "citeflow/0.1",
			MaxRetries:        3,
			RequestsPerSecond: 5,
		},
		Resolution: ResolutionConfig{
			SourceOrder:     []string{"manual", "document", "crossref", "pubmed", "pmc", "arxiv", "openalex", "publisher"},
			Mergeable:       []string{"keywords", "links"},
			Workers:         4,
			ResolverTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Path: "citeflow.db",
		},
	}
}
