package config

import (
	"strings"

	"github.com/rs/zerolog"
)

// DevBaseURL is the backend address used by development builds.
const DevBaseURL = "http://localhost:8081"

// defaultPageOrigin stands in for the page origin when none is configured.
const defaultPageOrigin = "http://localhost:5174"

// Source names where a resolved base URL came from.
type Source string

const (
	SourceOverride    Source = "override"
	SourceDevelopment Source = "development"
	SourceOrigin      Source = "origin"
)

// Resolution is the outcome of ResolveBaseURL.
type Resolution struct {
	URL    string
	Source Source
}

type baseURLSource struct {
	name    Source
	resolve func(*Config) string
}

// baseURLSources is evaluated in order; the first non-empty value wins.
var baseURLSources = []baseURLSource{
	{SourceOverride, func(c *Config) string { return c.APIBaseURL }},
	{SourceDevelopment, func(c *Config) string {
		if c.Development() {
			return DevBaseURL
		}
		return ""
	}},
	{SourceOrigin, func(c *Config) string { return c.PageOrigin }},
}

// ResolveBaseURL derives the backend base URL. It never fails: the page
// origin source falls back to a compiled-in default when blank.
func ResolveBaseURL(cfg *Config) Resolution {
	if cfg != nil {
		for _, s := range baseURLSources {
			if v := normalizeBaseURL(s.resolve(cfg)); v != "" {
				return Resolution{URL: v, Source: s.name}
			}
		}
	}
	return Resolution{URL: defaultPageOrigin, Source: SourceOrigin}
}

func normalizeBaseURL(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), "/")
}

// LogResolution logs the resolved base URL in development or when an
// override is set. It is a no-op otherwise.
func LogResolution(log zerolog.Logger, cfg *Config, res Resolution) {
	if cfg == nil || (!cfg.Development() && normalizeBaseURL(cfg.APIBaseURL) == "") {
		return
	}
	log.Info().Str("base_url", res.URL).Str("source", string(res.Source)).Msg("api base url resolved")
}
