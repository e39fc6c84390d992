package mirror

import (
	"fmt"
	"regexp"
	"strings"
)

// FilterConfig lists the scope rules for asset URLs.
type FilterConfig struct {
	// AssetHostSubstrings is the allowlist; a URL must contain one of them.
	AssetHostSubstrings []string `mapstructure:"asset_host_substrings"`
	// ExcludedURLs are rejected on exact match (e.g. the landing page).
	ExcludedURLs []string `mapstructure:"excluded_urls"`
	// PageSections name first path segments that hold pages, not assets.
	PageSections []string `mapstructure:"page_sections"`
}

// DefaultFilterConfig returns the scope rules of the mirrored site family.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		AssetHostSubstrings: []string{"benvenuti", "bravissimi", "ekla"},
		ExcludedURLs:        []string{"https://benvenuti.e-monsite.com/"},
		PageSections:        []string{"pages", "blog"},
	}
}

// Filter decides whether a discovered URL should be archived as an asset.
type Filter struct {
	substrings []string
	excluded   map[string]struct{}
	sections   []*regexp.Regexp
}

// NewFilter compiles cfg into a Filter.
func NewFilter(cfg FilterConfig) (*Filter, error) {
	f := &Filter{
		substrings: append([]string(nil), cfg.AssetHostSubstrings...),
		excluded:   make(map[string]struct{}, len(cfg.ExcludedURLs)),
	}
	for _, u := range cfg.ExcludedURLs {
		f.excluded[u] = struct{}{}
	}
	for _, section := range cfg.PageSections {
		section = strings.Trim(section, "/")
		if section == "" {
			return nil, fmt.Errorf("page section must not be empty")
		}
		re, err := regexp.Compile(`^https?://[^/]+/` + regexp.QuoteMeta(section) + `/.+`)
		if err != nil {
			return nil, fmt.Errorf("compile page section %q: %w", section, err)
		}
		f.sections = append(f.sections, re)
	}
	return f, nil
}

// InScope reports whether rawURL is an asset of the mirrored site family.
func (f *Filter) InScope(rawURL string) bool {
	if strings.HasSuffix(rawURL, ".html") {
		return false
	}
	for _, re := range f.sections {
		if re.MatchString(rawURL) {
			return false
		}
	}
	if _, ok := f.excluded[rawURL]; ok {
		return false
	}
	for _, s := range f.substrings {
		if strings.Contains(rawURL, s) {
			return true
		}
	}
	return false
}
