package config

import (
	"errors"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

const (
	DefaultContentDir        = "projects"
	DefaultOutput            = "public"
	DefaultCacheDir          = ".portfolio/sources"
	DefaultSiteTitle         = "Projects"
	DefaultDescriptionLength = 150
	DefaultCardTags          = 3
	DefaultTechnologies      = 5
	DefaultCardPlaceholder   = "https://placehold.co/600x400"
	DefaultDetailPlaceholder = "https://placehold.co/800x600"
	DefaultEmptyMessage      = "Projects coming soon..."
	DefaultParallel          = 4
	DefaultAddr              = ":8080"
	DefaultCacheTTL          = 5 * time.Minute
	DefaultShutdownTimeout   = 10 * time.Second
	FilterAll                = "all"

	minDescriptionLength    = 4
	validationTagRequiredIf = "required_if"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_.][a-z0-9]+)*$`)

func DefaultPatterns() []string {
	return []string{"**/*.md", "**/*.markdown", "**/*.mdx"}
}

func DefaultExcludes() []string {
	return []string{
		"**/_*",
		"**/node_modules/**",
		"**/.git/**",
	}
}

type Config struct {
	Site       Site                `koanf:"site"`
	ContentDir string              `koanf:"content_dir"`
	Output     string              `koanf:"output"`
	CacheDir   string              `koanf:"cache_dir"`
	Patterns   []string            `koanf:"patterns"`
	Excludes   []string            `koanf:"excludes"`
	Order      []string            `koanf:"order"      validate:"dive,slug"`
	Categories map[string][]string `koanf:"categories" validate:"dive,keys,slug,endkeys,dive,category"`
	Filters    []Filter            `koanf:"filters"    validate:"dive"`
	Display    Display             `koanf:"display"`
	Render     Render              `koanf:"render"`
	Build      Build               `koanf:"build"`
	Server     Server              `koanf:"server"`
	Sources    map[string]Source   `koanf:"sources"    validate:"dive,keys,slug,endkeys"`
	ConfigDir  string              `koanf:"-"`
}

type Site struct {
	Title   string `koanf:"title"`
	Tagline string `koanf:"tagline"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

// Filter is one button of the listing filter bar.
type Filter struct {
	Label string `koanf:"label" validate:"required"`
	Value string `koanf:"value" validate:"required,category"`
}

type Display struct {
	DescriptionLength int    `koanf:"description_length" validate:"gte=4"`
	CardTags          int    `koanf:"card_tags"          validate:"gte=0"`
	Technologies      int    `koanf:"technologies"       validate:"gte=0"`
	CardPlaceholder   string `koanf:"card_placeholder"`
	DetailPlaceholder string `koanf:"detail_placeholder"`
	EmptyMessage      string `koanf:"empty_message"`
}

type Render struct {
	UnsafeHTML bool `koanf:"unsafe_html"`
	Drafts     bool `koanf:"drafts"`
}

type Build struct {
	Parallel int `koanf:"parallel" validate:"gte=0"`
}

type Server struct {
	Addr            string        `koanf:"addr"`
	CacheTTL        time.Duration `koanf:"cache_ttl"        validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	Watch           bool          `koanf:"watch"`
}

// Source is a remote project document fetched by `portfolio sync`.
type Source struct {
	Type     string `koanf:"type"     validate:"required,oneof=url"`
	URL      string `koanf:"url"      validate:"required_if=Type url,omitempty,url"`
	Filename string `koanf:"filename"`
	Slug     string `koanf:"slug"     validate:"omitempty,slug"`
	// TokenEnv names an environment variable holding a bearer token.
	TokenEnv string `koanf:"token_env"`
}

// ValidSlug reports whether s can be used as a project slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Category values become path segments of the built site, so they follow
// the slug rule.
func validCategory(s string) bool {
	return slugPattern.MatchString(s)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return ValidSlug(fl.Field().String())
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return validCategory(fl.Field().String())
	})

	return v
}

func (c *Config) ApplyDefaults() {
	if c.ContentDir == "" {
		c.ContentDir = DefaultContentDir
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if len(c.Patterns) == 0 {
		c.Patterns = DefaultPatterns()
	}
	c.Excludes = mergeExcludes(DefaultExcludes(), c.Excludes)

	if c.Site.Title == "" {
		c.Site.Title = DefaultSiteTitle
	}

	c.Display.applyDefaults()

	if c.Build.Parallel == 0 {
		c.Build.Parallel = DefaultParallel
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.CacheTTL == 0 {
		c.Server.CacheTTL = DefaultCacheTTL
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	for slug, categories := range c.Categories {
		normalized := make([]string, 0, len(categories))
		for _, category := range categories {
			category = strings.ToLower(strings.TrimSpace(category))
			if category != "" && !slices.Contains(normalized, category) {
				normalized = append(normalized, category)
			}
		}
		c.Categories[slug] = normalized
	}

	c.Filters = applyFilterDefaults(c.Filters, c.Categories)

	for sourceName, sourceCfg := range c.Sources {
		if sourceCfg.Type == "" && sourceCfg.URL != "" {
			sourceCfg.Type = "url"
		}
		c.Sources[sourceName] = sourceCfg
	}
}

func (d *Display) applyDefaults() {
	if d.DescriptionLength == 0 {
		d.DescriptionLength = DefaultDescriptionLength
	}
	if d.CardTags == 0 {
		d.CardTags = DefaultCardTags
	}
	if d.Technologies == 0 {
		d.Technologies = DefaultTechnologies
	}
	if d.CardPlaceholder == "" {
		d.CardPlaceholder = DefaultCardPlaceholder
	}
	if d.DetailPlaceholder == "" {
		d.DetailPlaceholder = DefaultDetailPlaceholder
	}
	if d.EmptyMessage == "" {
		d.EmptyMessage = DefaultEmptyMessage
	}
}

// applyFilterDefaults guarantees an "all" filter in first position. Without
// configured filters, one filter per known category is derived.
func applyFilterDefaults(filters []Filter, categories map[string][]string) []Filter {
	result := make([]Filter, 0, len(filters)+1)
	result = append(result, Filter{Label: "All", Value: FilterAll})

	if len(filters) == 0 {
		var values []string
		for _, list := range categories {
			for _, category := range list {
				if !slices.Contains(values, category) {
					values = append(values, category)
				}
			}
		}
		slices.Sort(values)

		for _, value := range values {
			result = append(result, Filter{Label: labelFor(value), Value: value})
		}

		return result
	}

	for _, f := range filters {
		f.Value = strings.ToLower(strings.TrimSpace(f.Value))
		if f.Value == FilterAll {
			if f.Label != "" {
				result[0].Label = f.Label
			}
			continue
		}
		if f.Label == "" {
			f.Label = labelFor(f.Value)
		}
		result = append(result, f)
	}

	return result
}

func labelFor(value string) string {
	words := strings.FieldsFunc(value, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func mergeExcludes(global []string, local []string) []string {
	seen := make(map[string]struct{}, len(global)+len(local))
	var merged []string

	for _, pattern := range append(slices.Clone(global), local...) {
		if _, ok := seen[pattern]; ok {
			continue
		}
		seen[pattern] = struct{}{}
		merged = append(merged, pattern)
	}

	return merged
}

func (c *Config) Validate() error {
	v := newValidator()

	if err := v.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return oops.
				Code("CONFIG_INVALID").
				Wrapf(err, "validating config")
		}

		for _, fe := range validationErrors {
			return mapValidationError(c, fe)
		}
	}

	for i, slug := range c.Order {
		if slices.Index(c.Order, slug) != i {
			return oops.
				Code("CONFIG_INVALID").
				With("field", "order").
				With("slug", slug).
				Hint("List each project slug once in order").
				Errorf("duplicate slug %q in order", slug)
		}
	}

	return nil
}

func mapValidationError(c *Config, fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())
	namespace := fe.Namespace()

	switch {
	case fe.Tag() == "oneof" && field == "type":
		return oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("field", namespace).
			With("type", fe.Value()).
			Hint("Supported types: url").
			Errorf("unknown source type %q in %s", fe.Value(), namespace)

	case (fe.Tag() == validationTagRequiredIf || fe.Tag() == "required") && field == "url":
		return oops.
			Code("CONFIG_INVALID").
			With("field", namespace).
			Hint("Set url for url sources").
			Errorf("missing url in %s", namespace)

	case fe.Tag() == "url":
		return oops.
			Code("CONFIG_INVALID").
			With("field", namespace).
			With("value", fe.Value()).
			Hint("Use an absolute http(s) URL").
			Errorf("invalid url %q in %s", fe.Value(), namespace)

	case fe.Tag() == "slug":
		return oops.
			Code("CONFIG_INVALID").
			With("field", namespace).
			With("value", fe.Value()).
			Hint("Slugs are lowercase letters, digits and single '-', '_' or '.' separators").
			Errorf("invalid slug %q in %s", fe.Value(), namespace)

	case fe.Tag() == "category":
		return oops.
			Code("CONFIG_INVALID").
			With("field", namespace).
			With("value", fe.Value()).
			Hint("Categories follow the slug rule: lowercase letters, digits and single '-', '_' or '.' separators").
			Errorf("invalid category %q in %s", fe.Value(), namespace)

	case fe.Tag() == "gte" && field == "descriptionlength":
		return oops.
			Code("CONFIG_INVALID").
			With("field", "display.description_length").
			With("value", c.Display.DescriptionLength).
			Hint("Use a description length of at least 4").
			Errorf("description_length must be at least %d", minDescriptionLength)

	case fe.Tag() == "required":
		return oops.
			Code("CONFIG_INVALID").
			With("field", namespace).
			Errorf("missing %s", namespace)

	default:
		return oops.
			Code("CONFIG_INVALID").
			With("field", namespace).
			With("tag", fe.Tag()).
			Errorf("validation failed for field %q", namespace)
	}
}

// SourceDir is the cache directory holding a synced source's document.
func (c *Config) SourceDir(sourceName string) string {
	return filepath.Join(c.resolve(c.CacheDir), sourceName)
}

// ContentPath returns the absolute content directory.
func (c *Config) ContentPath() string {
	return c.resolve(c.ContentDir)
}

// OutputPath returns the absolute static build directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Output)
}

// CategoriesFor returns the configured categories of a project slug.
func (c *Config) CategoriesFor(slug string) []string {
	return c.Categories[slug]
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.ConfigDir == "" {
		return p
	}
	return filepath.Clean(filepath.Join(c.ConfigDir, p))
}
