package provider

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/resolve"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed descriptors.yaml
var defaultDescriptors []byte

// Descriptor declares how a site is scraped. Path templates understand {query}, {query_path},
// {page} and {page0} (zero based).
type Descriptor struct {
	Name string `yaml:"name" validate:"required"`
	// BaseURLKey is the lookup key for the live domain; defaults to Name.
	BaseURLKey string `yaml:"base_url_key"`
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	// Hosts are extra domains whose pages the provider may fetch as details.
	Hosts    []string    `yaml:"hosts"`
	UseProxy bool        `yaml:"use_proxy"`
	Search   *Listing    `yaml:"search"`
	Latest   *Listing    `yaml:"latest"`
	Detail   *DetailSpec `yaml:"detail"`
}

func (d Descriptor) Key() string {
	if d.BaseURLKey != "" {
		return d.BaseURLKey
	}
	return d.Name
}

const (
	URLRuleBase = "base"
	URLRulePage = "page"
)

type Listing struct {
	Path string `yaml:"path" validate:"required"`
	// FirstPagePath replaces Path for page 1 when the site has no explicit first page URL.
	FirstPagePath string         `yaml:"first_page_path"`
	Schema        extract.Schema `yaml:"schema"`
	// URLRule picks what relative item URLs resolve against: the base URL (default) or the listing page.
	URLRule string `yaml:"url_rule" validate:"omitempty,oneof=base page"`
}

type DetailSpec struct {
	Title       []string  `yaml:"title"`
	Image       []string  `yaml:"image"`
	Description []string  `yaml:"description"`
	Info        *InfoSpec `yaml:"info"`
	Links       LinkSpec  `yaml:"links"`
}

// InfoSpec reads "label: value" rows; the value is the row text minus the label text.
type InfoSpec struct {
	Row   string `yaml:"row" validate:"required"`
	Label string `yaml:"label" validate:"required"`
}

// LinkSpec sweeps download links. With Container each matching block is a card whose Label text
// tags every link inside it.
type LinkSpec struct {
	Container string   `yaml:"container"`
	Label     string   `yaml:"label"`
	Selectors []string `yaml:"selectors"`
	// Hosts keeps only links whose host matches one of these keywords or domains.
	Hosts []string `yaml:"hosts"`
}

type File struct {
	Providers []Descriptor    `yaml:"providers" validate:"required,min=1,dive"`
	Hops      resolve.RuleSet `yaml:"hops"`
}

func (f *File) Find(name string) (Descriptor, bool) {
	for _, d := range f.Providers {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// LoadFile reads descriptors from path, or the built-in set when path is empty.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return Parse(defaultDescriptors)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptors: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse descriptors: %w", err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid descriptors: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Providers))
	for _, d := range f.Providers {
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("invalid descriptors: duplicate provider %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.Search == nil && d.Latest == nil && d.Detail == nil {
			return nil, fmt.Errorf("invalid descriptors: provider %q declares nothing to scrape", d.Name)
		}
	}
	return &f, nil
}
