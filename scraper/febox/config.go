package febox

const (
	DefaultShowboxBase = "http://156.242.65.27"
	DefaultFebboxBase  = "https://www.febbox.com"
)

// Base URL keys, overridable at runtime like any provider domain.
const (
	ShowboxAPIKey = "showbox-api"
	FebboxKey     = "febbox"
)

type Config struct {
	// ShowboxBase serves the share_link endpoint; it is reached through the scraping proxy.
	// Both bases are defaults under ShowboxAPIKey and FebboxKey when a BaseURLs is given.
	ShowboxBase string `koanf:"showbox_base" validate:"omitempty,url"`
	FebboxBase  string `koanf:"febbox_base" validate:"omitempty,url"`
	// Cookie is the febbox session cookie. video_quality_list answers nothing useful without it.
	Cookie         string `koanf:"cookie"`
	MaxConcurrency int    `koanf:"max_concurrency" validate:"gte=0"`
}

func (c Config) withDefaults() Config {
	if c.ShowboxBase == "" {
		c.ShowboxBase = DefaultShowboxBase
	}
	if c.FebboxBase == "" {
		c.FebboxBase = DefaultFebboxBase
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	return c
}
