package fetch

import "time"

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Config struct {
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
	// ProxyURL is a scraping-proxy prefix; the escaped target URL is appended to it.
	ProxyURL     string        `koanf:"proxy_url" validate:"omitempty,url"`
	MaxRetries   int           `koanf:"max_retries" validate:"gte=0,lte=5"`
	RetryDelay   time.Duration `koanf:"retry_delay"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
}

func DefaultConfig() Config {
	return Config{
		UserAgent:    DefaultUserAgent,
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   500 * time.Millisecond,
		MaxBodyBytes: 10 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	return c
}
