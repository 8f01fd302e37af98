package showbox

import "time"

const DefaultBaseURL = "https://www.showbox.media"

type Config struct {
	UserAgent   string        `koanf:"user_agent"`
	Timeout     time.Duration `koanf:"timeout"`
	Parallelism int           `koanf:"parallelism" validate:"gte=0"`
	RandomDelay time.Duration `koanf:"random_delay"`
}

func DefaultConfig() Config {
	return Config{
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		Timeout:     30 * time.Second,
		Parallelism: 2,
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
	if c.Parallelism <= 0 {
		c.Parallelism = d.Parallelism
	}
	return c
}
