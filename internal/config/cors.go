package config

import (
	"os"
	"strings"
)

// EnvCORSOrigins overrides the allowed CORS origins (comma-separated).
const EnvCORSOrigins = "CORS_ORIGINS"

// CORSConfig contains cross-origin request configuration.
type CORSConfig struct {
	Origins     []string `toml:"origins"`
	Methods     []string `toml:"methods"`
	Headers     []string `toml:"headers"`
	Credentials bool     `toml:"credentials"`
}

// Finalize applies defaults and loads environment overrides.
func (c *CORSConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	if len(overlay.Origins) > 0 {
		c.Origins = overlay.Origins
	}
	if len(overlay.Methods) > 0 {
		c.Methods = overlay.Methods
	}
	if len(overlay.Headers) > 0 {
		c.Headers = overlay.Headers
	}
	if overlay.Credentials {
		c.Credentials = true
	}
}

func (c *CORSConfig) loadDefaults() {
	if len(c.Methods) == 0 {
		c.Methods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.Headers) == 0 {
		c.Headers = []string{"Content-Type"}
	}
}

func (c *CORSConfig) loadEnv() {
	if v := os.Getenv(EnvCORSOrigins); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		c.Origins = origins
	}
}
