package config

import (
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	MongoURI    string
	PostgresURI string
	RedisURI    string
	Port        string
	Environment string // ENV: production, development, etc.
	Host        string // raw HOST env, e.g. https://api.nikahsufiyana.com
	AllowedHost string // hostname only; set in production for the strict host check

	// CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	AllowedOrigins []string
	// TrustProxy keys rate limits on X-Forwarded-For instead of RemoteAddr.
	TrustProxy bool

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	NSQDAddr string // empty disables the NSQ publisher
	NSQTopic string

	StoreTimeout    time.Duration
	DeclineCooldown time.Duration // negative means a decline is permanent
	// AllowUnknownProfileTier is true when PROFILE_VISIBILITY_FALLBACK=allow.
	AllowUnknownProfileTier bool
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			if u = strings.TrimSpace(u); u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// A backend on api.example.com serves https://example.com and
	// https://www.example.com even when ALLOWED_ORIGINS is unset.
	if h := hostname(host); h != "" && h != "localhost" {
		if parts := strings.Split(h, "."); len(parts) >= 3 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:    getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/nikah")),
		PostgresURI: getEnv("POSTGRES_URI", "postgres://localhost:5432/nikah?sslmode=disable"),
		RedisURI:    getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		Host:        host,
		AllowedHost: allowedHost,

		AllowedOrigins: allowedOrigins,
		TrustProxy:     strings.EqualFold(getEnv("TRUST_PROXY", "false"), "true"),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "nikah/photos"),

		NSQDAddr: getEnv("NSQD_ADDR", ""),
		NSQTopic: getEnv("NSQ_TOPIC", "nikah.notifications"),

		StoreTimeout:            getDuration("STORE_TIMEOUT", 3*time.Second),
		DeclineCooldown:         getDuration("DECLINE_COOLDOWN", 30*24*time.Hour),
		AllowUnknownProfileTier: strings.EqualFold(getEnv("PROFILE_VISIBILITY_FALLBACK", "deny"), "allow"),
	}
}

// hostname strips scheme, path and port from a HOST value.
func hostname(host string) string {
	h := host
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go duration syntax plus a day suffix ("30d").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	d, err := parseDuration(raw)
	if err != nil {
		log.Printf("⚠️  invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func parseDuration(raw string) (time.Duration, error) {
	if strings.HasSuffix(raw, "d") {
		days, err := time.ParseDuration(strings.TrimSuffix(raw, "d") + "h")
		if err != nil {
			return 0, err
		}
		return days * 24, nil
	}
	return time.ParseDuration(raw)
}
