package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	PostgresURI     string
	RedisURI        string
	Origin          string
	CanonicalOrigin string
	R2              R2
	SecretKey       string
	CookieName      string
}

func LoadConfig() *Config {
	cfg := &Config{
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", ""),
		Origin:          getEnv("ORIGIN", "http://localhost:3000"),
		CanonicalOrigin: getEnv("CANONICAL_ORIGIN", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "quillpub_session"),
	}
	if cfg.CanonicalOrigin == "" {
		cfg.CanonicalOrigin = cfg.Origin
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
