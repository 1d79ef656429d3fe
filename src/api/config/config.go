package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	MySQLDSN     string
	RedisURL     string
	JWTSecret    string
	Port         string
	AllowOrigins []string
	TLSCert      string
	TLSKey       string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	origins := strings.Split(getenv("ALLOW_ORIGINS", "http://localhost:3000"), ",")
	return Config{
		MySQLDSN:     getenv("MYSQL_DSN", "collabcomms:collabcomms@tcp(127.0.0.1:3306)/collabcomms?parseTime=true"),
		RedisURL:     getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:    getenv("JWT_SECRET", ""),
		Port:         getenv("PORT", "8080"),
		AllowOrigins: origins,
		TLSCert:      os.Getenv("TLS_CERT"),
		TLSKey:       os.Getenv("TLS_KEY"),
	}
}
