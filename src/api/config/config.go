package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN        string
	RedisURL        string
	JWTSecret       string
	Port            string
	TLSCertFile     string
	TLSKeyFile      string
	OutboxInterval  int // seconds between relay sweeps
	DispatchTimeout int // seconds before a stream publish is abandoned
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

// seconds reads a positive integer from the environment, falling back to the
// default when the value is missing or unparsable. A zero here would feed
// time.NewTicker and panic.
func seconds(key string, def int) int {
	n, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		log.Printf("invalid %s, using %ds", key, def)
		return def
	}
	return n
}

func Load() Config {
	outbox := seconds("OUTBOX_INTERVAL", 5)
	dispatch := seconds("DISPATCH_TIMEOUT", 3)
	return Config{
		MySQLDSN:        getenv("MYSQL_DSN", "catalog:catalog@tcp(127.0.0.1:3306)/catalog?parseTime=true"),
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:       getenv("JWT_SECRET", "dev-only-not-for-production"),
		Port:            getenv("PORT", "8080"),
		TLSCertFile:     os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:      os.Getenv("TLS_KEY_FILE"),
		OutboxInterval:  outbox,
		DispatchTimeout: dispatch,
	}
}
