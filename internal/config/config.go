package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Durations are expressed in minutes or
// seconds in the environment and converted once here; the rest of the
// code only ever sees time.Duration.
type Config struct {
	Env                string        // application environment (e.g. "dev", "prod")
	Port               string        // HTTP port to listen on
	DBUser             string        // database username
	DBPass             string        // database password (optional)
	DBHost             string        // database host address
	DBPort             string        // database port number
	DBName             string        // database name
	JWTSecret          string        // secret used to sign JWTs
	AdminTokenTTL      time.Duration // admin access token lifetime
	HoldTTL            time.Duration // calendar hold lifetime before the sweeper reclaims it
	ReservationTTL     time.Duration // temporary reservation lifetime
	SweepInterval      time.Duration // how often the sweeper runs
	PricePerRacerCents uint32        // list price of one race seat
	BcryptCost         int           // bcrypt cost for admin password hashing
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.  TTLs
// default to the business values: five-minute holds, sixty-minute
// temporary reservations, one sweep per minute.
func Load() Config {
	return Config{
		Env:                must("APP_ENV"),
		Port:               must("APP_PORT"),
		DBUser:             must("DB_USER"),
		DBPass:             os.Getenv("DB_PASS"),
		DBHost:             must("DB_HOST"),
		DBPort:             must("DB_PORT"),
		DBName:             must("DB_NAME"),
		JWTSecret:          must("JWT_SECRET"),
		AdminTokenTTL:      time.Duration(envInt("ADMIN_TOKEN_TTL_MIN", 60)) * time.Minute,
		HoldTTL:            time.Duration(envInt("HOLD_TTL_MIN", 5)) * time.Minute,
		ReservationTTL:     time.Duration(envInt("RESERVATION_TTL_MIN", 60)) * time.Minute,
		SweepInterval:      time.Duration(envInt("SWEEP_INTERVAL_SEC", 60)) * time.Second,
		PricePerRacerCents: uint32(envInt("PRICE_PER_RACER_CENTS", 25000)),
		BcryptCost:         envInt("BCRYPT_COST", 12),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envInt reads an integer environment variable, falling back to def
// when unset.  A malformed value is a fatal configuration error.
func envInt(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
