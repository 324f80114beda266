package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port     string `env:"PORT,default=5001"`
	Env      string `env:"ENV,default=development"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	MongoURI      string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE,default=streamify"`
	// PostgresURL enables the chat sync ledger when set.
	PostgresURL string `env:"POSTGRES_URL"`

	JWTSecret    string        `env:"JWT_SECRET,required"`
	SessionTTL   time.Duration `env:"SESSION_TTL,default=168h"`
	CookieSecure bool          `env:"COOKIE_SECURE,default=true"`
	CORSOrigins  string        `env:"CORS_ORIGINS,default=http://localhost:5173"`

	StreamAPIKey    string `env:"STREAM_API_KEY,required"`
	StreamAPISecret string `env:"STREAM_API_SECRET,required"`

	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`

	GroupRequestPolicy string `env:"GROUP_REQUEST_POLICY,default=explicit"`
	ReconcileSchedule  string `env:"RECONCILE_SCHEDULE,default=@every 5m"`
	MetricsPort        string `env:"METRICS_PORT,default=9090"`

	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT,default=5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST,default=10"`
}

// Load reads an optional .env file and decodes the environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Origins splits CORS_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
