package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	MediaLocal = "local"
	MediaS3    = "s3"

	// ImageURLsAbsolute stores image references as absolute URLs at write
	// time; ImageURLsRelative stores bare file names.
	ImageURLsAbsolute = "absolute"
	ImageURLsRelative = "relative"
)

type Config struct {
	Env        string
	Addr       string
	Store      string
	DBPath     string
	MongoURI   string
	MongoDB    string
	JWTSecret  string
	TokenTTL   time.Duration
	Media      Media
	RateLimits RateLimits
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
	LogLevel    string
	LogFormat   string
}

type Media struct {
	Backend   string
	AssetsDir string
	S3Bucket  string
	S3Region  string
	ImageURLs string
	// PublicURL overrides the request-derived base for asset URLs.
	PublicURL string
}

type RateLimits struct {
	WritesPerMinute int
}

// Load reads optional .env files, then the environment. Variables already
// set in the process environment win over .env files.
func Load() Config {
	loadDotEnvs("")

	addr := envString("QUESTLY_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":3001"
		}
	}
	cfg := Config{
		Env:       envString("QUESTLY_ENV", "dev"),
		Addr:      addr,
		Store:     strings.ToLower(envString("QUESTLY_STORE", StoreSQLite)),
		DBPath:    envString("QUESTLY_DB", "questly.db"),
		MongoURI:  envString("QUESTLY_MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   envString("QUESTLY_MONGO_DB", "questly"),
		JWTSecret: envString("QUESTLY_JWT_SECRET", "dev-jwt-secret"),
		TokenTTL:  envDuration("QUESTLY_TOKEN_TTL", 24*time.Hour),
		Media: Media{
			Backend:   strings.ToLower(envString("QUESTLY_MEDIA", MediaLocal)),
			AssetsDir: envString("QUESTLY_ASSETS_DIR", "public/assets"),
			S3Bucket:  envString("QUESTLY_S3_BUCKET", ""),
			S3Region:  envString("QUESTLY_S3_REGION", "us-east-1"),
			ImageURLs: strings.ToLower(envString("QUESTLY_IMAGE_URLS", ImageURLsAbsolute)),
			PublicURL: strings.TrimRight(envString("QUESTLY_PUBLIC_URL", ""), "/"),
		},
		RateLimits: RateLimits{
			WritesPerMinute: envInt("QUESTLY_RL_WRITES_PER_MIN", 120),
		},
		CORSOrigins: envList("QUESTLY_CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		LogLevel:    envString("QUESTLY_LOG_LEVEL", "info"),
		LogFormat:   envString("QUESTLY_LOG_FORMAT", "text"),
	}
	if cfg.Media.ImageURLs != ImageURLsRelative {
		cfg.Media.ImageURLs = ImageURLsAbsolute
	}

	return cfg
}

// loadDotEnvs follows the dotenv convention: .env.<env>.local has the highest
// priority and .env the lowest. godotenv never overrides a variable that is
// already set, so earlier files win.
func loadDotEnvs(root string) {
	env := os.Getenv("QUESTLY_ENV")
	if env == "" {
		env = "dev"
	}
	for _, name := range []string{".env." + env + ".local", ".env.local", ".env." + env, ".env"} {
		_ = godotenv.Load(root + name)
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envList splits a comma separated value. An explicit "none" disables the list.
func envList(key, def string) []string {
	raw := envString(key, def)
	if strings.EqualFold(raw, "none") {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
