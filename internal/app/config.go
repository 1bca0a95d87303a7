package app

import (
	"os"
	"path/filepath"

	"github.com/yungbote/socialreel-backend/internal/platform/envutil"
)

type Config struct {
	ListenAddr  string
	ServiceName string
	Environment string
	Version     string

	// Empty disables the bearer check on /api.
	APIBearerToken string

	// Scratch space for build job directories.
	WorkRoot string
}

func LoadConfig() Config {
	return Config{
		ListenAddr:     envutil.Str("LISTEN_ADDR", ":8080"),
		ServiceName:    envutil.Str("SERVICE_NAME", "socialreel-backend"),
		Environment:    envutil.Str("APP_ENV", "development"),
		Version:        envutil.Str("APP_VERSION", "dev"),
		APIBearerToken: envutil.Str("API_BEARER", ""),
		WorkRoot:       envutil.Str("WORK_ROOT", filepath.Join(os.TempDir(), "socialreel")),
	}
}
