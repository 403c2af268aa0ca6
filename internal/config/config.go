package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Env      string
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret string
		// TokenTTLMinutes controls the exp claim on issued tokens.
		// Zero (the default) issues tokens without an expiry.
		TokenTTLMinutes int
	}
	Anthropic struct {
		APIKey  string
		BaseURL string
		Model   string
	}
	Fetch struct {
		TimeoutSeconds  int
		MaxContentChars int
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// IsProduction reports whether the server runs in production mode, which
// redacts internal error details from responses.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("READCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("env", "development")
	v.SetDefault("database.path", "data/readcheck.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 0)
	v.SetDefault("anthropic.apikey", "")
	v.SetDefault("anthropic.baseurl", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("fetch.timeoutseconds", 30)
	v.SetDefault("fetch.maxcontentchars", 8000)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "articles")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
