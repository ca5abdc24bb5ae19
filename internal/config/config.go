package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseDSN        string
	SessionSecret      string
	GinMode            string
	UploadDir          string
	UploadURLPath      string
	SiteBaseURL        string
	SiteName           string
	LogMode            string
	LogLevel           string
	LogDir             string
	SuperRootUserName  string
	SuperRootPassword  string
	CORSAllowedOrigins []string
}

var defaults = map[string]string{
	"port":                 "8080",
	"database_driver":      "sqlite",
	"database_path":        "trainclimb.db",
	"session_secret":       "trainclimb-dev-secret",
	"gin_mode":             "release",
	"upload_dir":           "uploads",
	"upload_url_path":      "/uploads",
	"site_base_url":        "http://localhost:8080",
	"site_name":            "Train Climb",
	"log_mode":             "prod",
	"log_level":            "info",
	"log_dir":              "logs",
	"cors_allowed_origins": "*",
}

// Load 先加载 .env，再读取环境变量与可选的 ./config.yaml，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	return LoadFile("")
}

// LoadFile 与 Load 相同，但显式指定配置文件；文件不存在时返回错误。
func LoadFile(path string) (AppConfig, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{"listen_addr", "database_dsn", "super_root_user_name", "super_root_password"} {
		v.SetDefault(key, "")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	get := func(key string) string {
		value := strings.TrimSpace(v.GetString(key))
		if value == "" {
			return defaults[key]
		}
		return value
	}

	port := get("port")
	listenAddr := get("listen_addr")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	cfg := AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabaseDriver:     strings.ToLower(get("database_driver")),
		DatabasePath:       get("database_path"),
		DatabaseDSN:        get("database_dsn"),
		SessionSecret:      get("session_secret"),
		GinMode:            get("gin_mode"),
		UploadDir:          get("upload_dir"),
		UploadURLPath:      "/" + strings.Trim(get("upload_url_path"), "/"),
		SiteBaseURL:        strings.TrimRight(get("site_base_url"), "/"),
		SiteName:           get("site_name"),
		LogMode:            strings.ToLower(get("log_mode")),
		LogLevel:           strings.ToLower(get("log_level")),
		LogDir:             get("log_dir"),
		SuperRootUserName:  get("super_root_user_name"),
		SuperRootPassword:  get("super_root_password"),
		CORSAllowedOrigins: splitList(get("cors_allowed_origins")),
	}
	return cfg, nil
}

// Validate 返回警告信息，以及无法启动时的错误。
func (c AppConfig) Validate() (warnings []string, err error) {
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			return nil, errors.New("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.SessionSecret == defaults["session_secret"] {
		warnings = append(warnings, "SESSION_SECRET is using the development default")
	}
	if c.SuperRootUserName == "" || c.SuperRootPassword == "" {
		warnings = append(warnings, "SUPER_ROOT_USER_NAME/SUPER_ROOT_PASSWORD not set, no editor will be created")
	}
	return warnings, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
