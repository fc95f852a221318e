package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ocr-function/api/internal/access"
)

const (
	DefaultCallableOrigin = "https://image-to-data-9a90b.web.app"
	DefaultMaxBodyBytes   = 20 << 20
)

type Config struct {
	Port string

	Engine string // vision | gemini | yandex

	VisionAPIKey    string
	CredentialsFile string

	GeminiAPIKey string
	GeminiModel  string

	YCOAuthToken string
	YCFolderID   string

	FirebaseProjectID string
	AdminEmails       []string
	CallableOrigin    string

	MaxBodyBytes int64

	DatabaseURL  string
	LogRetention time.Duration // 0 — журнал не чистится

	TelegramBotToken     string
	WebhookURL           string
	TelegramAllowedChats []int64
}

// fileConfig — необязательный YAML (CONFIG_FILE). Переменные окружения важнее.
type fileConfig struct {
	Engine               string   `yaml:"engine"`
	AdminEmails          []string `yaml:"admin_emails"`
	CallableOrigin       string   `yaml:"callable_origin"`
	MaxBodyBytes         int64    `yaml:"max_body_bytes"`
	TelegramAllowedChats []int64  `yaml:"telegram_allowed_chats"`
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load читает окружение и CONFIG_FILE; при ошибке конфигурации процесс завершается.
func Load() *Config {
	cfg, err := LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// MustTelegramToken — для бинарника бота, где токен обязателен.
func (c *Config) MustTelegramToken() string {
	if c.TelegramBotToken == "" {
		c.TelegramBotToken = mustEnv("TELEGRAM_BOT_TOKEN")
	}
	return c.TelegramBotToken
}

func LoadFile(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		Engine: CanonicalEngine(getEnv("OCR_ENGINE", orDefault(fc.Engine, "vision"))),

		VisionAPIKey:    getEnv("VISION_API_KEY", ""),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		YCOAuthToken: getEnv("YC_OAUTH_TOKEN", ""),
		YCFolderID:   getEnv("YC_FOLDER_ID", ""),

		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		CallableOrigin:    getEnv("CALLABLE_ORIGIN", orDefault(fc.CallableOrigin, DefaultCallableOrigin)),

		MaxBodyBytes: DefaultMaxBodyBytes,

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}

	switch {
	case os.Getenv("ADMIN_EMAILS") != "":
		cfg.AdminEmails = splitList(os.Getenv("ADMIN_EMAILS"))
	case len(fc.AdminEmails) > 0:
		cfg.AdminEmails = fc.AdminEmails
	default:
		cfg.AdminEmails = append([]string(nil), access.DefaultAdminEmails...)
	}

	if fc.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.MaxBodyBytes
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad MAX_BODY_BYTES %q", v)
		}
		cfg.MaxBodyBytes = n
	}

	cfg.TelegramAllowedChats = fc.TelegramAllowedChats
	if v := os.Getenv("TELEGRAM_ALLOWED_CHATS"); v != "" {
		ids, err := parseChatIDs(v)
		if err != nil {
			return nil, err
		}
		cfg.TelegramAllowedChats = ids
	}

	if v := os.Getenv("EXTRACTION_RETENTION"); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("bad EXTRACTION_RETENTION %q", v)
		}
		cfg.LogRetention = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет, что для выбранного движка заданы ключи.
func (c *Config) Validate() error {
	switch CanonicalEngine(c.Engine) {
	case "vision":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("OCR_ENGINE=gemini requires GEMINI_API_KEY")
		}
	case "yandex":
		if c.YCOAuthToken == "" || c.YCFolderID == "" {
			return errors.New("OCR_ENGINE=yandex requires YC_OAUTH_TOKEN and YC_FOLDER_ID")
		}
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q", c.Engine)
	}
	return nil
}

// CanonicalEngine приводит имя движка к виду, который понимает ocr.Engines: "google" — это vision.
func CanonicalEngine(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "google" || name == "" {
		return "vision"
	}
	return name
}

// AllowList — неизменяемый список админов для callable.
func (c *Config) AllowList() access.AllowList {
	return access.NewAllowList(c.AdminEmails...)
}

func (c *Config) CallableEnabled() bool { return c.FirebaseProjectID != "" }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseChatIDs(s string) ([]int64, error) {
	var out []int64
	for _, p := range splitList(s) {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad TELEGRAM_ALLOWED_CHATS entry %q", p)
		}
		out = append(out, id)
	}
	return out, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
