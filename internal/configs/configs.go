/*
Package configs loads the chat client's configuration.

Values come from an optional YAML file named by DUOCHAT_CONFIG and are then
overridden by environment variables, so a deployment can ship a file and still
adjust single settings per shell.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// UploadBackendAPI sends attachments to the chat API's upload endpoint.
	UploadBackendAPI = "api"

	// UploadBackendS3 puts attachments directly into an S3-compatible bucket.
	UploadBackendS3 = "s3"
)

// AppConfig contains all configuration parameters of the client.
type AppConfig struct {
	// General Settings
	Environment string `yaml:"environment"`

	// Collaborator Endpoints
	APIURL    string `yaml:"api_url"`
	SocketURL string `yaml:"socket_url"`

	// Session Settings
	SessionPath string `yaml:"session_path"`

	// Conversation Settings
	SubmitInterval time.Duration `yaml:"submit_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Push Channel Settings
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`

	// Upload Settings
	UploadBackend     string `yaml:"upload_backend"`
	S3BucketName      string `yaml:"s3_bucket_name"`
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3PublicBaseURL   string `yaml:"s3_public_base_url"`
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	return &AppConfig{
		Environment:       "development",
		APIURL:            "http://localhost:4000/api",
		SocketURL:         "ws://localhost:4000/ws",
		SessionPath:       defaultSessionPath(),
		SubmitInterval:    time.Second,
		RequestTimeout:    15 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		UploadBackend:     UploadBackendAPI,
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "duochat", "session.json")
}

// LoadConfig reads the optional YAML file, applies environment overrides and validates the result.
func LoadConfig() (*AppConfig, error) {
	cfg := Default()

	if path := os.Getenv("DUOCHAT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.APIURL, "API_URL")
	setString(&c.SocketURL, "SOCKET_URL")
	setString(&c.SessionPath, "SESSION_PATH")
	setString(&c.UploadBackend, "UPLOAD_BACKEND")
	setString(&c.S3BucketName, "S3_BUCKET_NAME")
	setString(&c.S3Endpoint, "S3_ENDPOINT")
	setString(&c.S3AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&c.S3SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	setString(&c.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")

	if err := setMillis(&c.SubmitInterval, "SUBMIT_INTERVAL_MS"); err != nil {
		return err
	}
	if err := setMillis(&c.RequestTimeout, "REQUEST_TIMEOUT_MS"); err != nil {
		return err
	}
	if err := setMillis(&c.ReconnectDelay, "RECONNECT_DELAY_MS"); err != nil {
		return err
	}

	if v := os.Getenv("RECONNECT_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECONNECT_ATTEMPTS environment variable: %w", err)
		}
		c.ReconnectAttempts = n
	}

	return nil
}

// Validate checks the configuration for values the client cannot work with.
func (c *AppConfig) Validate() error {
	api, err := url.Parse(c.APIURL)
	if err != nil || (api.Scheme != "http" && api.Scheme != "https") || api.Host == "" {
		return fmt.Errorf("API_URL %q must be an absolute http(s) URL", c.APIURL)
	}

	sock, err := url.Parse(c.SocketURL)
	if err != nil || (sock.Scheme != "ws" && sock.Scheme != "wss") || sock.Host == "" {
		return fmt.Errorf("SOCKET_URL %q must be an absolute ws(s) URL", c.SocketURL)
	}

	if c.SessionPath == "" {
		return fmt.Errorf("SESSION_PATH must not be empty")
	}

	if c.SubmitInterval < 0 {
		return fmt.Errorf("SUBMIT_INTERVAL_MS must not be negative")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be positive")
	}

	if c.ReconnectAttempts < 1 {
		return fmt.Errorf("RECONNECT_ATTEMPTS must be at least 1")
	}

	switch c.UploadBackend {
	case UploadBackendAPI:
	case UploadBackendS3:
		if c.S3BucketName == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required when UPLOAD_BACKEND is %q", UploadBackendS3)
		}
		if c.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required when UPLOAD_BACKEND is %q", UploadBackendS3)
		}
		if c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when UPLOAD_BACKEND is %q", UploadBackendS3)
		}
	default:
		return fmt.Errorf("UPLOAD_BACKEND must be %q or %q, got %q", UploadBackendAPI, UploadBackendS3, c.UploadBackend)
	}

	return nil
}

// IsDevelopment reports whether the client runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setMillis(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	ms, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s environment variable: %w", key, err)
	}

	*dst = time.Duration(ms) * time.Millisecond
	return nil
}
