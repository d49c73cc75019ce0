package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Gateway holds the control-plane and data-plane endpoints plus the
// container-topology settings used for upstream resolution and the one
// recovery restart.
type Gateway struct {
	AdminURL       string `mapstructure:"admin_url" default:"http://localhost:9180/apisix/admin" debugmap:"visible"`
	AdminKey       string `mapstructure:"admin_key" debugmap:"hidden"`
	DataPlaneURL   string `mapstructure:"data_plane_url" default:"http://localhost:9080" debugmap:"visible"`
	RequiredPlugin string `mapstructure:"required_plugin" default:"ai-proxy" debugmap:"visible"`
	ContainerName  string `mapstructure:"container_name" default:"apisix" debugmap:"visible"`
	Network        string `mapstructure:"network" default:"vutf-network" debugmap:"visible"`
	// PodmanSocket empty disables topology resolution and the recovery
	// restart; localhost upstreams are then left untouched.
	PodmanSocket     string `mapstructure:"podman_socket" debugmap:"visible"`
	APIServiceURL    string `mapstructure:"api_service_url" default:"http://violentutf-api:8000" debugmap:"visible"`
	DashboardOrigins string `mapstructure:"dashboard_origins" default:"http://localhost:3000,https://localhost:3000" debugmap:"visible"`
}

// Origins returns the CORS allow-list as a slice.
func (g Gateway) Origins() []string {
	parts := strings.Split(g.DashboardOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Retry holds every bounded wait loop's budget. All loops are constant
// interval.
type Retry struct {
	ConnectAttempts    uint          `mapstructure:"connect_attempts" default:"30" debugmap:"visible"`
	ConnectInterval    time.Duration `mapstructure:"connect_interval" default:"2s" debugmap:"visible"`
	CapabilityAttempts uint          `mapstructure:"capability_attempts" default:"10" debugmap:"visible"`
	CapabilityInterval time.Duration `mapstructure:"capability_interval" default:"3s" debugmap:"visible"`
	AdminAttempts      uint          `mapstructure:"admin_attempts" default:"3" debugmap:"visible"`
	AdminInterval      time.Duration `mapstructure:"admin_interval" default:"1s" debugmap:"visible"`
	ProbeTimeout       time.Duration `mapstructure:"probe_timeout" default:"10s" debugmap:"visible"`
	VerifyWorkers      int           `mapstructure:"verify_workers" default:"4" debugmap:"visible"`
}

type Configuration struct {
	Gateway   Gateway `mapstructure:"gateway"`
	Retry     Retry   `mapstructure:"retry"`
	LogLevel  string  `mapstructure:"log_level" default:"info" debugmap:"visible"`
	LeaseFile string  `mapstructure:"lease_file" default:"/tmp/violentutf-routesync.lock" debugmap:"visible"`
}

// envBindings maps config keys to the environment variables the platform
// installer writes into its env files.
var envBindings = map[string]string{
	"gateway.admin_url":         "GATEWAY_ADMIN_URL",
	"gateway.admin_key":         "GATEWAY_ADMIN_KEY",
	"gateway.data_plane_url":    "GATEWAY_DATA_PLANE_URL",
	"gateway.required_plugin":   "GATEWAY_REQUIRED_PLUGIN",
	"gateway.container_name":    "GATEWAY_CONTAINER_NAME",
	"gateway.network":           "GATEWAY_NETWORK",
	"gateway.podman_socket":     "PODMAN_SOCKET",
	"gateway.api_service_url":   "API_SERVICE_URL",
	"gateway.dashboard_origins": "DASHBOARD_ORIGINS",
	"retry.connect_attempts":    "RETRY_CONNECT_ATTEMPTS",
	"retry.connect_interval":    "RETRY_CONNECT_INTERVAL",
	"retry.capability_attempts": "RETRY_CAPABILITY_ATTEMPTS",
	"retry.capability_interval": "RETRY_CAPABILITY_INTERVAL",
	"retry.admin_attempts":      "RETRY_ADMIN_ATTEMPTS",
	"retry.admin_interval":      "RETRY_ADMIN_INTERVAL",
	"retry.probe_timeout":       "RETRY_PROBE_TIMEOUT",
	"retry.verify_workers":      "RETRY_VERIFY_WORKERS",
	"log_level":                 "LOG_LEVEL",
	"lease_file":                "LEASE_FILE",
}

// Load reads the env file the installer maintains (if any), applies
// environment overrides and fills remaining zero fields with defaults.
func Load(envFile string) (*Configuration, *viper.Viper, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, nil, err
		}
	}

	cfg := &Configuration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}

	return cfg, v, nil
}

// DebugMap returns logging-safe configuration values, walking the struct
// tags so a new field cannot be forgotten. Fields tagged debugmap:"hidden"
// are redacted.
func (c *Configuration) DebugMap() map[string]any {
	return debugMap(reflect.ValueOf(*c))
}

func debugMap(v reflect.Value) map[string]any {
	out := map[string]any{}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		if field.Tag.Get("debugmap") == "hidden" {
			out[key] = "<redacted>"
			continue
		}
		value := v.Field(i)
		if d, ok := value.Interface().(time.Duration); ok {
			out[key] = d.String()
			continue
		}
		if value.Kind() == reflect.Struct {
			out[key] = debugMap(value)
			continue
		}
		out[key] = value.Interface()
	}
	return out
}
