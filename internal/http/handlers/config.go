package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/streamfold/internal/config"
)

// ConfigHandler exposes the effective startup configuration.
type ConfigHandler struct {
	cfg        *config.Config
	configPath string
}

// NewConfigHandler creates a new config handler. configPath is the file the
// configuration was loaded from, empty when only defaults and environment
// variables were used.
func NewConfigHandler(cfg *config.Config, configPath string) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, configPath: configPath}
}

// Register registers the config routes with the API.
func (h *ConfigHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getConfig",
		Method:      http.MethodGet,
		Path:        "/api/v1/config",
		Summary:     "Get configuration",
		Description: "Returns the effective configuration the server was started with",
		Tags:        []string{"Configuration"},
	}, h.GetConfig)
}

// ConfigResponse is the effective configuration.
type ConfigResponse struct {
	Server     ServerConfigData     `json:"server"`
	Pipeline   PipelineConfigData   `json:"pipeline"`
	HTTPClient HTTPClientConfigData `json:"httpclient"`
	Metadata   MetadataConfigData   `json:"metadata"`
	Meta       ConfigMeta           `json:"meta"`
}

// ServerConfigData represents server configuration.
type ServerConfigData struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	ReadTimeout  string   `json:"read_timeout"`
	WriteTimeout string   `json:"write_timeout"`
	CORSOrigins  []string `json:"cors_origins"`
	MaxBodySize  string   `json:"max_body_size"`
}

// PipelineConfigData represents pipeline configuration.
type PipelineConfigData struct {
	ExpressionTimeout   string `json:"expression_timeout"`
	MaxConcurrency      int    `json:"max_concurrency"`
	EnableDeduplication bool   `json:"enable_deduplication"`
	EnablePrecompute    bool   `json:"enable_precompute"`
}

// HTTPClientConfigData represents the outbound HTTP client configuration.
type HTTPClientConfigData struct {
	Timeout          string `json:"timeout"`
	RetryAttempts    int    `json:"retry_attempts"`
	CircuitThreshold int    `json:"circuit_threshold"`
	CircuitTimeout   string `json:"circuit_timeout"`
	UserAgent        string `json:"user_agent"`
	MaxResponseSize  string `json:"max_response_size"`
}

// MetadataConfigData represents title lookup configuration.
type MetadataConfigData struct {
	Enabled   bool   `json:"enabled"`
	BaseURL   string `json:"base_url"`
	CacheSize uint32 `json:"cache_size"`
	CacheTTL  string `json:"cache_ttl"`
}

// ConfigMeta describes where the configuration came from.
type ConfigMeta struct {
	ConfigPath   string     `json:"config_path,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Source       string     `json:"source"` // "file" or "defaults"
}

// GetConfigInput is the input for getting the config.
type GetConfigInput struct{}

// GetConfigOutput is the output for getting the config.
type GetConfigOutput struct {
	Body ConfigResponse
}

// GetConfig returns the effective configuration.
func (h *ConfigHandler) GetConfig(_ context.Context, _ *GetConfigInput) (*GetConfigOutput, error) {
	c := h.cfg
	return &GetConfigOutput{
		Body: ConfigResponse{
			Server: ServerConfigData{
				Host:         c.Server.Host,
				Port:         c.Server.Port,
				ReadTimeout:  c.Server.ReadTimeout.String(),
				WriteTimeout: c.Server.WriteTimeout.String(),
				CORSOrigins:  c.Server.CORSOrigins,
				MaxBodySize:  c.Server.MaxBodySize.String(),
			},
			Pipeline: PipelineConfigData{
				ExpressionTimeout:   c.Pipeline.ExpressionTimeout.String(),
				MaxConcurrency:      c.Pipeline.MaxConcurrency,
				EnableDeduplication: c.Pipeline.EnableDeduplication,
				EnablePrecompute:    c.Pipeline.EnablePrecompute,
			},
			HTTPClient: HTTPClientConfigData{
				Timeout:          c.HTTPClient.Timeout.String(),
				RetryAttempts:    c.HTTPClient.RetryAttempts,
				CircuitThreshold: c.HTTPClient.CircuitThreshold,
				CircuitTimeout:   c.HTTPClient.CircuitTimeout.String(),
				UserAgent:        c.HTTPClient.UserAgent,
				MaxResponseSize:  c.HTTPClient.MaxResponseSize.String(),
			},
			Metadata: MetadataConfigData{
				Enabled:   c.Metadata.Enabled,
				BaseURL:   c.Metadata.BaseURL,
				CacheSize: c.Metadata.CacheSize,
				CacheTTL:  c.Metadata.CacheTTL.String(),
			},
			Meta: h.configMeta(),
		},
	}, nil
}

func (h *ConfigHandler) configMeta() ConfigMeta {
	if h.configPath == "" {
		return ConfigMeta{Source: "defaults"}
	}

	meta := ConfigMeta{ConfigPath: h.configPath, Source: "file"}
	if info, err := os.Stat(h.configPath); err == nil {
		modified := info.ModTime()
		meta.LastModified = &modified
	}
	return meta
}
