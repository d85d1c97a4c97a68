// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Map       MapConfig       `yaml:"map" mapstructure:"map"`
	Tiles     TilesConfig     `yaml:"tiles" mapstructure:"tiles"`
	OSRM      OSRMConfig      `yaml:"osrm" mapstructure:"osrm"`
	Wayback   WaybackConfig   `yaml:"wayback" mapstructure:"wayback"`
	LandCover LandCoverConfig `yaml:"landcover" mapstructure:"landcover"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the on-disk data directory. An empty dir means
// ~/.gheval.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the database backend. An empty database_url with
// the sqlite driver means the default file under the data directory.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the local web server.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// MapConfig holds the initial map view.
type MapConfig struct {
	HomeLat     float64 `yaml:"home_lat" mapstructure:"home_lat"`
	HomeLng     float64 `yaml:"home_lng" mapstructure:"home_lng"`
	HomeZoom    int     `yaml:"home_zoom" mapstructure:"home_zoom"`
	DefaultType string  `yaml:"default_type" mapstructure:"default_type"`
}

// TilesConfig configures the tile proxy upstreams and cache.
type TilesConfig struct {
	RoadmapURL    string `yaml:"roadmap_url" mapstructure:"roadmap_url"`
	SkyviewURL    string `yaml:"skyview_url" mapstructure:"skyview_url"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	CacheEntries  int    `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// OSRMConfig configures the road routing service.
type OSRMConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// WaybackConfig configures the historical imagery catalogue.
type WaybackConfig struct {
	ConfigURL string `yaml:"config_url" mapstructure:"config_url"`
	TileURL   string `yaml:"tile_url" mapstructure:"tile_url"`
}

// LandCoverConfig configures land-cover analysis.
type LandCoverConfig struct {
	RadiusM int `yaml:"radius_m" mapstructure:"radius_m"`
}

// ImportConfig configures PDF coordinate import.
type ImportConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	ContextChars  int    `yaml:"context_chars" mapstructure:"context_chars"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.gheval")

	// Environment
	v.SetEnvPrefix("GHEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8347)
	v.SetDefault("map.home_lat", 37.5665)
	v.SetDefault("map.home_lng", 126.9780)
	v.SetDefault("map.home_zoom", 10)
	v.SetDefault("map.default_type", "ROADMAP")
	v.SetDefault("tiles.roadmap_url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("tiles.skyview_url", "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}")
	v.SetDefault("tiles.user_agent", "GHEval/1.0 (geoheritage site catalogue)")
	v.SetDefault("tiles.cache_entries", 512)
	v.SetDefault("tiles.cache_ttl_hours", 24)
	v.SetDefault("osrm.base_url", "https://router.project-osrm.org")
	v.SetDefault("osrm.rate_per_sec", 1.0)
	v.SetDefault("wayback.config_url", "https://s3-us-west-2.amazonaws.com/config.maptiles.arcgis.com/waybackconfig.json")
	v.SetDefault("wayback.tile_url", "https://wayback.maptiles.arcgis.com/arcgis/rest/services/WB_{release}/MapServer/tile/{z}/{y}/{x}")
	v.SetDefault("landcover.radius_m", 500)
	v.SetDefault("import.max_concurrent", 4)
	v.SetDefault("import.context_chars", 50)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given mode ("serve" or
// "import"). Collected problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "serve":
		check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535")
		check(c.Map.HomeLat >= -90 && c.Map.HomeLat <= 90, "map.home_lat must be within [-90, 90]")
		check(c.Map.HomeLng >= -180 && c.Map.HomeLng <= 180, "map.home_lng must be within [-180, 180]")
		check(c.Map.HomeZoom >= 0 && c.Map.HomeZoom <= 22, "map.home_zoom must be between 0 and 22")
		check(c.Tiles.CacheEntries > 0, "tiles.cache_entries must be > 0")
		if c.Store.Driver == "postgres" {
			check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
		}
	case "import":
		check(c.Import.MaxConcurrent >= 1 && c.Import.MaxConcurrent <= 32, "import.max_concurrent must be between 1 and 32")
		if c.OCR.Provider == "mistral" {
			check(c.Import.MistralKey != "", "import.mistral_api_key is required for the mistral provider")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
