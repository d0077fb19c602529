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
	Store          StoreConfig          `yaml:"store" mapstructure:"store"`
	CompaniesHouse CompaniesHouseConfig `yaml:"companies_house" mapstructure:"companies_house"`
	PlanIt         PlanItConfig         `yaml:"planit" mapstructure:"planit"`
	Datahub        DatahubConfig        `yaml:"datahub" mapstructure:"datahub"`
	LandRegistry   LandRegistryConfig   `yaml:"land_registry" mapstructure:"land_registry"`
	Gauntlet       GauntletConfig       `yaml:"gauntlet" mapstructure:"gauntlet"`
	Refresh        RefreshConfig        `yaml:"refresh" mapstructure:"refresh"`
	Server         ServerConfig         `yaml:"server" mapstructure:"server"`
	Log            LogConfig            `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// CompaniesHouseConfig holds Companies House API credentials.
type CompaniesHouseConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PlanItConfig holds the national planning register settings.
type PlanItConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// DatahubConfig holds the London Planning Datahub settings.
type DatahubConfig struct {
	BaseURL       string   `yaml:"base_url" mapstructure:"base_url"`
	PostcodeAreas []string `yaml:"postcode_areas" mapstructure:"postcode_areas"`
}

// LandRegistryConfig holds the HM Land Registry API settings.
type LandRegistryConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GauntletConfig configures the qualification pipeline.
type GauntletConfig struct {
	WeightsFile string `yaml:"weights_file" mapstructure:"weights_file"`
}

// RefreshConfig configures the staleness refresher.
type RefreshConfig struct {
	DaysOld         int `yaml:"days_old" mapstructure:"days_old"`
	Limit           int `yaml:"limit" mapstructure:"limit"`
	DispatchDelayMS int `yaml:"dispatch_delay_ms" mapstructure:"dispatch_delay_ms"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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

	// Environment
	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("companies_house.key", "")
	v.SetDefault("companies_house.base_url", "https://api.company-information.service.gov.uk")
	v.SetDefault("land_registry.key", "")
	v.SetDefault("gauntlet.weights_file", "")
	v.SetDefault("store.sqlite_path", "prospector.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("planit.base_url", "https://www.planit.org.uk")
	v.SetDefault("planit.page_size", 100)
	v.SetDefault("datahub.base_url", "https://planningdata.london.gov.uk/api-guest/applications")
	v.SetDefault("land_registry.base_url", "https://use-land-property-data.service.gov.uk/api")
	v.SetDefault("refresh.days_old", 7)
	v.SetDefault("refresh.limit", 50)
	v.SetDefault("refresh.dispatch_delay_ms", 100)

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
