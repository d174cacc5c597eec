package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/angas/spotprice-go/entsoe"
	"github.com/angas/spotprice-go/forex"
	"github.com/angas/spotprice-go/logging"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigDatabase struct {
	Path string
	// How many days data should be stored in database before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 90
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 30
	}
	return *d.BackupRetentionDays
}

type AppConfigEntsoe struct {
	Token string `mapstructure:"token"` // Security token from the transparency platform
	Area  string `mapstructure:"area"`  // Bidding zone EIC code, e.g. "10YNO-3--------J"
	// Defaults to the public transparency platform endpoint
	Url *string `mapstructure:"url"`
	// Target currency code, or "auto" to keep the currency of the documents, default: "auto"
	Currency *string `mapstructure:"currency"`
	// "Wh", "kWh" or "MWh", default: "kWh"
	MeasurementUnit *string `mapstructure:"measurement_unit"`
	RunAt           string  `mapstructure:"run_at"`
	// Timeout for one update including the rate lookup, default: 30
	TimeoutSec *int `mapstructure:"timeout_sec"`
}

func (e AppConfigEntsoe) GetUrl() string {
	if e.Url == nil || *e.Url == "" {
		return entsoe.DefaultUrl
	}
	return *e.Url
}

func (e AppConfigEntsoe) GetCurrency() string {
	if e.Currency == nil || *e.Currency == "" {
		return entsoe.CurrencyAuto
	}
	return *e.Currency
}

func (e AppConfigEntsoe) GetMeasurementUnit() string {
	if e.MeasurementUnit == nil || *e.MeasurementUnit == "" {
		return "kWh"
	}
	return *e.MeasurementUnit
}

func (e AppConfigEntsoe) GetTimeout() time.Duration {
	if e.TimeoutSec == nil || *e.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(*e.TimeoutSec) * time.Second
}

type ForexProvider string

const (
	ForexNone          ForexProvider = "none"
	ForexNorgesBank    ForexProvider = "norgesbank"
	ForexExchangeRates ForexProvider = "exchangerates"
)

type AppConfigForex struct {
	// "none", "norgesbank" or "exchangerates", default: "none"
	Provider *string `mapstructure:"provider"`
	Token    string  `mapstructure:"token"` // Access key, only used by exchangerates
	Url      *string `mapstructure:"url"`
}

func (f AppConfigForex) GetProvider() (ForexProvider, error) {
	if f.Provider == nil || *f.Provider == "" {
		return ForexNone, nil
	}
	switch p := ForexProvider(strings.ToLower(*f.Provider)); p {
	case ForexNone, ForexNorgesBank, ForexExchangeRates:
		return p, nil
	default:
		return "", fmt.Errorf("unknown forex provider %q", *f.Provider)
	}
}

func (f AppConfigForex) GetUrl() string {
	if f.Url == nil {
		return ""
	}
	return *f.Url
}

// NewProvider returns nil when no provider is configured.
func (f AppConfigForex) NewProvider() (forex.Provider, error) {
	p, err := f.GetProvider()
	if err != nil {
		return nil, err
	}
	switch p {
	case ForexNorgesBank:
		return forex.NewNorgesBank(f.GetUrl()), nil
	case ForexExchangeRates:
		if f.Token == "" {
			return nil, fmt.Errorf("forex.token is required by %s", p)
		}
		return forex.NewExchangeRates(f.Token, f.GetUrl()), nil
	default:
		return nil, nil
	}
}

type AppConfigMqtt struct {
	Enabled  bool
	Host     string
	Port     int16
	Username string
	Password string
	// Prices are published retained to "<topic>/<area>", default: "spotprice"
	Topic *string `mapstructure:"topic"`
}

func (m AppConfigMqtt) GetTopic() string {
	if m.Topic == nil || *m.Topic == "" {
		return "spotprice"
	}
	return *m.Topic
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for database console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat != nil && strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api      AppConfigApi
	Database AppConfigDatabase
	Entsoe   AppConfigEntsoe  `mapstructure:"entsoe"`
	Forex    AppConfigForex   `mapstructure:"forex"`
	Mqtt     AppConfigMqtt    `mapstructure:"mqtt"`
	Logging  AppConfigLogging `mapstructure:"logging"`
}

func (c *AppConfig) validate() error {
	if c.Entsoe.Token == "" {
		return fmt.Errorf("entsoe.token is required")
	}
	if c.Entsoe.Area == "" {
		return fmt.Errorf("entsoe.area is required")
	}
	if _, err := c.Forex.GetProvider(); err != nil {
		return err
	}
	return nil
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("entsoe.run_at", "15 13 * * *")
	v.SetDefault("database.path", "spotprice.db")

	var c AppConfig

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &c, nil
}
