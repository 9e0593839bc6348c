package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/storesync/backend/internal/domain/pipeline"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Shopify ShopifyConfig
	Sheets  SheetsConfig
	Sync    SyncConfig
	Stores  []StoreConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// ShopifyConfig holds Shopify Admin API client settings
type ShopifyConfig struct {
	BaseURL        string  // override for the *.myshopify.com host, used in tests
	PageSize       int     // records per page, Shopify caps at 250
	ThrottleRPS    float64 // requests per second against each store
	TimeoutSeconds int
}

// SheetsConfig holds Google Sheets sink settings
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// SyncConfig holds pipeline run settings
type SyncConfig struct {
	CustomersAllTab string
	OrdersAllTab    string
	CombinedTab     string
	MetafieldLimit  int
	RunTimeout      time.Duration
}

// StoreConfig describes one Shopify store to sync
type StoreConfig struct {
	ID          string `mapstructure:"id"`
	ShopName    string `mapstructure:"shop_name"`
	AccessToken string `mapstructure:"access_token"`
	APIVersion  string `mapstructure:"api_version"`
	CustomerTab string `mapstructure:"customer_tab"`
	OrderTab    string `mapstructure:"order_tab"`
	UseGraphQL  bool   `mapstructure:"use_graphql"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STORESYNC_ prefix (e.g., STORESYNC_SHEETS_SPREADSHEET_ID)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("STORESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

// fromViper builds the config struct from an initialized viper instance.
func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Shopify: ShopifyConfig{
			BaseURL:        v.GetString("shopify.base_url"),
			PageSize:       v.GetInt("shopify.page_size"),
			ThrottleRPS:    v.GetFloat64("shopify.throttle_rps"),
			TimeoutSeconds: v.GetInt("shopify.timeout_seconds"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   v.GetString("sheets.spreadsheet_id"),
			CredentialsFile: v.GetString("sheets.credentials_file"),
			CredentialsJSON: v.GetString("sheets.credentials_json"),
		},
		Sync: SyncConfig{
			CustomersAllTab: v.GetString("sync.customers_all_tab"),
			OrdersAllTab:    v.GetString("sync.orders_all_tab"),
			CombinedTab:     v.GetString("sync.combined_tab"),
			MetafieldLimit:  v.GetInt("sync.metafield_limit"),
			RunTimeout:      v.GetDuration("sync.run_timeout"),
		},
	}

	if err := v.UnmarshalKey("stores", &cfg.Stores); err != nil {
		return nil, fmt.Errorf("error parsing stores: %w", err)
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storesync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Write timeout bounds the whole sync run on the trigger endpoint
		cfg.HTTP.WriteTimeout = 15 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Shopify.PageSize == 0 {
		cfg.Shopify.PageSize = 250
	}
	if cfg.Shopify.ThrottleRPS == 0 {
		cfg.Shopify.ThrottleRPS = 2
	}
	if cfg.Shopify.TimeoutSeconds == 0 {
		cfg.Shopify.TimeoutSeconds = 30
	}
	if cfg.Sync.CustomersAllTab == "" {
		cfg.Sync.CustomersAllTab = "Customers_all"
	}
	if cfg.Sync.OrdersAllTab == "" {
		cfg.Sync.OrdersAllTab = "Orders_all"
	}
	if cfg.Sync.CombinedTab == "" {
		cfg.Sync.CombinedTab = "Combined_Customers_Orders"
	}
	if cfg.Sync.MetafieldLimit == 0 {
		cfg.Sync.MetafieldLimit = 100
	}
	if cfg.Sync.RunTimeout == 0 {
		cfg.Sync.RunTimeout = 10 * time.Minute
	}
	for i := range cfg.Stores {
		store := &cfg.Stores[i]
		if store.ID == "" {
			store.ID = store.ShopName
		}
		if store.APIVersion == "" {
			store.APIVersion = "2024-01"
		}
		if store.CustomerTab == "" && store.ID != "" {
			store.CustomerTab = "Customer_" + store.ID
		}
		if store.OrderTab == "" && store.ID != "" {
			store.OrderTab = "Orders_" + store.ID
		}
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Shopify.PageSize < 1 || c.Shopify.PageSize > 250 {
		return fmt.Errorf("shopify.page_size must be between 1 and 250, got %d", c.Shopify.PageSize)
	}
	if c.Shopify.ThrottleRPS <= 0 {
		return fmt.Errorf("shopify.throttle_rps must be positive")
	}
	if c.Sync.MetafieldLimit < 0 {
		return fmt.Errorf("sync.metafield_limit cannot be negative")
	}

	seen := make(map[string]bool, len(c.Stores))
	for _, store := range c.Stores {
		if store.ID == "" {
			return fmt.Errorf("stores entries require an id or shop_name")
		}
		if seen[store.ID] {
			return fmt.Errorf("duplicate store id %q", store.ID)
		}
		seen[store.ID] = true
	}
	// Missing store credentials are a per-run skip, not a config error:
	// the run reports MISSING_CREDENTIALS for that store and continues.

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required in production")
		}
		if c.Sheets.CredentialsFile == "" && c.Sheets.CredentialsJSON == "" {
			return fmt.Errorf("sheets credentials are required in production")
		}
		if len(c.Stores) == 0 {
			return fmt.Errorf("at least one store is required in production")
		}
	}

	return nil
}

// PipelineStores converts the configured stores to their domain form,
// preserving configuration order.
func (c *Config) PipelineStores() []pipeline.Store {
	stores := make([]pipeline.Store, 0, len(c.Stores))
	for _, s := range c.Stores {
		stores = append(stores, pipeline.Store{
			ID:          s.ID,
			ShopName:    s.ShopName,
			AccessToken: s.AccessToken,
			APIVersion:  s.APIVersion,
			CustomerTab: s.CustomerTab,
			OrderTab:    s.OrderTab,
			UseGraphQL:  s.UseGraphQL,
		})
	}
	return stores
}
