package shopify

import "errors"

// Config holds configuration for the Shopify Admin API client. One client
// serves every configured store; per-store identity (shop, token, API
// version) travels with each request.
type Config struct {
	// BaseURL overrides the per-shop https://<shop>.myshopify.com endpoint.
	// Empty in production; set by tests to point at a local server.
	BaseURL string
	// PageSize is the number of records requested per page.
	PageSize int
	// MetafieldPageSize is the number of metafields requested per customer
	// on the GraphQL variant. Kept in step with the pivot limit so entries
	// are dropped by the pivot, never silently truncated at the source.
	MetafieldPageSize int
	// ThrottleRPS is the cooperative request rate against one shop. Shopify
	// enforces a leaky bucket of roughly 2 requests per second.
	ThrottleRPS float64
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

// DefaultAPIVersion is used when a store does not pin an API version.
const DefaultAPIVersion = "2024-01"

// Errors for Shopify configuration
var (
	ErrConfigInvalidPageSize          = errors.New("shopify: page size must be between 1 and 250")
	ErrConfigInvalidMetafieldPageSize = errors.New("shopify: metafield page size must not be negative")
	ErrConfigInvalidThrottle          = errors.New("shopify: throttle rate must be positive")
)

// maxConnectionPageSize is Shopify's hard cap on connection page sizes for
// both REST pages and GraphQL connections.
const maxConnectionPageSize = 250

// NewConfig creates a Shopify client configuration with defaults.
func NewConfig() *Config {
	return &Config{
		PageSize:          250,
		MetafieldPageSize: 100,
		ThrottleRPS:       2,
		TimeoutSeconds:    30,
	}
}

// Validate validates the configuration, filling zero values with defaults.
func (c *Config) Validate() error {
	if c.PageSize == 0 {
		c.PageSize = 250
	}
	if c.PageSize < 0 || c.PageSize > maxConnectionPageSize {
		return ErrConfigInvalidPageSize
	}
	if c.MetafieldPageSize == 0 {
		c.MetafieldPageSize = 100
	}
	if c.MetafieldPageSize < 0 {
		return ErrConfigInvalidMetafieldPageSize
	}
	if c.MetafieldPageSize > maxConnectionPageSize {
		c.MetafieldPageSize = maxConnectionPageSize
	}
	if c.ThrottleRPS == 0 {
		c.ThrottleRPS = 2
	}
	if c.ThrottleRPS < 0 {
		return ErrConfigInvalidThrottle
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
