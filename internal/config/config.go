package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the Berlin extension layer
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	ConsentEngine ConsentEngineConfig `mapstructure:"consent_engine"`
	Berlin        BerlinConfig        `mapstructure:"berlin"`
	Signature     SignatureConfig     `mapstructure:"signature"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConsentEngineConfig holds connection settings for the external consent
// persistence engine
type ConsentEngineConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	OrgID   string        `mapstructure:"org_id"`
}

// BerlinConfig holds the NextGenPSD2 business settings
type BerlinConfig struct {
	SupportedAccountReferenceTypes []string          `mapstructure:"supported_account_reference_types"`
	SupportedScaApproaches         []ScaApproach     `mapstructure:"supported_sca_approaches"`
	SupportedScaMethods            []ScaMethod       `mapstructure:"supported_sca_methods"`
	FrequencyPerDayMin             int               `mapstructure:"frequency_per_day_min"`
	ValidUntilDateCapEnabled       bool              `mapstructure:"valid_until_date_cap_enabled"`
	ValidUntilDays                 int               `mapstructure:"valid_until_days"`
	IdempotencyAllowedTime         time.Duration     `mapstructure:"idempotency_allowed_time"`
	SupportedPaymentProducts       []string          `mapstructure:"supported_payment_products"`
	APIVersions                    map[string]string `mapstructure:"api_versions"`
	OAuthMetadataEndpoint          string            `mapstructure:"oauth_metadata_endpoint"`
}

// ScaApproach represents a configured SCA approach
type ScaApproach struct {
	Name    string `mapstructure:"name"`
	Default bool   `mapstructure:"default"`
}

// ScaMethod represents a configured SCA authentication method
type ScaMethod struct {
	ID             string `mapstructure:"id"`
	Type           string `mapstructure:"type"`
	Name           string `mapstructure:"name"`
	MappedApproach string `mapstructure:"mapped_approach"`
	Description    string `mapstructure:"description"`
	Default        bool   `mapstructure:"default"`
	Version        string `mapstructure:"version"`
}

// SignatureConfig holds request signature validation settings
type SignatureConfig struct {
	Enabled                      bool          `mapstructure:"enabled"`
	SupportedHashAlgorithms      []string      `mapstructure:"supported_hash_algorithms"`
	SupportedSignatureAlgorithms []string      `mapstructure:"supported_signature_algorithms"`
	TrustStorePath               string        `mapstructure:"trust_store_path"`
	RevocationEnabled            bool          `mapstructure:"revocation_enabled"`
	RevocationRetryCount         int           `mapstructure:"revocation_retry_count"`
	RevocationExcludedIssuers    []string      `mapstructure:"revocation_excluded_issuers"`
	RevocationCacheTTL           time.Duration `mapstructure:"revocation_cache_ttl"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("OB_BERLIN")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.ConsentEngine.BaseURL == "" {
		return fmt.Errorf("consent engine base URL is required")
	}

	if len(config.Berlin.SupportedAccountReferenceTypes) == 0 {
		return fmt.Errorf("at least one supported account reference type is required")
	}

	if len(config.Berlin.SupportedScaApproaches) == 0 {
		return fmt.Errorf("at least one supported SCA approach is required")
	}

	for _, approach := range config.Berlin.SupportedScaApproaches {
		if approach.Name != "REDIRECT" && approach.Name != "DECOUPLED" {
			return fmt.Errorf("unsupported SCA approach: %s", approach.Name)
		}
	}

	if config.Signature.Enabled {
		if len(config.Signature.SupportedHashAlgorithms) == 0 {
			return fmt.Errorf("supported hash algorithms are required when signature validation is enabled")
		}
		if len(config.Signature.SupportedSignatureAlgorithms) == 0 {
			return fmt.Errorf("supported signature algorithms are required when signature validation is enabled")
		}
	}

	return nil
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// IsAccountReferenceTypeSupported checks whether the given reference type is
// configured
func (b *BerlinConfig) IsAccountReferenceTypeSupported(refType string) bool {
	for _, t := range b.SupportedAccountReferenceTypes {
		if t == refType {
			return true
		}
	}
	return false
}

// DefaultScaApproach returns the default-flagged approach, falling back to the
// first configured one
func (b *BerlinConfig) DefaultScaApproach() ScaApproach {
	for _, approach := range b.SupportedScaApproaches {
		if approach.Default {
			return approach
		}
	}
	return b.SupportedScaApproaches[0]
}

// ApproachByName returns the configured approach with the given name
func (b *BerlinConfig) ApproachByName(name string) (ScaApproach, bool) {
	for _, approach := range b.SupportedScaApproaches {
		if approach.Name == name {
			return approach, true
		}
	}
	return ScaApproach{}, false
}

// MethodsForApproach returns the SCA methods mapped to the given approach
func (b *BerlinConfig) MethodsForApproach(approach string) []ScaMethod {
	var methods []ScaMethod
	for _, method := range b.SupportedScaMethods {
		if method.MappedApproach == approach {
			methods = append(methods, method)
		}
	}
	return methods
}

// IsPaymentProductSupported checks whether a payment product is configured
func (b *BerlinConfig) IsPaymentProductSupported(product string) bool {
	for _, p := range b.SupportedPaymentProducts {
		if p == product {
			return true
		}
	}
	return false
}

// APIVersion returns the configured API version for a consent type
func (b *BerlinConfig) APIVersion(consentType string) string {
	if v, ok := b.APIVersions[consentType]; ok {
		return v
	}
	return "v1"
}

// IsHashAlgorithmSupported checks the digest algorithm whitelist. Algorithm
// names in the Digest header are case-insensitive.
func (s *SignatureConfig) IsHashAlgorithmSupported(alg string) bool {
	for _, a := range s.SupportedHashAlgorithms {
		if strings.EqualFold(a, alg) {
			return true
		}
	}
	return false
}

// IsSignatureAlgorithmSupported checks the signature algorithm whitelist
func (s *SignatureConfig) IsSignatureAlgorithmSupported(alg string) bool {
	for _, a := range s.SupportedSignatureAlgorithms {
		if a == alg {
			return true
		}
	}
	return false
}

// IsIssuerExcludedFromRevocation checks the revocation exclusion list
func (s *SignatureConfig) IsIssuerExcludedFromRevocation(issuerDN string) bool {
	for _, issuer := range s.RevocationExcludedIssuers {
		if issuer == issuerDN {
			return true
		}
	}
	return false
}
