// Package config loads the verifier and key resolver settings from the
// environment and an optional YAML file.
package config

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	validation "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/lambdakit/go-authz/jwks"
	"github.com/lambdakit/go-authz/validator"
)

// Issuer selection modes accepted in IssuerSelection.
const (
	SelectionFanOut      = "fan-out"
	SelectionTokenIssuer = "token-issuer"
)

// Config holds the authorization settings. List values read from the
// environment are comma separated, e.g. JWT_ALGORITHM=RS256,ES256.
type Config struct {
	Issuers    []string `mapstructure:"jwt_issuer" validate:"required,min=1,dive,required,url"`
	Audiences  []string `mapstructure:"jwt_audience" validate:"required,min=1,dive,required"`
	Algorithms []string `mapstructure:"jwt_algorithm" validate:"required,min=1,dive,oneof=EdDSA HS256 HS384 HS512 RS256 RS384 RS512 ES256 ES384 ES512 PS256 PS384 PS512"`

	ClockSkew       time.Duration `mapstructure:"jwt_clock_skew" default:"0s" validate:"gte=0"`
	IssuerSelection string        `mapstructure:"jwt_issuer_selection" default:"fan-out" validate:"oneof=fan-out token-issuer"`

	// Key set retrieval
	JWKSCacheTTL          time.Duration `mapstructure:"jwks_cache_ttl" default:"10m" validate:"gt=0"`
	JWKSRequestsPerMinute int           `mapstructure:"jwks_requests_per_minute" default:"10" validate:"gt=0"`
	JWKSHTTPTimeout       time.Duration `mapstructure:"jwks_http_timeout" default:"10s" validate:"gt=0"`
	JWKSDiscovery         bool          `mapstructure:"jwks_discovery"`

	// Shared key set cache, disabled when RedisURL is empty
	RedisURL       string `mapstructure:"redis_url" secret:"true" validate:"omitempty,url"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix" default:"authz:jwks:"`

	LogLevel string `mapstructure:"log_level" default:"info" validate:"oneof=debug info warn error"`
}

// Binder attaches extra sources, such as command line flags, to the viper
// instance Load reads from.
type Binder func(v *viper.Viper) error

// Load reads the configuration. Environment variables take precedence over
// the YAML file at path; an empty path reads the environment only. Sources
// attached by binders follow viper's precedence rules.
func Load(path string, binders ...Binder) (*Config, error) {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	typeOfCfg := reflect.TypeOf(cfg)
	for i := 0; i < typeOfCfg.NumField(); i++ {
		if key := typeOfCfg.Field(i).Tag.Get("mapstructure"); key != "" {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}
	}

	for _, bind := range binders {
		if err := bind(v); err != nil {
			return nil, fmt.Errorf("failed to bind config source: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Issuers = splitList(cfg.Issuers)
	cfg.Audiences = splitList(cfg.Audiences)
	cfg.Algorithms = splitList(cfg.Algorithms)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg. A missing algorithm list is an error; there is no
// default allow-list.
func Validate(cfg *Config) error {
	validate := validation.New(validation.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidatorOptions returns the validator options described by cfg. resolver
// may be nil, in which case the validator builds its own.
func (c *Config) ValidatorOptions(resolver validator.KeyResolver) []validator.Option {
	algorithms := make([]validator.SignatureAlgorithm, 0, len(c.Algorithms))
	for _, alg := range c.Algorithms {
		algorithms = append(algorithms, validator.SignatureAlgorithm(alg))
	}

	selection := validator.FanOutIssuers
	if c.IssuerSelection == SelectionTokenIssuer {
		selection = validator.TokenIssuer
	}

	opts := []validator.Option{
		validator.WithIssuers(c.Issuers),
		validator.WithAudiences(c.Audiences),
		validator.WithAlgorithms(algorithms...),
		validator.WithAllowedClockSkew(c.ClockSkew),
		validator.WithIssuerSelection(selection),
	}
	if resolver != nil {
		opts = append(opts, validator.WithKeyResolver(resolver))
	}
	return opts
}

// ResolverOptions returns the key resolver options described by cfg. When
// RedisURL is set the key sets are cached in Redis.
func (c *Config) ResolverOptions(logger jwks.Logger) ([]jwks.ResolverOption, error) {
	opts := []jwks.ResolverOption{
		jwks.WithCacheTTL(c.JWKSCacheTTL),
		jwks.WithRequestsPerMinute(c.JWKSRequestsPerMinute),
		jwks.WithHTTPClient(&http.Client{Timeout: c.JWKSHTTPTimeout}),
	}
	if c.JWKSDiscovery {
		opts = append(opts, jwks.WithDiscovery())
	}
	if logger != nil {
		opts = append(opts, jwks.WithLogger(logger))
	}

	if c.RedisURL == "" {
		return opts, nil
	}

	redisOpts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	cacheOpts := []jwks.RedisCacheOption{jwks.WithRedisKeyPrefix(c.RedisKeyPrefix)}
	if logger != nil {
		cacheOpts = append(cacheOpts, jwks.WithRedisLogger(logger))
	}
	cache, err := jwks.NewRedisCache(redis.NewClient(redisOpts), c.JWKSCacheTTL, cacheOpts...)
	if err != nil {
		return nil, err
	}
	return append(opts, jwks.WithCache(cache)), nil
}

// NewValidator builds a key resolver and a validator from cfg.
func (c *Config) NewValidator(logger jwks.Logger) (*validator.Validator, error) {
	resolverOpts, err := c.ResolverOptions(logger)
	if err != nil {
		return nil, err
	}
	resolver, err := jwks.NewResolver(resolverOpts...)
	if err != nil {
		return nil, err
	}
	return validator.New(c.ValidatorOptions(resolver)...)
}

// String returns a representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := v.Type()

	parts := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprintf("%v", v.Field(i).Interface())
		if field.Tag.Get("secret") == "true" && value != "" {
			value = "***REDACTED***"
		}
		parts = append(parts, field.Name+": "+value)
	}
	return "Config{" + strings.Join(parts, ", ") + "}"
}

// splitList flattens comma separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
