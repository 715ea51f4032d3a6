/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/persistence"
	"github.com/suparena/persistence/cloud/ddb"
	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/graph"
	"github.com/suparena/persistence/storagemodels"
	"github.com/suparena/persistence/telemetry"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "PERSISTENCE_"

// Config describes one controller and the tools around it.
type Config struct {
	// Model is the name of the object model.
	Model string `yaml:"model" env:"MODEL" validate:"required"`

	// Directory holds the store files. Empty selects the platform default.
	Directory string `yaml:"directory" env:"DIRECTORY"`

	// CloudContainer is inherited by cloud stores that name none.
	CloudContainer string `yaml:"cloudContainer" env:"CLOUD_CONTAINER"`

	MergePolicy string `yaml:"mergePolicy" env:"MERGE_POLICY" validate:"omitempty,oneof=merge-by-property property error"`

	Stores []StoreConfig `yaml:"stores" validate:"required,min=1,dive"`

	Logging  telemetry.LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Metrics  telemetry.MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	DynamoDB DynamoDBConfig          `yaml:"dynamodb" envPrefix:"DYNAMODB_"`
}

// StoreConfig is the file form of a StoreSpec
type StoreConfig struct {
	Kind           string `yaml:"kind" validate:"required,oneof=in-memory local cloud-private cloud-shared"`
	Configuration  string `yaml:"configuration"`
	FileName       string `yaml:"fileName"`
	CloudContainer string `yaml:"cloudContainer"`
}

// DynamoDBConfig selects the account of the DynamoDB cloud container
type DynamoDBConfig struct {
	Region    string `yaml:"region" env:"REGION"`
	AccessKey string `yaml:"accessKey" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secretKey" env:"SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT" validate:"omitempty,url"`
}

// ClientConfig converts the section for ddb.NewClient
func (c DynamoDBConfig) ClientConfig() ddb.ClientConfig {
	return ddb.ClientConfig{
		Region:    c.Region,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Endpoint:  c.Endpoint,
	}
}

// Default returns the configuration used for unset values
func Default() *Config {
	return &Config{
		MergePolicy: graph.MergeByProperty.String(),
		Logging:     telemetry.DefaultLoggingConfig(),
		Metrics:     telemetry.DefaultMetricsConfig(),
	}
}

// Load reads path (skipped when empty), then envFiles (default ".env", a
// missing default is ignored), then the environment, and validates the
// result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct constraints and every store spec
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fieldName(fe.Namespace()), fmt.Sprintf("failed on %q", fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	specs, err := c.StoreSpecs()
	if err != nil {
		return err
	}
	for i, spec := range specs {
		if err := spec.Validate(c.CloudContainer); err != nil {
			return fmt.Errorf("stores[%d]: %w", i, err)
		}
	}
	return nil
}

// fieldName drops the root struct name from a validator namespace
func fieldName(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// StoreSpecs converts the store list, in order
func (c *Config) StoreSpecs() ([]storagemodels.StoreSpec, error) {
	specs := make([]storagemodels.StoreSpec, 0, len(c.Stores))
	for i, s := range c.Stores {
		kind, err := storagemodels.ParseStoreKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("stores[%d]: %w", i, err)
		}

		var spec storagemodels.StoreSpec
		switch kind {
		case storagemodels.KindInMemory:
			spec = storagemodels.InMemory(s.Configuration)
		case storagemodels.KindLocal:
			spec = storagemodels.Local(s.Configuration, s.FileName)
		case storagemodels.KindCloudPrivate:
			spec = storagemodels.CloudPrivate(s.Configuration, s.CloudContainer, s.FileName)
		case storagemodels.KindCloudShared:
			spec = storagemodels.CloudShared(s.Configuration, s.CloudContainer, s.FileName)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// HasCloudStores reports whether any store is mirrored to the cloud
func (c *Config) HasCloudStores() bool {
	for _, s := range c.Stores {
		if kind, err := storagemodels.ParseStoreKind(s.Kind); err == nil && kind.IsCloud() {
			return true
		}
	}
	return false
}

// ControllerOptions returns the controller options described by c
func (c *Config) ControllerOptions() ([]persistence.Option, error) {
	policy, err := graph.ParseMergePolicy(c.MergePolicy)
	if err != nil {
		return nil, err
	}

	opts := []persistence.Option{persistence.WithMergePolicy(policy)}
	if c.Directory != "" {
		opts = append(opts, persistence.WithDirectory(c.Directory))
	}
	if c.CloudContainer != "" {
		opts = append(opts, persistence.WithCloudContainer(c.CloudContainer))
	}
	return opts, nil
}
