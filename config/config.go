// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cardinalhq/feedfilter/internal/feedfilter"
	"github.com/cardinalhq/feedfilter/internal/helpers"
)

// Config aggregates configuration for the application.
type Config struct {
	Filter FilterConfig `mapstructure:"filter"`
}

// FilterConfig holds the raw, unvalidated settings of one filter run.
type FilterConfig struct {
	Input             string  `mapstructure:"input"`
	OutputDir         string  `mapstructure:"output_dir"`
	BaseName          string  `mapstructure:"base_name"`
	MinCommission     float64 `mapstructure:"min_commission"`
	EndDate           string  `mapstructure:"end_date"`
	ExcludeCategories string  `mapstructure:"exclude_categories"`
	MaxSize           string  `mapstructure:"max_size"`
}

// DefaultFilterConfig matches the defaults of the interactive tool.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		BaseName:      DefaultBaseName,
		MinCommission: DefaultMinCommission,
		MaxSize:       DefaultMaxSize,
	}
}

// Load reads configuration from defaults, an optional feedfilter.yaml in the
// working directory, environment variables and flags, in increasing priority.
// Environment variables use the prefix "FEEDFILTER" and the dot character in
// keys is replaced by an underscore. For example, "filter.min_commission"
// becomes "FEEDFILTER_FILTER_MIN_COMMISSION".
//
// Flags are bound by name: each entry of FlagKeys that exists in flags
// overrides the matching key when the flag was set on the command line.
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{Filter: DefaultFilterConfig()}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)
	bindEnvs(v, cfg)

	if flags != nil {
		for key, name := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunConfig validates the raw settings and converts them into the engine's
// RunConfig. now supplies the default end date. Every problem found is
// reported in a single error.
func (c FilterConfig) RunConfig(now time.Time) (feedfilter.RunConfig, error) {
	var errs *multierror.Error

	maxBytes, err := helpers.ParseByteSize(c.MaxSize)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("max size: %w", err))
	}

	endDate := strings.TrimSpace(c.EndDate)
	if endDate == "" {
		endDate = now.Format(feedfilter.DateLayout)
	}

	outputDir := strings.TrimSpace(c.OutputDir)
	input := strings.TrimSpace(c.Input)
	if outputDir == "" && input != "" {
		outputDir = filepath.Dir(input)
	}

	rc, err := feedfilter.NewRunConfig(input, outputDir, c.MinCommission, endDate,
		helpers.SplitCategories(c.ExcludeCategories), maxBytes)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return feedfilter.RunConfig{}, err
	}
	return rc.WithBaseName(c.BaseName), nil
}

// setDefaults registers the defaults of cfg so that values from any source
// merge on top of them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("filter.base_name", cfg.Filter.BaseName)
	v.SetDefault("filter.min_commission", cfg.Filter.MinCommission)
	v.SetDefault("filter.max_size", cfg.Filter.MaxSize)
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
