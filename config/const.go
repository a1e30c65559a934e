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

import "github.com/cardinalhq/feedfilter/internal/feedfilter"

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "FEEDFILTER"

	// ConfigFileName is the optional config file, without extension.
	ConfigFileName = "feedfilter"

	DefaultBaseName      = feedfilter.DefaultBaseName
	DefaultMinCommission = 15.0
	DefaultMaxSize       = "5MB"
)

// Flag names of the filter command.
const (
	FlagInput             = "input"
	FlagOutputDir         = "output-dir"
	FlagBaseName          = "base-name"
	FlagMinCommission     = "min-commission"
	FlagEndDate           = "end-date"
	FlagExcludeCategories = "exclude-categories"
	FlagMaxSize           = "max-size"
)

// FlagKeys maps config keys to the flags that override them.
var FlagKeys = map[string]string{
	"filter.input":              FlagInput,
	"filter.output_dir":         FlagOutputDir,
	"filter.base_name":          FlagBaseName,
	"filter.min_commission":     FlagMinCommission,
	"filter.end_date":           FlagEndDate,
	"filter.exclude_categories": FlagExcludeCategories,
	"filter.max_size":           FlagMaxSize,
}
