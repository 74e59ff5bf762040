// Copyright (C) 2025 chainofproduct
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment variable values
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment variables in config
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.KeyStore.Directory = SubstituteEnvVars(cfg.KeyStore.Directory)
	cfg.DefaultName = SubstituteEnvVars(cfg.DefaultName)
	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Logging.Format = SubstituteEnvVars(cfg.Logging.Format)
	cfg.Metrics.Listen = SubstituteEnvVars(cfg.Metrics.Listen)
	cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)
}
