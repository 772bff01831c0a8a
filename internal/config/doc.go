// Package config provides the configuration of a webdig run: defaults,
// validation, the YAML config file and XDG directory helpers.
package config
