// Package config loads listiconsd configuration.
//
// Values are layered: built-in defaults, then the TOML file, then
// LISTICONS_* environment variables, then secret references in the admin
// credentials. The result is normalised (paths expanded, derived paths
// filled in) and validated before use.
//
// See sample_config.toml for every key.
package config
