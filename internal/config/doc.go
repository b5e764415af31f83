// Package config provides centralized configuration management for the
// TrendMint runtime, combining a JSON configuration file with environment
// variable overlays for secrets. Typed sections are handed to each subsystem
// at wire-up time so packages never read the environment themselves.
package config
