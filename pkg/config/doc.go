// Package config loads typed configuration structs from environment
// variables (with optional .env support) using caarlos0/env field tags.
// Each struct type is parsed once per process and cached.
package config
