// Package config loads env-tagged configuration structs from environment
// variables, with optional .env support for local development. Config structs
// live beside the packages they configure; this package only does the
// loading.
package config
