// Package config defines the environment-driven configuration structs
// shared by the service binaries, read with cleanenv.
package config
