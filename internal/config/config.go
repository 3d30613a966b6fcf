// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
//
// The game world itself (maps, roads, loot tables) is not configured here;
// it is loaded from a JSON file by LoadWorld in world.go.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds public HTTP server settings.
type ServerConfig struct {
	Address         string        // Listen address of the public API
	ReadTimeout     time.Duration // Full-request read deadline
	WriteTimeout    time.Duration // Full-response write deadline
	IdleTimeout     time.Duration // Keep-alive idle deadline
	ShutdownTimeout time.Duration // Drain budget on graceful shutdown
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Address:         ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.Address = addr
	}
	if ms := getEnvInt("SERVER_SHUTDOWN_TIMEOUT_MS", 0); ms > 0 {
		cfg.ShutdownTimeout = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// DEBUG SERVER CONFIGURATION
// =============================================================================

// DebugConfig holds settings for the loopback-only observability server
// (pprof, metrics, render, watch). An empty address disables it.
type DebugConfig struct {
	Address string

	// AuthUser/AuthPass put basic auth in front of every debug endpoint.
	// Empty AuthUser leaves the server open (it only binds loopback).
	AuthUser string
	AuthPass string
}

// DefaultDebug returns the default debug server configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Address: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable
// overrides. Setting DEBUG_ADDRESS to an empty string disables the server.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if addr, ok := os.LookupEnv("DEBUG_ADDRESS"); ok {
		cfg.Address = addr
	}
	cfg.AuthUser = os.Getenv("DEBUG_AUTH_USER")
	cfg.AuthPass = os.Getenv("DEBUG_AUTH_PASS")

	return cfg
}

// =============================================================================
// DATABASE CONFIGURATION
// =============================================================================

// DatabaseConfig holds the retired-player record store settings. URL has no
// default: the server refuses to start without GAME_DB_URL.
type DatabaseConfig struct {
	URL          string        // Postgres connection string
	QueryTimeout time.Duration // Per-query deadline
}

// DefaultDatabase returns the default database configuration.
func DefaultDatabase() DatabaseConfig {
	return DatabaseConfig{
		QueryTimeout: 5 * time.Second,
	}
}

// DatabaseFromEnv returns database configuration with environment variable
// overrides.
func DatabaseFromEnv() DatabaseConfig {
	cfg := DefaultDatabase()

	cfg.URL = os.Getenv("GAME_DB_URL")
	if ms := getEnvInt("DB_QUERY_TIMEOUT_MS", 0); ms > 0 {
		cfg.QueryTimeout = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete server-side configuration.
type AppConfig struct {
	Server   ServerConfig
	Debug    DebugConfig
	Database DatabaseConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:   ServerFromEnv(),
		Debug:    DebugFromEnv(),
		Database: DatabaseFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
