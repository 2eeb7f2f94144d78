package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Console.SearchDebounce)
	assert.Equal(t, 10, cfg.Console.PageSize)
	assert.Equal(t, "/dashboard", cfg.Console.LandingRoute)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, "default", cfg.Store.Profile)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"CONSOLE_API_URL":         "https://admin.example.com/api",
		"CONSOLE_STORE":           "redis",
		"REDIS_ADDR":              "cache:6379",
		"CONSOLE_SEARCH_DEBOUNCE": "1s",
		"ENV":                     "production",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://admin.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Second, cfg.Console.SearchDebounce)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"relative api url": {"CONSOLE_API_URL": "/api"},
		"unknown store":    {"CONSOLE_STORE": "sqlite"},
		"zero page size":   {"CONSOLE_PAGE_SIZE": "0"},
		"bad duration":     {"CONSOLE_API_TIMEOUT": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
