package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/taskhub/config"
	"github.com/upb/taskhub/session"
)

func TestMain(m *testing.M) {
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")

	os.Exit(m.Run())
}

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "info")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development console logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "console")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "invalid")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

func tokenConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:   "0123456789abcdef0123456789abcdef",
		Issuer:   "taskhub",
		Audience: "taskhub-web",
		TokenTTL: time.Hour,
	}
}

func TestMintToken(t *testing.T) {
	cfg := tokenConfig()
	validator := session.NewValidator(session.Config{
		Secret:   cfg.Secret,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
	})

	t.Run("signed token validates", func(t *testing.T) {
		sub := uuid.New()
		var out bytes.Buffer

		err := mintToken(cfg, []string{"-sub", sub.String(), "-email", "ada@example.com", "-role", "projectManager"}, &out)
		require.NoError(t, err)

		claims, err := validator.ValidateToken(context.Background(), strings.TrimSpace(out.String()))
		require.NoError(t, err)
		assert.Equal(t, sub, claims.Sub)
		assert.Equal(t, "ada@example.com", claims.Email)
		assert.Equal(t, "projectManager", claims.Role)
	})

	t.Run("invalid subject", func(t *testing.T) {
		var out bytes.Buffer
		err := mintToken(cfg, []string{"-sub", "nope"}, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid -sub")
	})

	t.Run("missing secret", func(t *testing.T) {
		var out bytes.Buffer
		err := mintToken(config.SessionConfig{}, nil, &out)
		assert.ErrorIs(t, err, session.ErrMissingSecret)
	})

	t.Run("unknown flag", func(t *testing.T) {
		var out bytes.Buffer
		assert.Error(t, mintToken(cfg, []string{"-bogus"}, &out))
	})
}

func TestRun_TokenIgnoresServerConfig(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("SESSION_ISSUER", "taskhub")
	t.Setenv("SESSION_AUDIENCE", "taskhub-web")
	t.Setenv("ACCESS_LOGIN_PATH", "login")

	_, err := config.New(context.Background())
	require.Error(t, err)

	var out bytes.Buffer
	require.NoError(t, run([]string{"token", "-role", "ADMIN"}, &out))

	validator := session.NewValidator(session.Config{
		Secret:   "0123456789abcdef0123456789abcdef",
		Issuer:   "taskhub",
		Audience: "taskhub-web",
	})
	claims, err := validator.ValidateToken(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", claims.Role)
}
