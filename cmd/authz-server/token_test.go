package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/femto-apps/authz/config"
	"github.com/femto-apps/authz/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signingConfig() *config.Config {
	return &config.Config{Auth: config.AuthConfig{
		JWTSecret: "signing-secret",
		JWTIssuer: "femto-auth",
	}}
}

func TestRunToken(t *testing.T) {
	cfg := signingConfig()
	var out bytes.Buffer

	err := runToken(cfg, []string{"-subject", "hoster", "-scopes", "authorise, statements:read", "-ttl", "5m"}, &out)
	require.NoError(t, err)

	validator := credential.NewValidator(credential.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		JWTIssuer: cfg.Auth.JWTIssuer,
	})
	principal, err := validator.ValidateToken(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "hoster", principal.Subject)
	assert.Equal(t, []string{credential.ScopeAuthorise, credential.ScopeStatementsRead}, principal.Scopes)
	assert.Equal(t, credential.MethodJWT, principal.Method)
}

func TestRunToken_DefaultsToAllScopes(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, runToken(signingConfig(), []string{"-subject", "admin"}, &out))

	validator := credential.NewValidator(credential.Config{JWTSecret: "signing-secret", JWTIssuer: "femto-auth"})
	principal, err := validator.ValidateToken(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.ElementsMatch(t, credential.AllScopes, principal.Scopes)
}

func TestRunToken_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		args    []string
		wantErr string
	}{
		{"missing subject", signingConfig(), nil, "-subject is required"},
		{"unknown scope", signingConfig(), []string{"-subject", "s", "-scopes", "admin"}, `unknown scope "admin"`},
		{"empty scopes", signingConfig(), []string{"-subject", "s", "-scopes", " , "}, "at least one scope"},
		{"non positive ttl", signingConfig(), []string{"-subject", "s", "-ttl", "0s"}, "-ttl must be positive"},
		{"no signing secret", &config.Config{}, []string{"-subject", "s"}, credential.ErrSigningDisabled.Error()},
		{"unknown flag", signingConfig(), []string{"-nope"}, "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runToken(tt.cfg, tt.args, &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, out.String())
		})
	}
}

func TestParseScopes(t *testing.T) {
	scopes, err := parseScopes("statements:write,audit:read")
	require.NoError(t, err)
	assert.Equal(t, []string{credential.ScopeStatementsWrite, credential.ScopeAuditRead}, scopes)

	_, err = parseScopes("")
	assert.Error(t, err)

}
