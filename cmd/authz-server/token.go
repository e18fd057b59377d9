package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/femto-apps/authz/config"
	"github.com/femto-apps/authz/credential"
)

// issueToken implements "authz-server token": it prints a scoped bearer
// token signed with AUTH_JWT_SECRET.
func issueToken(args []string) error {
	cfg, err := config.New(context.Background())
	if err != nil {
		return err
	}
	return runToken(cfg, args, os.Stdout)
}

func runToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "", "subject the token is issued to")
	scopes := fs.String("scopes", strings.Join(credential.AllScopes, ","), "comma separated scopes")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *subject == "" {
		return errors.New("token: -subject is required")
	}
	if *ttl <= 0 {
		return fmt.Errorf("token: -ttl must be positive, got %s", *ttl)
	}

	granted, err := parseScopes(*scopes)
	if err != nil {
		return err
	}

	validator := credential.NewValidator(credential.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		JWTIssuer: cfg.Auth.JWTIssuer,
	})
	token, err := validator.IssueToken(*subject, granted, *ttl)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

func parseScopes(list string) ([]string, error) {
	var scopes []string
	for _, scope := range strings.Split(list, ",") {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if !slices.Contains(credential.AllScopes, scope) {
			return nil, fmt.Errorf("token: unknown scope %q", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		return nil, errors.New("token: at least one scope is required")
	}
	return scopes, nil
}
