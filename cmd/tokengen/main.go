// Package main mints operator tokens for the dashboard and for local testing.
//
//	tokengen -name "Front desk" -roles dispatcher -ttl 12h
//
// The signing key, issuer and audience come from the same environment as
// the API server.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ishigakitour/pickup/internal/auth"
	"github.com/ishigakitour/pickup/internal/config"
)

func main() {
	var (
		id    = flag.String("id", "", "operator id (generated when empty)")
		name  = flag.String("name", "", "operator display name")
		roles = flag.String("roles", string(auth.RoleDispatcher), "comma-separated roles: dispatcher, admin")
		ttl   = flag.Duration("ttl", 12*time.Hour, "token lifetime")
	)
	flag.Parse()

	if err := run(*id, *name, *roles, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func run(id, name, roles string, ttl time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Production() && (cfg.JWTSigningKey == "" || cfg.JWTSigningKey == config.DevSigningKey) {
		return errors.New("JWT_SIGNING_KEY must be set in production")
	}

	service := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.SigningKey(),
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		}),
	})

	op := auth.Operator{ID: id, Name: name, Roles: parseRoles(roles)}
	token, err := service.IssueToken(op, ttl)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(token)
}

func parseRoles(s string) []auth.Role {
	var roles []auth.Role
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			roles = append(roles, auth.Role(part))
		}
	}
	return roles
}
