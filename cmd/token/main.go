// Command token issues access and refresh tokens for the driver API using the
// same JWT settings as the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"trio-driver/internal/auth"
	"trio-driver/internal/config"
	"trio-driver/internal/rbac"
)

func main() {
	subject := flag.String("subject", "", "token subject, e.g. an operator's email")
	role := flag.String("role", rbac.RoleViewer, "role: viewer, operator or admin")
	refresh := flag.String("refresh", "", "exchange this refresh token instead of issuing a new pair")
	flag.Parse()

	if !rbac.IsKnownRole(*role) {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
	if *refresh == "" && *subject == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		slog.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	now := time.Now()
	var pair auth.TokenPair
	if *refresh != "" {
		pair, err = m.Refresh(*refresh, *role, now)
	} else {
		pair, err = m.IssuePair(now, *subject, *role)
	}
	if err != nil {
		slog.Error("issue token failed", "err", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"role":          *role,
	})
}
