// Command issue-token signs a bearer token for local development and
// smoke tests against the API.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/config"
	"github.com/garyjia/invoice-insights/internal/infrastructure/auth"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config.yaml")
	userID := flag.String("user", "", "User ID to put in the token subject")
	email := flag.String("email", "", "Optional email claim")
	name := flag.String("name", "", "Optional name claim")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: issue-token -user <id> [-email e] [-name n] [-config path]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	provider, err := auth.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create token provider: %v\n", err)
		os.Exit(1)
	}

	token, err := provider.Issue(port.Principal{UserID: *userID, Email: *email, Name: *name})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
