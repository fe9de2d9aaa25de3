// Command token mints a signed bearer token for local development.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dejobratic/petstore/internal/auth"
	"github.com/dejobratic/petstore/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "customer-1", "token subject (customer id for customers)")
	email := flag.String("email", "", "email claim")
	role := flag.String("role", string(auth.RoleCustomer), "customer, product_manager or sales_manager")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_TTL)")
	flag.Parse()

	if err := run(*subject, *email, auth.Role(*role), *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
}

func run(subject, email string, role auth.Role, ttl time.Duration) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if ttl == 0 {
		ttl = cfg.Auth.TTL
	}

	issuer, err := auth.NewIssuer(auth.Config{Secret: cfg.Auth.Secret, Issuer: cfg.Auth.Issuer, TTL: ttl})
	if err != nil {
		return err
	}

	token, err := issuer.Issue(auth.Identity{Subject: subject, Email: email, Role: role})
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
