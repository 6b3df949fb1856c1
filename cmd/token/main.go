package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"post-it/auth"
	"post-it/domain"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mints a credential signed with JWT_SECRET, for local clients and the REST layer's service calls.
func main() {
	_ = godotenv.Load()
	userID := flag.String("user", "", "Identity carried by the token")
	roles := flag.String("roles", auth.RoleUser, "Comma separated roles (user, service)")
	duration := flag.Duration("ttl", time.Hour, "Token lifetime")
	issuer := flag.String("issuer", envOr("JWT_ISSUER", "post-it"), "Token issuer")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if domain.UserID(*userID).IsZero() {
		log.Fatal("-user is required")
	}

	token, err := auth.NewIssuer(secret, *issuer).
		GenerateToken(domain.UserID(*userID), strings.Split(*roles, ","), *duration)
	if err != nil {
		log.Fatalf("Token generation failed: %v", err)
	}
	fmt.Println(token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
