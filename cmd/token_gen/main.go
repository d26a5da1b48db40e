package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/SamSjosten/FitChallenge-sub003/internal/auth"
)

// Issues a bearer token for local testing against the API
func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id (uuid); a random one is generated when empty")
	role := flag.String("role", "member", "role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	if *userID == "" {
		*userID = uuid.NewString()
	}
	if _, err := uuid.Parse(*userID); err != nil {
		log.Fatalf("invalid user id %q: %v", *userID, err)
	}

	token, err := auth.NewTokenService(secret).Issue(*userID, *role, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println("User:", *userID)
	fmt.Println("Token:", token)
}
