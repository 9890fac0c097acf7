// Command admintoken prints a signed back-office token for the given user.
// It reads JWT_SECRET the same way the server does.
//
//	JWT_SECRET=... admintoken -user ops-1 -email ops@example.com -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/utafrali/rxstore/internal/auth"
	pkgconfig "github.com/utafrali/rxstore/pkg/config"
)

type tokenConfig struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

func main() {
	userID := flag.String("user", "", "administrator user id")
	email := flag.String("email", "", "administrator email")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "admintoken: -user is required")
		os.Exit(2)
	}

	var cfg tokenConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "admintoken: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, *ttl).GenerateToken(*userID, *email, auth.RoleAdmin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "admintoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
