// Command tesoro-token prints a bearer token for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tesoro/internal/cli"
	apphttp "tesoro/internal/http"
)

func main() {
	owner := flag.String("owner", "", "owner id written as the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := cli.LoadAndValidateConfig()

	token, err := apphttp.NewToken([]byte(cfg.JWTSecret), *owner, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "tesoro-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
