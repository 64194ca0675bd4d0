// Command token prints a signed access token for a user id, for local use
// with the API and the web UI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hiroki-koketsu/go-task-manager/internal/auth"
	"github.com/hiroki-koketsu/go-task-manager/internal/config"
)

func main() {
	user := flag.String("user", "", "user id to issue the token for")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: token -user <id>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	token, err := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(*user)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
