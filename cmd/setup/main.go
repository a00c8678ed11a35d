// Command setup manages encrypted provider credentials on disk so API keys
// don't have to live in environment variables.
//
// Usage:
//
//	setup save <provider>    read an API key from stdin and store it
//	setup show <provider>    print whether a key is stored (never the key itself)
//	setup delete <provider>  remove stored credentials
//	setup list               list providers with stored credentials
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/credentials"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	store, err := credentials.NewStore(cfg.CredentialsDir, cfg.MasterKey)
	if err != nil {
		fatal("opening credential store: %v", err)
	}

	cmd := os.Args[1]
	switch cmd {
	case "save":
		provider := requireProvider()
		fmt.Fprintf(os.Stderr, "Enter API key for %s: ", provider)
		reader := bufio.NewReader(os.Stdin)
		key, err := reader.ReadString('\n')
		if err != nil {
			fatal("reading key: %v", err)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			fatal("empty API key")
		}
		if err := store.Save(provider, map[string]string{"api_key": key}); err != nil {
			fatal("saving credentials: %v", err)
		}
		fmt.Printf("Saved credentials for %s\n", provider)

	case "show":
		provider := requireProvider()
		if store.Has(provider) {
			fmt.Printf("%s: credentials stored\n", provider)
		} else {
			fmt.Printf("%s: no credentials\n", provider)
			os.Exit(1)
		}

	case "delete":
		provider := requireProvider()
		if err := store.Delete(provider); err != nil {
			fatal("deleting credentials: %v", err)
		}
		fmt.Printf("Deleted credentials for %s\n", provider)

	case "list":
		providers, err := store.List()
		if err != nil {
			fatal("listing credentials: %v", err)
		}
		if len(providers) == 0 {
			fmt.Println("No stored credentials")
			return
		}
		for _, p := range providers {
			fmt.Println(p)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func requireProvider() string {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}
	return os.Args[2]
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: setup <save|show|delete|list> [provider]")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
