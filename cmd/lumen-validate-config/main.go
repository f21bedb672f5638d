package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features/builtin"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <config file>", os.Args[0])
	}
	cfg, err := config.Parse(os.Args[1])
	if err != nil {
		fmt.Printf("Config invalid: %s\n", err)
		os.Exit(1)
	}

	// building the registry catches what Validate cannot, like a feature
	// that does not support the configured language
	if _, err := builtin.FromConfig(cfg); err != nil {
		fmt.Printf("Config invalid: %s\n", err)
		os.Exit(1)
	}

	fmt.Print("Config valid!\n\n")

	fmt.Print(cfg)
}
