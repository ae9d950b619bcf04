package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightwatch-astro/nightwatch/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("nightwatch doctor")
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(config.ExpandHome(cfgPath)); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Model endpoint:")
	fmt.Printf("    Provider:    %s\n", cfg.Provider.Name)
	fmt.Printf("    Base URL:    %s\n", cfg.Provider.APIBase)
	fmt.Printf("    Model:       %s\n", cfg.ResolveAgent("").Model)
	if key, err := cfg.ResolveCredential(); err != nil {
		fmt.Printf("    Credential:  MISSING (%v)\n", err)
	} else {
		fmt.Printf("    Credential:  %s\n", maskKey(key))
	}

	fmt.Println()
	fmt.Println("  Observer:")
	fmt.Printf("    Site:        %s (%.4f, %.4f)\n", cfg.Observer.Location, cfg.Observer.Latitude, cfg.Observer.Longitude)
	fmt.Printf("    Timezone:    %s", cfg.Observer.Timezone)
	if _, err := time.LoadLocation(cfg.Observer.Timezone); err != nil {
		fmt.Print(" (INVALID)")
	}
	fmt.Println()

	fmt.Println()
	dbPath := config.ExpandHome(cfg.Catalog.DBPath)
	fmt.Printf("  Catalog:  %s", dbPath)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Println(" (NOT FOUND, run 'nightwatch catalog init')")
	} else {
		fmt.Println(" (OK)")
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
