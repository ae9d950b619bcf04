package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nightwatch-astro/nightwatch/internal/catalog"
	"github.com/nightwatch-astro/nightwatch/internal/config"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the deep space object catalog",
	}
	cmd.AddCommand(catalogInitCmd())
	cmd.AddCommand(catalogInfoCmd())
	return cmd
}

func catalogInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the catalog database and seed it with the bundled objects",
		Run: func(cmd *cobra.Command, args []string) {
			runCatalogInit(force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reseed even if the catalog already has objects")
	return cmd
}

func runCatalogInit(force bool) {
	cfg := loadConfigOrExit()
	path := config.ExpandHome(cfg.Catalog.DBPath)
	os.MkdirAll(filepath.Dir(path), 0o755)

	store, err := catalog.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening catalog: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if n > 0 && !force {
		fmt.Printf("Catalog at %s already has %d objects. Use --force to reseed.\n", path, n)
		return
	}

	if err := store.SeedDefault(); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding: %v\n", err)
		os.Exit(1)
	}
	n, _ = store.Count(context.Background())
	fmt.Printf("Catalog ready at %s with %d objects.\n", path, n)
}

func catalogInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show catalog location and object count",
		Run: func(cmd *cobra.Command, args []string) {
			runCatalogInfo()
		},
	}
}

func runCatalogInfo() {
	cfg := loadConfigOrExit()
	path := config.ExpandHome(cfg.Catalog.DBPath)

	fmt.Printf("Path:    %s", path)
	if _, err := os.Stat(path); err != nil {
		fmt.Println(" (NOT FOUND, run 'nightwatch catalog init')")
		return
	}
	fmt.Println()

	store, err := catalog.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening catalog: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Objects: %d\n", n)
	fmt.Printf("Site:    %s (%s)\n", cfg.Observer.Location, cfg.Observer.Timezone)
}
