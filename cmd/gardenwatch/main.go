package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/verdantlabs/gardenwatch/internal/app"
	"github.com/verdantlabs/gardenwatch/internal/config"
	"github.com/verdantlabs/gardenwatch/internal/log"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	gardensFile := flag.String("gardens", "gardens.config.json", "Path to the gardens configuration file")
	profilesFile := flag.String("profiles", "plant-sensitivity-profiles.json", "Path to the plant sensitivity profiles file")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gardenwatch %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// A .env file is optional; the real environment always wins.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}

	gardens, err := config.LoadGardens(*gardensFile)
	if err != nil {
		log.Errorf("Failed to load gardens configuration: %v", err)
		os.Exit(1)
	}

	profiles, err := config.LoadProfiles(*profilesFile)
	if err != nil {
		log.Errorf("Failed to load sensitivity profiles: %v", err)
		os.Exit(1)
	}

	env := config.FromEnv()

	application := app.New(gardens, profiles, env, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}
