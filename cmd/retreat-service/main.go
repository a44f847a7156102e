package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/retreatscout/retreat-scout/chatservice"
)

func main() {
	// Optional build-target flag override (local | cloud-dev | cloud)
	buildTarget := flag.String("build-target", "", "Override BUILD_TARGET (local, cloud-dev, cloud)")
	envFile := flag.String("env-file", ".env", "Path to env file (missing file is not an error)")
	flag.Parse()

	// Load .env before the config layer reads the environment. Real
	// deployments set variables directly; the file is a dev convenience.
	_ = godotenv.Load(*envFile)

	if *buildTarget != "" {
		_ = os.Setenv("RETREAT_SCOUT_BUILD_TARGET", *buildTarget)
	}

	if err := chatservice.Run(); err != nil {
		os.Exit(1)
	}
}
