// Command krishiseva runs the farmer assistant pipeline from the terminal:
// one-shot questions, knowledge seeding and history inspection.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if err := newCLI(os.Stdout, logger).root.Execute(); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
