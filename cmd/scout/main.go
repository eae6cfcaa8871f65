// Scout's CLI runs the triage pipeline outside the server: bulk pulls
// over the full industry-code universe and maintenance retries of failed
// classifications.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Deep-tech startup discovery and triage",
}

func main() {
	// Local development convenience. Missing .env is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
