package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ignatij/gostage/internal/cli"
)

var rootCmd = &cobra.Command{Use: "gostage"}

func main() {
	// .env is optional; DB settings may also come from flags.
	_ = godotenv.Load()
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
