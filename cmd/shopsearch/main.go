// Command shopsearch is the product search front end: a web server and a
// terminal client over the same search session.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags shared by all commands.
var (
	envName    string
	configPath string
	backendURL string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "shopsearch",
	Short: "Text and image product search",
	Long: `shopsearch searches a product catalogue by free text or by example image.

Commands:
  serve         - Run the web front end
  search        - Run a text search and print a page of results
  image-search  - Run an image search and print a page of results
  version       - Print build information`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "config environment (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "explicit config file path")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "search backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(serveCmd, searchCmd, imageSearchCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
