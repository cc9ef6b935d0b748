// Command deepwork serves the deepwork MCP workflow orchestration server
// and its companion CLI utilities.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "deepwork",
	Short: "deepwork — multi-step job orchestration over MCP",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(jobsCmd)

	serveCmd.Flags().String("path", ".", "project root directory")
	serveCmd.Flags().Bool("no-quality-gate", false, "disable quality reviews")
	serveCmd.Flags().String("transport", "stdio", "transport to serve on: stdio or sse")
	serveCmd.Flags().Int("port", 8000, "port to listen on (sse transport only)")
	serveCmd.Flags().String("external-runner", "", "external reviewer subprocess family (e.g. claude); absent selects self-review mode")

	_ = viper.BindPFlag("path", serveCmd.Flags().Lookup("path"))
	_ = viper.BindPFlag("no-quality-gate", serveCmd.Flags().Lookup("no-quality-gate"))
	_ = viper.BindPFlag("transport", serveCmd.Flags().Lookup("transport"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("external-runner", serveCmd.Flags().Lookup("external-runner"))

	jobsCmd.AddCommand(jobsGetStackCmd)
	jobsGetStackCmd.Flags().String("path", ".", "project root directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
