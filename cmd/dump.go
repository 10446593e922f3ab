package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// CreateDumpCmd creates the dump command.
func CreateDumpCmd() *cobra.Command {
	var addr string
	var auth string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump diagnostics from a running instance",
		Long: `Fetches the diagnostics snapshot (active cameras, client sessions, display state) ` +
			`from a running daemon over its HTTP API and prints it as indented JSON.`,
		Run: func(_ *cobra.Command, _ []string) {
			url := strings.TrimSuffix(addr, "/") + "/api/dump"
			req, err := http.NewRequest(http.MethodGet, url, nil)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}
			if auth != "" {
				user, pass, found := strings.Cut(auth, ":")
				if !found {
					fmt.Fprintln(os.Stderr, "Error: --auth must be user:password")
					os.Exit(1)
				}
				req.SetBasicAuth(user, pass)
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error contacting daemon:", err)
				os.Exit(1)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error reading response:", err)
				os.Exit(1)
			}
			if resp.StatusCode != http.StatusOK {
				fmt.Fprintf(os.Stderr, "Daemon returned %d: %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
				os.Exit(1)
			}

			var pretty map[string]any
			if err := json.Unmarshal(body, &pretty); err != nil {
				fmt.Println(string(body))
				return
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8090", "Base URL of the running daemon")
	cmd.Flags().StringVar(&auth, "auth", "", "Basic auth credentials as user:password")

	return cmd
}
