package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/stacklok/flagpole/internal/registry"
)

const (
	defaultServerURL = "http://localhost:3000"
	listTimeout      = 10 * time.Second
	maxCellWidth     = 80
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the APIs registered on a running server",
		Long: `List the APIs registered on a running server.

The server must have its management API registered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := cmd.Flags().GetString("server")
			if err != nil {
				return err
			}
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			apis, err := fetchAPIs(ctx, http.DefaultClient, server)
			if err != nil {
				return err
			}
			return printAPIs(cmd.OutOrStdout(), apis, format)
		},
	}
	cmd.Flags().String("server", defaultServerURL, "Base URL of the flagpole server")
	cmd.Flags().String("format", "table", "Output format (table or json)")
	return cmd
}

func fetchAPIs(ctx context.Context, client *http.Client, server string) ([]registry.APIDescription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/apis", nil)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", server, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", server, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("GET /apis returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apis []registry.APIDescription
	if err := json.NewDecoder(resp.Body).Decode(&apis); err != nil {
		return nil, fmt.Errorf("failed to decode API list: %w", err)
	}
	return apis, nil
}

func printAPIs(out io.Writer, apis []registry.APIDescription, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(apis)
	case "table", "":
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	if len(apis) == 0 {
		_, _ = fmt.Fprintln(out, "No APIs registered")
		return nil
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"NAME", "VERSION", "DESCRIPTION", "FILE", "TOKEN"})
	for _, api := range apis {
		desc := api.DescriptiveName
		if desc == "" {
			desc = api.Description
		}
		t.AppendRow(table.Row{api.Name, api.Version, truncate(desc, maxCellWidth), api.FileName, api.Token})
	}
	t.Render()
	return nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
