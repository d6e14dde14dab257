package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/stacklok/flagpole/internal/config"
	"github.com/stacklok/flagpole/internal/manifest"
	"github.com/stacklok/flagpole/internal/registry"
	"github.com/stacklok/flagpole/internal/router"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate MANIFEST",
		Short: "Check a manifest and every module file it references",
		Long: `Check a manifest and every module file it references.

Each API version is registered against a private router, so schema errors, invalid
versions, broken handlers and conflicting routes are all reported. Nothing is served.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := cmd.Flags().GetStringSlice("search-dirs")
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				if env := os.Getenv(config.SearchDirsEnv); env != "" {
					dirs = []string{env}
				}
			}
			return validateManifest(cmd.Context(), cmd.OutOrStdout(), args[0], dirs)
		},
	}
	cmd.Flags().StringSlice("search-dirs", nil, "Directories module files and manifests are looked up in")
	return cmd
}

// validateManifest registers every entry of the manifest into a throwaway registry,
// reporting all failures rather than stopping at the first.
func validateManifest(ctx context.Context, out io.Writer, manifestFile string, searchDirs []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []registry.Option
	if len(searchDirs) > 0 {
		opts = append(opts, registry.WithSearchDirs(searchDirs...))
	}
	reg, err := registry.New(router.NewMux(), opts...)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Unregister(ctx, "", "") }()

	path, err := reg.Locate(manifestFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := manifest.Parse(path, data)
	if err != nil {
		return fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"API", "VERSION", "FILE", "RESULT"})

	var errs []error
	for _, e := range m.Entries() {
		info := registry.APIInfo{
			Name:            e.API.Name,
			DescriptiveName: e.API.DescriptiveName,
			Description:     e.API.Description,
			Version:         e.Version.Ver,
		}
		result := "ok"
		if err := reg.RegisterFromFile(ctx, info, e.Version.FileName); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", e.API.Name, e.Version.Ver, err))
			result = truncate(err.Error(), maxCellWidth)
		}
		t.AppendRow(table.Row{e.API.Name, e.Version.Ver, e.Version.FileName, result})
	}
	t.Render()

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d API version(s) failed validation: %w", len(errs), len(m.Entries()), errors.Join(errs...))
	}

	_, _ = fmt.Fprintf(out, "%s: %d API version(s) valid\n", path, reg.Len())
	return nil
}
