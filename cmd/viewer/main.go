package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/config"
	"github.com/joeblew999/plat-viewer/internal/logging"
	"github.com/joeblew999/plat-viewer/internal/permalink"
	"github.com/joeblew999/plat-viewer/internal/server"
)

// Options defines all CLI flags and env vars for the viewer server.
// Flags: --host, --port, --config
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CONFIG
type Options struct {
	Host   string `doc:"Host to bind to" default:"0.0.0.0"`
	Port   int    `doc:"Port to listen on" short:"p" default:"8086"`
	Config string `doc:"Path to viewer settings file" short:"c" default:"viewer.yaml"`
}

func loadSettings(opts *Options) *config.Config {
	settings, err := config.Load(opts.Config)
	if err != nil {
		fail(err)
	}
	if err := settings.Validate(); err != nil {
		fail(fmt.Errorf("%s: %w", opts.Config, err))
	}
	return settings
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func output(cmd *cobra.Command, v any) {
	useYAML, _ := cmd.Flags().GetBool("yaml")

	var out []byte
	var err error
	if useYAML {
		out, err = yaml.Marshal(v)
	} else {
		out, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		fail(fmt.Errorf("marshaling output: %w", err))
	}
	fmt.Println(strings.TrimRight(string(out), "\n"))
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			settings := loadSettings(opts)
			logger, closer, err := logging.New(settings.Log.Level, settings.Log.File)
			if err != nil {
				fail(err)
			}
			defer closer.Close()

			srv, err := server.New(server.Config{
				Host:     opts.Host,
				Port:     fmt.Sprintf("%d", opts.Port),
				Settings: settings,
				Logger:   logger,
			})
			if err != nil {
				fail(err)
			}
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-viewer API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Catalog: %s\n", settings.Catalog)
			fmt.Printf("  Data:    %s\n", settings.DataDir)
			fmt.Println()
			fmt.Printf("  Layers:  %s/api/v1/layers\n", baseURL)
			fmt.Printf("  Events:  %s/api/v1/events\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			go srv.Start(context.Background())

			if err := http.ListenAndServe(addr, srv); err != nil {
				logger.Error("server stopped", "error", err)
				os.Exit(1)
			}
		})
	})

	cli.Root().Use = "viewer"
	cli.Root().Short = "Layer state and permalink server for the 3D map viewer"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger, closer, err := logging.New("error", "")
			if err != nil {
				fail(err)
			}
			defer closer.Close()
			srv, err := server.New(server.Config{
				Host:     opts.Host,
				Port:     fmt.Sprintf("%d", opts.Port),
				Settings: loadSettings(opts),
				Logger:   logger,
			})
			if err != nil {
				fail(err)
			}
			defer srv.Close()
			output(cmd, srv.OpenAPI())
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// permalink subcommand: decode a permalink query
	permalinkCmd := &cobra.Command{
		Use:   "permalink <query>",
		Short: "Decode a permalink query string",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			query := strings.TrimPrefix(args[0], "?")
			if i := strings.IndexByte(query, '?'); i >= 0 {
				query = query[i+1:]
			}
			output(cmd, permalink.Decode(permalink.ParseQuery(query)))
		},
	}
	permalinkCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(permalinkCmd)

	// catalog subcommand: validate and print the layer tree
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate the layer catalog and print its tree",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			reg, err := catalog.Load(loadSettings(opts).Catalog)
			if err != nil {
				fail(err)
			}
			printTree(os.Stdout, reg.Forest(), "")
		}),
	}
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "List the asset references of all tileset layers",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			reg, err := catalog.Load(loadSettings(opts).Catalog)
			if err != nil {
				fail(err)
			}
			for _, ref := range catalog.TilesetAssets(reg.Forest()) {
				fmt.Println(ref)
			}
		}),
	}
	catalogCmd.AddCommand(assetsCmd)
	cli.Root().AddCommand(catalogCmd)

	cli.Run()
}

func printTree(w io.Writer, nodes []*catalog.Node, indent string) {
	for _, n := range nodes {
		if n.Layer != nil {
			fmt.Fprintf(w, "%s%s  [%s, layer=%s]\n", indent, n.Layer.ID, n.Layer.Type, n.Layer.Key)
			continue
		}
		fmt.Fprintf(w, "%s%s/  %s\n", indent, n.Category.ID, n.Category.Label)
		printTree(w, n.Children, indent+"  ")
	}
}
