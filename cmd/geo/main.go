package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/logger"
	"github.com/joeblew999/plat-geojson/internal/server"
	"github.com/joeblew999/plat-geojson/internal/service"
	"github.com/joeblew999/plat-geojson/internal/style"
)

// Options defines all CLI flags and env vars for the geo server.
// Flags: --host, --port, --styles, --log-level, --log-format, --width, --height, --no-db
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_STYLES, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	Styles    string `doc:"YAML style rules file (built-in rules when empty)"`
	LogLevel  string `doc:"Log level: trace, debug, info, warn, error" default:"info"`
	LogFormat string `doc:"Log format: text or json" default:"text"`
	Width     int    `doc:"Initial map viewport width" default:"730"`
	Height    int    `doc:"Initial map viewport height" default:"800"`
	NoDB      bool   `doc:"Disable the DuckDB mirror"`
}

func setup(opts *Options) *style.Catalog {
	if err := logger.Setup(opts.LogLevel, opts.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	catalog, err := style.Load(opts.Styles)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Styles).Msg("Failed to load style rules")
	}
	return catalog
}

func newServer(opts *Options) *server.Server {
	srv, err := server.New(server.Config{
		Host:      opts.Host,
		Port:      fmt.Sprintf("%d", opts.Port),
		Width:     opts.Width,
		Height:    opts.Height,
		Styles:    setup(opts),
		DisableDB: opts.NoDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server
		httpServer := &http.Server{Addr: fmt.Sprintf("%s:%d", opts.Host, opts.Port)}

		hooks.OnStart(func() {
			srv = newServer(opts)
			httpServer.Handler = srv

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-geojson server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Println()
			fmt.Printf("  Editor:  %s/editor\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("Server failed")
			}
		})

		hooks.OnStop(func() {
			httpServer.Close()
			if srv != nil {
				if err := srv.Close(); err != nil {
					log.Error().Err(err).Msg("Shutdown")
				}
			}
		})
	})

	cli.Root().Use = "geo"
	cli.Root().Short = "GeoJSON editor: load documents by file, drop or text and display them styled"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.NoDB = true
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// styles subcommand: print the effective rule set
	stylesCmd := &cobra.Command{
		Use:   "styles",
		Short: "Print the effective style rules as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			output, err := yaml.Marshal(setup(opts))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling styles: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(output))
		}),
	}
	cli.Root().AddCommand(stylesCmd)

	// ingest subcommand: run one file through the file-picker path headless
	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Validate a GeoJSON file the way the editor loads it",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			session := service.NewSession(setup(opts), nil, nil)

			done, err := session.FileSelected(service.LocalFile(args[0]))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			res := <-done
			if !res.OK() {
				fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
				os.Exit(1)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(map[string]any{
				"file":     args[0],
				"features": len(res.Collection.Features),
				"kinds":    geometry.Summary(res.Collection),
				"summary":  service.Summaries(res.Collection),
			})
		}),
	}
	cli.Root().AddCommand(ingestCmd)

	cli.Run()
}
