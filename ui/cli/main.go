// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for shakelib using
// the Cobra library. It defines the root command, the subcommands
// (assemble, augment, contents, stations, maintenance) and the shared
// configuration plumbing.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	log "github.com/charmbracelet/log"
	"github.com/seisio/shakelib/internal/config"
	"github.com/seisio/shakelib/internal/i18n"
	"github.com/seisio/shakelib/internal/logging"
)

var version = "dev"   // set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var cfgFile string
var verbose bool
var showVersionFlag bool

var appConfig config.Config

// setupDefaultServices loads the configuration and initializes i18n and
// logging. It runs before every command.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults := config.Defaults()
	appConfig, err = config.LoadConfig(cmd, defaults, optionalConfigPath)
	// A "file not found" error is expected on first run; the app runs on
	// defaults and persists them for the next invocation.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			log.Warnf("could not write default config file: %v", writeErr)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if appConfig.Database.Type == "" {
		appConfig.Database.Type = defaults["database.type"].(string)
		viper.Set("database.type", appConfig.Database.Type)
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = defaults["database.dsn"].(string)
		viper.Set("database.dsn", appConfig.Database.Dsn)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
		viper.Set("language", appConfig.Language)
	}
	if appConfig.Rupture.MeshDx <= 0 {
		appConfig.Rupture.MeshDx = defaults["rupture.mesh_dx"].(float64)
	}
	if appConfig.GmpeSet == "" {
		appConfig.GmpeSet = defaults["gmpe_set"].(string)
	}

	i18n.Init(appConfig.Language)
	logging.SetDebug(verbose)

	return nil
}

// Execute runs the CLI entrypoint. The main package calls this function
// and handles process exit.
func Execute() error {
	rootCmd := NewRootCmd()
	return rootCmd.Execute()
}

func applyDefaultFlags(cmd *cobra.Command) {
	// NewRootCmd may be called multiple times in tests while the
	// subcommands are package-level. pflag panics on duplicate flag
	// definitions, so check first.
	if cmd.Flags().Lookup("database.type") == nil {
		cmd.Flags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	}
	if cmd.Flags().Lookup("database.dsn") == nil {
		cmd.Flags().String("database.dsn", "./shakelib.db", "Database connection string (DSN)")
	}
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// NewRootCmd creates and configures a new root cobra command. Tests use
// it to build fresh instances.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shakelib",
		Short: "shakelib manages ShakeMap input and output data containers.",
		Long: `shakelib gathers the inputs of a ShakeMap run (event parameters,
fault rupture geometry, observed ground motions) into a single portable
container file, and reads the gridded results back out.

Typical flow: 'assemble' an event directory into a container, 'augment'
it as new data arrives, then inspect it with 'contents' and 'stations'.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Println(compositeVersion())
				os.Exit(0)
			}
			return setupDefaultServices(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `message language ("en")`)
	applyDefaultFlags(cmd)

	if assembleCmd.Flags().Lookup("originator") == nil {
		assembleCmd.Flags().String("originator", "", "Network code recorded in the version history")
	}
	if assembleCmd.Flags().Lookup("comment") == nil {
		assembleCmd.Flags().String("comment", "", "Comment recorded in the version history")
	}
	if stationsCmd.Flags().Lookup("tui") == nil {
		stationsCmd.Flags().Bool("tui", false, "Browse the stations interactively")
	}
	if stationsCmd.Flags().Lookup("macroseismic") == nil {
		stationsCmd.Flags().Bool("macroseismic", false, "List macroseismic observations instead of instrumented ones")
	}
	applyDefaultFlags(maintenanceCmd)

	cmd.AddCommand(assembleCmd)
	cmd.AddCommand(augmentCmd)
	cmd.AddCommand(contentsCmd)
	cmd.AddCommand(stationsCmd)
	cmd.AddCommand(maintenanceCmd)
	cmd.AddCommand(versionCmd)

	return cmd
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		v, c, d := resolveBuildVersion(nil)
		fmt.Println(i18n.T("version.info", v, c, d))
	},
}

// resolveBuildVersion reports the version, commit and build date, falling
// back to Go module build info when the linker did not set them.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		info, _ = debug.ReadBuildInfo()
	}
	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if resolvedCommit == "dev" && len(s.Value) >= 7 {
					resolvedCommit = s.Value[:7]
				}
			case "vcs.time":
				if resolvedDate == "" {
					resolvedDate = s.Value
				}
			}
		}
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
