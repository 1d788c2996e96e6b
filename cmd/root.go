package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anidataset/anidataset/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `              _     _       _                 _
   __ _ _ __ (_) __| | __ _| |_ __ _ ___  ___| |_
  / _' | '_ \| |/ _' |/ _' | __/ _' / __|/ _ \ __|
 | (_| | | | | | (_| | (_| | || (_| \__ \  __/ |_
  \__,_|_| |_|_|\__,_|\__,_|\__\__,_|___/\___|\__|

`
)

// Exit codes shared by every command.
const (
	exitOK       = 0
	exitFailure  = 1
	exitDegraded = 2
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anidataset",
	Short: "Builds the complete AniList anime dataset and publishes it to Kaggle.",
	Long: LOGO + `anidataset pages through the AniList GraphQL API in year windows to get past
its 5,000 result cap, flattens every record into one table and writes it as
CSV, XLSX and gob. The files can then be published as a Kaggle dataset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			utils.Log.Error(ee.err)
		}
		os.Exit(ee.code)
	}
	fmt.Println(err)
	os.Exit(exitFailure)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.anidataset.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

func setDefaults() {
	viper.SetDefault("anilist.endpoint", "https://graphql.anilist.co")
	viper.SetDefault("anilist.requests_per_minute", 60)
	viper.SetDefault("fetch.floor_year", 1940)
	viper.SetDefault("fetch.max_attempts", 5)
	viper.SetDefault("fetch.overlap_years", 0)
	viper.SetDefault("export.outdir", filepath.Join("data", "raw"))
	viper.SetDefault("kaggle.metadata", filepath.Join("data", "kaggle", "kaggle_dataset_metadata.json"))
	viper.SetDefault("kaggle.description", filepath.Join("data", "kaggle", "kaggle_dataset_description.md"))
	viper.SetDefault("db.path", "anidataset.sqlite")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// KAGGLE_USERNAME / KAGGLE_KEY and ANIDATASET_* may live in .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading .env: %s\n", err)
	}

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".anidataset")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("anidataset")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".anidataset.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s\n", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// setting returns the flag value when it was given, else the config value.
func setting(cmd *cobra.Command, flag, key string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return f.Value.String()
	}
	return viper.GetString(key)
}

func intSetting(cmd *cobra.Command, flag, key string) int {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	return viper.GetInt(key)
}
