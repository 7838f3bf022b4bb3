package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	     _ _
	  __| (_) __ _ _ __ _   _ ___  ___ ___  _ __   ___
	 / _' | |/ _' | '__| | | / __|/ __/ _ \| '_ \ / _ \
	| (_| | | (_| | |  | |_| \__ \ (_| (_) | |_) |  __/
	 \__,_|_|\__,_|_|   \__, |___/\___\___/| .__/ \___|
	                    |___/              |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "diaryscope",
	Short: "Scrape a nutrition diary off an Android device into a local archive.",
	Long: LOGO + `diaryscope drives the diary application through an Appium server, reads every
food logged on the requested dates with its full nutrient detail, and keeps the
result in a JSON archive that can be mirrored into SQLite.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Interrupting cancels the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.diaryscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("archive", "", "Archive file (default is $HOME/.config/diaryscope/diary.mem)")
	viper.BindPFlag("archive.path", rootCmd.PersistentFlags().Lookup("archive"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Set defaults before reading, so a freshly created config file carries them.
	viper.SetDefault("appium.url", "http://127.0.0.1:4723")
	viper.SetDefault("appium.retries", 3)
	viper.SetDefault("appium.platform", "Android")
	viper.SetDefault("appium.automation", "UiAutomator2")
	viper.SetDefault("appium.device", "")
	viper.SetDefault("appium.package", "com.myfitnesspal.android")
	viper.SetDefault("appium.activity", "")
	viper.SetDefault("appium.noreset", true)
	viper.SetDefault("appium.extra", []string{})
	viper.SetDefault("timeouts.interaction", "10s")
	viper.SetDefault("timeouts.settle", "1500ms")
	viper.SetDefault("archive.path", "")
	viper.SetDefault("db.path", "")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".diaryscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("diaryscope")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".diaryscope.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
