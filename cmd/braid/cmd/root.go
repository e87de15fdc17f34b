package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "braid",
	Short: "Braid tracks records and their dependencies alongside your code",
	Long: `Braid keeps tasks, documents and decisions as plain files in your
repository, versioned by the same branches as the code they describe.

Every record is a markdown file with a small metadata header. Braid layers
a dependency graph, an execution sequence and a search index on top, and
reconciles records across branches when histories diverge.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	addRepoDirFlag(rootCmd)
	addLogLevelFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("dir", ".braid")
	viper.SetDefault("loglevel", "none")

	if os.Getenv("BRAID_CONFIG") != "" {
		// Use config file from the flag.
		viper.SetConfigFile(os.Getenv("BRAID_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.braid")
		viper.SetConfigName("braid")
	}

	viper.AutomaticEnv() // read in environment variables that match
	if err := viper.ReadInConfig(); err == nil {
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	}

	if params.root.repoDir == "" {
		params.root.repoDir = viper.GetString("dir")
	}
	if params.root.logLevel == "" {
		params.root.logLevel = viper.GetString("loglevel")
	}
}
