/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"log"
	"strings"

	devconfig "github.com/beaconhq/beacon/dev/config"
	"github.com/beaconhq/beacon/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a beacon server",
	Long: `The beacon server houses the emergency-contact registry, the
location-request workflow & the automatic SOS escalation sweep`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(serverConfig(), isDevEnv)
	},
}

var serverCongFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	// TODO: Make this required, when not in dev mode
	serverCmd.Flags().StringVar(&serverCongFile, "sconfig", "", "Config for server")
}

func serverConfig() *viper.Viper {
	config = viper.New()
	config.AutomaticEnv() // read in environment variables that match

	// Dev mode runs off the embedded config, no file required
	if isDevEnv {
		config.SetConfigType("yaml")
		if err := config.ReadConfig(strings.NewReader(devconfig.SERVER_YML)); err != nil {
			log.Panic(fmt.Sprintf("error reading embedded dev server config: %v", err))
		}
		return config
	}

	config.SetConfigFile(serverCongFile)

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		log.Panic(fmt.Sprintf("error reading server config file: %v", err))
	}

	return config
}
