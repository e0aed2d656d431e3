/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"os"
	"path/filepath"

	devConfig "github.com/Daskott/safenest/dev/config"
	"github.com/Daskott/safenest/server"
	"github.com/Daskott/safenest/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverConfigFile string

func createServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start a safenest server",
		Long: `The safenest server stores family locations, checks them against
safe zones, raises alerts & relays live location updates over a websocket`,
		Run: func(cmd *cobra.Command, args []string) {
			config, err := serverConfig()
			cobra.CheckErr(err)

			server.Start(config, isDevEnv)
		},
	}

	cmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "config file for the server")

	return cmd
}

func serverConfig() (*viper.Viper, error) {
	config := viper.New()
	setServerDefaults(config)

	if isDevEnv {
		configFilePath, err := devConfigFilePath()
		if err != nil {
			return nil, err
		}

		err = utils.WriteFileIfNotExist(configFilePath, []byte(devConfig.SERVER_YML))
		if err != nil {
			return nil, err
		}
		serverConfigFile = configFilePath
	}

	if serverConfigFile == "" {
		return nil, formattedError("a config file is required, use --sconfig <file> or --dev")
	}

	config.SetConfigFile(serverConfigFile)
	config.AutomaticEnv() // read in environment variables that match

	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("error reading server config file: %v", err)
	}

	return config, nil
}

func setServerDefaults(config *viper.Viper) {
	config.SetDefault("safenest.cron.timeZone", "UTC")
	config.SetDefault("safenest.cron.insightsSchedule", "0 6 * * *")
	config.SetDefault("safenest.listener.port", 3000)
	config.SetDefault("safenest.listener.requestTimeout", 10)
	config.SetDefault("safenest.workers.concurrency", 4)
	config.SetDefault("database.type", "sqlite")
	config.SetDefault("geofence.triggerMode", "edge")
}

func devConfigFilePath() (string, error) {
	configDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "dev", "config", "server.yml"), nil
}
