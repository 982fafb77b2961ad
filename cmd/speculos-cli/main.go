package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"speculos-go/speculos"
)

// Config holds all the configuration values from command line arguments
type Config struct {
	Model string `json:"model"`
	Port  int    `json:"port"`
	Bin   string `json:"bin"`
	Debug bool   `json:"debug"`

	Hold time.Duration `json:"hold"`
}

var config = &Config{}

var rootCmd = &cobra.Command{
	Use:   "speculos-cli",
	Short: "Speculos harness - drive the Ledger emulator from the command line",
	Long: `speculos-cli launches the Speculos emulator for a device app and drives
it over the local HTTP API: send APDU commands, install automation rules.`,
	Example: `  # List supported device models
  speculos-cli models

  # Send an APDU to an app running on an emulated Nano S
  speculos-cli apdu bin/app.elf e0010000

  # Run on a different model and port
  speculos-cli -m stax -p 5001 apdu bin/app.elf e0010000

  # Install automation rules from a file and keep the emulator up
  speculos-cli automation --hold 30s bin/app.elf rules.json`,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported device models",
	Run: func(cmd *cobra.Command, args []string) {
		for _, slug := range lo.Map(speculos.AllModels(), func(m speculos.DeviceModel, _ int) string {
			return m.Slug()
		}) {
			fmt.Println(slug)
		}
	},
}

var apduCmd = &cobra.Command{
	Use:   "apdu <app> <hex-apdu>...",
	Short: "Launch the emulator and send APDU commands",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		commands := make([][]byte, 0, len(args)-1)
		for _, arg := range args[1:] {
			data, err := hex.DecodeString(arg)
			if err != nil {
				return fmt.Errorf("invalid apdu %q: %w", arg, err)
			}
			commands = append(commands, data)
		}

		client, err := newClient(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		ctx := context.Background()
		for _, command := range commands {
			resp, err := client.Apdu(ctx, command)
			if err != nil {
				return err
			}
			fmt.Printf("%x -> %x\n", command, resp)
		}
		return nil
	},
}

var automationCmd = &cobra.Command{
	Use:   "automation <app> <rules.json>",
	Short: "Launch the emulator and install automation rules",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		rules, err := speculos.LoadRules(raw)
		if err != nil {
			return err
		}
		if encoded, err := json.Marshal(rules); err == nil {
			log.Debug().Str("rules", string(encoded)).Msg("loaded rules")
		}

		client, err := newClient(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Automation(context.Background(), rules); err != nil {
			return err
		}
		log.Info().Int("rules", len(rules)).Msg("automation installed")

		if config.Hold > 0 {
			log.Info().Dur("hold", config.Hold).Msg("holding emulator")
			time.Sleep(config.Hold)
		}
		return nil
	},
}

func newClient(app string) (*speculos.Client, error) {
	model, err := speculos.ParseDeviceModel(config.Model)
	if err != nil {
		return nil, err
	}

	var opts []speculos.Option
	if config.Bin != "" {
		opts = append(opts, speculos.WithBinary(config.Bin))
	}
	return speculos.New(model, config.Port, app, opts...)
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config.Model, "model", "m",
		getEnv("SPECULOS_MODEL", "nanos"),
		"Device model to emulate")

	rootCmd.PersistentFlags().IntVarP(&config.Port, "port", "p",
		getEnvInt("SPECULOS_PORT", 5000),
		"API port for the emulator")

	rootCmd.PersistentFlags().StringVar(&config.Bin, "bin", "",
		"Path to the speculos executable (default: speculos from PATH or SPECULOS_BIN)")

	rootCmd.PersistentFlags().BoolVar(&config.Debug, "debug", false,
		"Enable debug logging")

	automationCmd.Flags().DurationVar(&config.Hold, "hold", 0,
		"Keep the emulator running for the given duration after installing rules")

	rootCmd.AddCommand(modelsCmd, apduCmd, automationCmd)
}

func main() {
	cobra.OnInitialize(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if config.Debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	})

	cobra.CheckErr(rootCmd.Execute())
}
