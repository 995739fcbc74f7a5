package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/eeKV/cmd/eeprom"
	"github.com/ValentinKolb/eeKV/cmd/kv"
	"github.com/ValentinKolb/eeKV/cmd/serve"
	"github.com/ValentinKolb/eeKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "eekv",
		Short: "object store on emulated EEPROM",
		Long: fmt.Sprintf(`eeKV (v%s)

A small object store on top of an emulated EEPROM with wear leveling and
redundant copies, served over RPC and optionally replicated with RAFT.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of eeKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("eeKV v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(eeprom.EEPROMCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
