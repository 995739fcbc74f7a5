package eeprom

import (
	"github.com/ValentinKolb/eeKV/cmd/util"
	"github.com/ValentinKolb/eeKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcEEPROM client.RPCEEPROM

	// EEPROMCommands represents the eeprom command group
	EEPROMCommands = &cobra.Command{
		Use:                "eeprom",
		Short:              "Access the emulated EEPROM of an eeprom shard",
		PersistentPreRunE:  setupEEPROMClient,
		PersistentPostRunE: closeEEPROMClient,
	}
)

func init() {
	util.SetupRPCClientFlags(EEPROMCommands.PersistentFlags())

	EEPROMCommands.PersistentFlags().Uint64("shard", 200, util.WrapString("ID of the eeprom shard to connect to"))
	EEPROMCommands.PersistentFlags().Bool("hex", false, util.WrapString("Data is given and printed as hex strings"))

	EEPROMCommands.AddCommand(readCmd)
	EEPROMCommands.AddCommand(writeCmd)
	EEPROMCommands.AddCommand(eraseCmd)
	EEPROMCommands.AddCommand(numWritesCmd)
	EEPROMCommands.AddCommand(rowsCmd)
	EEPROMCommands.AddCommand(infoCmd)
}

func setupEEPROMClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}
	rpcEEPROM, err = client.NewRPCEEPROM(util.GetShardID(), *util.GetClientConfig(), t, s)
	return err
}

func closeEEPROMClient(*cobra.Command, []string) error {
	if rpcEEPROM == nil {
		return nil
	}
	return rpcEEPROM.Close()
}
