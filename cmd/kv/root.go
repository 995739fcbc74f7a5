package kv

import (
	"github.com/ValentinKolb/eeKV/cmd/util"
	"github.com/ValentinKolb/eeKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore client.RPCStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform object store operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands.PersistentFlags())

	KeyValueCommands.PersistentFlags().Uint64("shard", 100, util.WrapString("ID of the object shard to connect to"))
	KeyValueCommands.PersistentFlags().Bool("hex", false, util.WrapString("Values are given and printed as hex strings"))

	// Add subcommands
	KeyValueCommands.AddCommand(storeCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(findCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(listCmd)
	KeyValueCommands.AddCommand(formatCmd)
	KeyValueCommands.AddCommand(eraseCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	// Create the KV store client
	rpcStore, err = client.NewRPCStore(util.GetShardID(), *util.GetClientConfig(), t, s)
	return err
}

func closeKVClient(*cobra.Command, []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}
