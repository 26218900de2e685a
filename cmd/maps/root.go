package maps

import (
	"github.com/ValentinKolb/dGrid/cmd/util"
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/ValentinKolb/dGrid/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcMap store.IMap

	// MapCommands represents the map command group
	MapCommands = &cobra.Command{
		Use:               "map",
		Short:             "Perform operations on a distributed map",
		PersistentPreRunE: setupMapClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the map command
	util.SetupRPCClientFlags(MapCommands)

	// Set default shard ID for map operations (different from lock default)
	MapCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))
	MapCommands.PersistentFlags().String("name", "default", util.WrapString("Name of the map"))

	// Add subcommands
	MapCommands.AddCommand(putCmd)
	MapCommands.AddCommand(putIfAbsentCmd)
	MapCommands.AddCommand(getCmd)
	MapCommands.AddCommand(hasCmd)
	MapCommands.AddCommand(removeCmd)
	MapCommands.AddCommand(sizeCmd)
	MapCommands.AddCommand(clearCmd)
	MapCommands.AddCommand(perfTestCmd)
}

// setupMapClient initializes the RPC map client
func setupMapClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcStore, err := client.NewRPCStore(
		shardId,
		*config,
		t,
		s,
	)
	if err != nil {
		return err
	}

	rpcMap = rpcStore.GetMap(viper.GetString("name"))
	return nil
}
