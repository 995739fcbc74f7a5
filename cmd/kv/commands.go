package kv

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/eeKV/cmd/util"
	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// valueString formats a payload for the text output
func valueString(value []byte) string {
	if viper.GetBool("hex") {
		return hex.EncodeToString(value)
	}
	return string(value)
}

type getResult struct {
	Key   db.Key `json:"key" yaml:"key"`
	Found bool   `json:"found" yaml:"found"`
	Value string `json:"value" yaml:"value"`
}

type findResult struct {
	db.ObjectInfo `yaml:",inline"`
	Found         bool `json:"found" yaml:"found"`
}

var (
	storeCmd = &cobra.Command{
		Use:   "store [key] [value]",
		Short: "Creates or replaces the object with the given key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			value, err := util.ParseValue(args[1], viper.GetBool("hex"))
			if err != nil {
				return err
			}
			if err := rpcStore.Store(key, value); err != nil {
				return err
			}
			fmt.Println("stored successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the payload of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			value, ok, err := rpcStore.Get(key)
			if err != nil {
				return err
			}
			res := getResult{Key: key, Found: ok, Value: valueString(value)}
			return util.Print(os.Stdout, res, func(w io.Writer) {
				fmt.Fprintf(w, "key=0x%02x, found=%v, value=%s\n", uint8(key), ok, res.Value)
			})
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [key]",
		Short: "Locates an object in the log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			info, ok, err := rpcStore.Find(key)
			if err != nil {
				return err
			}
			return util.Print(os.Stdout, findResult{ObjectInfo: info, Found: ok}, func(w io.Writer) {
				if !ok {
					fmt.Fprintf(w, "key=0x%02x, found=false\n", uint8(key))
					return
				}
				fmt.Fprintf(w, "key=0x%02x, found=true, offset=%d, size=%d\n", uint8(key), info.Offset, info.Size)
			})
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			if err := rpcStore.Delete(key); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all objects in log order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := rpcStore.List()
			if err != nil {
				return err
			}
			if objects == nil {
				objects = []db.ObjectInfo{}
			}
			return util.Print(os.Stdout, objects, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s%-10s%s\n", "KEY", "OFFSET", "SIZE")
				for _, o := range objects {
					fmt.Fprintf(w, "0x%02x  %-10d%d\n", uint8(o.Key), o.Offset, o.Size)
				}
			})
		},
	}
	formatCmd = &cobra.Command{
		Use:   "format",
		Short: "Removes all objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Format(); err != nil {
				return err
			}
			fmt.Println("formatted successfully")
			return nil
		},
	}
	eraseCmd = &cobra.Command{
		Use:   "erase",
		Short: "Erases the device, the store is unformatted until the next format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Erase(); err != nil {
				return err
			}
			fmt.Println("erased successfully")
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Shows information about the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.GetDBInfo()
			if err != nil {
				return err
			}
			return util.Print(os.Stdout, info, func(w io.Writer) {
				fmt.Fprintf(w, "type:     %s\n", info.DbType)
				fmt.Fprintf(w, "size:     %d bytes\n", info.SizeBytes)
				fmt.Fprintf(w, "used:     %d bytes\n", info.UsedBytes)
				fmt.Fprintf(w, "objects:  %d\n", info.Objects)
				fmt.Fprintf(w, "features: %v\n", info.SupportedFeatures)
				if info.Metadata != nil {
					fmt.Fprintf(w, "metadata: %v\n", info.Metadata)
				}
			})
		},
	}
)
