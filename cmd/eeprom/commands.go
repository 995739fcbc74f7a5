package eeprom

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/eeKV/cmd/util"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type readResult struct {
	Addr    uint32 `json:"addr" yaml:"addr"`
	Data    string `json:"data" yaml:"data"`
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// recovered reports whether err still comes with usable data
func recovered(err error) bool {
	var se *store.Error
	return errors.As(err, &se) && se.Code == store.RetCRedundantCopyUsed
}

var (
	readCmd = &cobra.Command{
		Use:   "read [addr] [length]",
		Short: "Reads bytes from the emulated EEPROM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := util.ParseUint32("addr", args[0])
			if err != nil {
				return err
			}
			n, err := util.ParseUint32("length", args[1])
			if err != nil {
				return err
			}
			data, err := rpcEEPROM.Read(addr, n)
			res := readResult{Addr: addr}
			switch {
			case err == nil:
			case recovered(err):
				res.Warning = err.Error()
			default:
				return err
			}
			if viper.GetBool("hex") {
				res.Data = hex.EncodeToString(data)
			} else {
				res.Data = string(data)
			}
			return util.Print(os.Stdout, res, func(w io.Writer) {
				if res.Warning != "" {
					fmt.Fprintf(w, "warning: %s\n", res.Warning)
				}
				if viper.GetBool("hex") {
					fmt.Fprintln(w, res.Data)
					return
				}
				fmt.Fprint(w, hex.Dump(data))
			})
		},
	}
	writeCmd = &cobra.Command{
		Use:   "write [addr] [data]",
		Short: "Writes bytes to the emulated EEPROM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := util.ParseUint32("addr", args[0])
			if err != nil {
				return err
			}
			data, err := util.ParseValue(args[1], viper.GetBool("hex"))
			if err != nil {
				return err
			}
			if err := rpcEEPROM.Write(addr, data); err != nil {
				return err
			}
			fmt.Printf("wrote %d bytes at %d\n", len(data), addr)
			return nil
		},
	}
	eraseCmd = &cobra.Command{
		Use:   "erase",
		Short: "Erases the emulated EEPROM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcEEPROM.Erase(); err != nil {
				return err
			}
			fmt.Println("erased successfully")
			return nil
		},
	}
	numWritesCmd = &cobra.Command{
		Use:   "num-writes",
		Short: "Prints the number of row writes since the flash was blank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcEEPROM.NumWrites()
			if err != nil {
				return err
			}
			return util.Print(os.Stdout, map[string]uint32{"num_writes": n}, func(w io.Writer) {
				fmt.Fprintln(w, n)
			})
		},
	}
	rowsCmd = &cobra.Command{
		Use:   "rows",
		Short: "Shows the header of every physical row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := rpcEEPROM.Rows()
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []emeeprom.RowInfo{}
			}
			return util.Print(os.Stdout, rows, func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintln(w, "no row headers (simple mode)")
					return
				}
				fmt.Fprintf(w, "%-6s%-8s%-15s%-10s%-10s%s\n", "ROW", "MIRROR", "STATE", "SEQ", "ADDR", "LENGTH")
				for _, r := range rows {
					fmt.Fprintf(w, "%-6d%-8t%-15s%-10d%-10d%d\n", r.Index, r.Mirror, r.State, r.Seq, r.Addr, r.Length)
				}
			})
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Shows the geometry of the emulated EEPROM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcEEPROM.Info()
			if err != nil {
				return err
			}
			return util.Print(os.Stdout, info, func(w io.Writer) {
				fmt.Fprintf(w, "eeprom size:    %d bytes\n", info.Config.EepromSize)
				fmt.Fprintf(w, "row size:       %d bytes\n", info.RowSize)
				fmt.Fprintf(w, "logical rows:   %d (%d bytes each)\n", info.NumberOfRows, info.BytesPerRow)
				fmt.Fprintf(w, "physical rows:  %d\n", info.PhysicalRows)
				fmt.Fprintf(w, "flash used:     %d bytes\n", info.PhysicalBytes)
				fmt.Fprintf(w, "simple mode:    %t\n", info.Config.SimpleMode)
				fmt.Fprintf(w, "wear leveling:  %d\n", info.Config.WearLevelingFactor)
				fmt.Fprintf(w, "redundant copy: %t\n", info.Config.RedundantCopy)
				if !info.Config.SimpleMode {
					fmt.Fprintf(w, "last row:       %d\n", info.LastRow)
					fmt.Fprintf(w, "writes:         %d\n", info.NumWrites)
				}
			})
		},
	}
)
