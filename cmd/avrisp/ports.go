package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}

		for _, port := range ports {
			if port.IsUSB {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tUSB %s:%s %s\n", port.Name, port.VID, port.PID, port.SerialNumber)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), port.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
