package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newDemoCommand(baseLogger pslog.Logger) *cobra.Command {
	var nodes, replication int
	var key, value string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run one transaction (tx_start/tx_write/tx_commit) against an in-process ring and print the decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			c := buildCluster(ctx, nodes, replication, baseLogger)
			if err := c.client.TxStart(""); err != nil {
				return err
			}
			txID, _ := c.client.TxID()
			if err := c.client.TxWrite(key, []byte(value)); err != nil {
				return err
			}
			decision, err := c.client.TxCommit(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("tx %s on key %q decided %s\n", txID, key, decision)
			return nil
		},
	}
	cmd.Flags().IntVar(&nodes, "nodes", 3, "number of ring nodes to simulate")
	cmd.Flags().IntVar(&replication, "replication", 3, "replication factor")
	cmd.Flags().StringVar(&key, "key", "demo-key", "key to write inside the transaction")
	cmd.Flags().StringVar(&value, "value", "demo-value", "value to write inside the transaction")
	return cmd
}
