// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/store"
)

var sendCmd = &cobra.Command{
	Use:   "send <content>",
	Short: "Encrypt and send a message",
	Long: `Encrypt the length of the message under FHE and record it on the
message board together with its cleartext label.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")
		return withNode(cmd.Context(), func(n *node) error {
			if err := n.controller.Initialize(cmd.Context()); err != nil {
				return err
			}
			id, err := n.controller.Send(cmd.Context(), content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Message sent: %s (value %d)\n", id, whisper.PlaintextValue(content))
			return nil
		})
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <id>",
	Short: "Publicly decrypt a message and verify it on-chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(cmd.Context(), func(n *node) error {
			if err := n.controller.Reload(cmd.Context()); err != nil {
				return err
			}
			d, err := n.controller.RequestDecryption(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], d)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List messages on the board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		term, err := cmd.Flags().GetString("search")
		if err != nil {
			return err
		}
		return withNode(cmd.Context(), func(n *node) error {
			if err := n.controller.Reload(cmd.Context()); err != nil {
				return err
			}
			return printMessages(cmd.OutOrStdout(), n.controller.Messages(term))
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show message counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withNode(cmd.Context(), func(n *node) error {
			if err := n.controller.Reload(cmd.Context()); err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), n.controller.Stats(time.Now()))
			return nil
		})
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the contract answers calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withNode(cmd.Context(), func(n *node) error {
			ok, err := n.controller.Probe(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: available=%t\n", n.gateway.Address(), ok)
			return nil
		})
	},
}

func init() {
	listCmd.Flags().StringP("search", "s", "", "Only list messages whose content or sender contains this term")
}

func printMessages(w io.Writer, records []*whisper.MessageRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSENDER\tTIME\tVALUE\tDECRYPTION\tCONTENT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.Sender.Hex(),
			time.Unix(int64(r.Timestamp), 0).UTC().Format(time.RFC3339),
			r.EncryptedValue,
			r.Decryption,
			r.Content,
		)
	}
	return tw.Flush()
}

func printStats(w io.Writer, s store.Stats) {
	fmt.Fprintf(w, "total: %d\nverified: %d\ntoday: %d\n", s.Total, s.Verified, s.Today)
}
