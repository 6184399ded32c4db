// Command yapyapctl is a Cobra-based CLI client for a running node's
// control plane.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yapyap/node/internal/controlclient"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "yapyapctl",
		Short: "control-plane CLI client for a yapyap node",
	}
	root.PersistentFlags().StringVarP(&serverAddr, "server", "s", "http://localhost:3000", "node control-plane address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		healthCmd(),
		infoCmd(),
		peersCmd(),
		dialCmd(),
		hangupCmd(),
		sendCmd(),
		inboxCmd(),
		outboxCmd(),
		contactsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *controlclient.Client {
	return controlclient.New(serverAddr, timeout)
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check node health",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().Health(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(out)
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show this node's identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().NodeInfo(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(out)
		},
	}
}

func peersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List known peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().ListPeers(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(out)
		},
	}
}

func dialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dial <peerId> <address>",
		Short: "Dial a peer at address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().DialPeer(context.Background(), args[0], args[1])
		},
	}
}

func hangupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hangup <peerId>",
		Short: "Hang up a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().HangUpPeer(context.Background(), args[0])
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peerId> <payload>",
		Short: "Send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().SendMessage(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			return prettyPrint(out)
		},
	}
}

func inboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Show received messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().Inbox(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(out)
		},
	}
}

func outboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "Show undelivered outbound messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().Outbox(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(out)
		},
	}
}

func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the contact book",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List contacts",
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := newClient().ListContacts(context.Background())
				if err != nil {
					return err
				}
				return prettyPrint(out)
			},
		},
		&cobra.Command{
			Use:   "add <peerId> <alias>",
			Short: "Add or update a contact",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := newClient().UpsertContact(context.Background(), args[0], args[1])
				if err != nil {
					return err
				}
				return prettyPrint(out)
			},
		},
		&cobra.Command{
			Use:   "remove <peerId>",
			Short: "Remove a contact",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return newClient().DeleteContact(context.Background(), args[0])
			},
		},
	)
	return cmd
}

func prettyPrint(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
