package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/farelProject/v-technology/internal/config"
	"github.com/farelProject/v-technology/internal/model"
	natsclient "github.com/farelProject/v-technology/internal/nats"
	"github.com/farelProject/v-technology/pkg/logger"
)

func newEventsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the event stream",
	}
	cmd.AddCommand(newEventsTailCmd(cfg))
	return cmd
}

func newEventsTailCmd(cfg *config.Config) *cobra.Command {
	var opts struct {
		Types     []string
		FromStart bool
	}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events as they are published",
		Long:  "Print events as they are published. Password reset events carry the reset token, which lets operators without a mailer hand it to the user.",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			if cfg.NATSURL == "" {
				cobra.CheckErr(fmt.Errorf("NATS_URL is not set"))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logger.NewNop()
			natsCfg := natsclient.NewConfig(cfg, natsclient.CLIClientName)
			natsCfg.Timeout = 5 * time.Second
			client, err := natsclient.Connect(ctx, natsCfg, log)
			cobra.CheckErr(err)
			defer client.Close()

			types := make([]model.EventType, 0, len(opts.Types))
			for _, t := range opts.Types {
				types = append(types, model.EventType(t))
			}

			titleColor.Printf("TAILING %s\n", natsclient.StreamName)
			err = natsclient.NewStreamManager(client, log).Tail(ctx, types, opts.FromStart, printEvent)
			cobra.CheckErr(err)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Types, "type", "t", nil, "Only show these event types")
	cmd.Flags().BoolVar(&opts.FromStart, "from-start", false, "Replay the stream from its first event")
	return cmd
}

func printEvent(e *model.ChatEvent) {
	infoColor.Printf("#%d %s %s", e.Sequence, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type)
	if e.UserID != "" {
		fmt.Printf(" user=%s", e.UserID)
	}
	if e.SessionID != "" {
		fmt.Printf(" session=%s", e.SessionID)
	}
	fmt.Println()

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, k+"="+e.Metadata[k])
	}
	if len(parts) > 0 {
		fmt.Println("    " + strings.Join(parts, " "))
	}
}
