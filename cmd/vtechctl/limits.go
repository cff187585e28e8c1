package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/farelProject/v-technology/internal/config"
	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/quota"
)

func newLimitsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Manage daily chat limits",
	}
	cmd.AddCommand(newLimitsResetCmd(cfg))
	return cmd
}

func newLimitsResetCmd(cfg *config.Config) *cobra.Command {
	var opts struct {
		Limit int
	}

	cmd := &cobra.Command{
		Use:   "reset <email>",
		Short: "Reset a user's chat count for today",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			st := openStore(cfg)
			defer st.Close()

			user, err := st.GetUserByEmail(ctx, args[0])
			cobra.CheckErr(err)

			limit, err := st.UpdateChatLimit(ctx, user.ID, func(l *model.ChatLimit) error {
				daily := l.Limit
				if opts.Limit > 0 {
					daily = opts.Limit
				}
				*l = quota.New(daily, time.Now())
				return nil
			})
			cobra.CheckErr(err)
			okColor.Printf("%s: %d/%d\n", user.Email, limit.Count, limit.Limit)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "Also change the daily limit")
	return cmd
}
