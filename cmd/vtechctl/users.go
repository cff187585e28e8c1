package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/farelProject/v-technology/internal/auth"
	"github.com/farelProject/v-technology/internal/config"
	"github.com/farelProject/v-technology/internal/quota"
	"github.com/farelProject/v-technology/internal/service"
	"github.com/farelProject/v-technology/internal/store"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
)

func newUsersCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUsersListCmd(cfg))
	cmd.AddCommand(newUsersDeleteCmd(cfg))
	cmd.AddCommand(newUsersResetTokenCmd(cfg))
	return cmd
}

// newAuthService builds the account service over the configured store.
// Events are not published from the CLI.
func newAuthService(cfg *config.Config, st store.Store) *service.AuthService {
	local, err := upload.NewLocalUploader(cfg.UploadsDir)
	cobra.CheckErr(err)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
	return service.NewAuthService(st, tokens, local, service.NopPublisher{}, cfg.UserChatLimit, logger.NewNop())
}

func newUsersListCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore(cfg)
			defer st.Close()

			users, err := st.ListUsers(context.Background())
			cobra.CheckErr(err)

			titleColor.Printf("USERS (%d)\n", len(users))
			for _, u := range users {
				infoColor.Printf("%s  %s <%s>\n", u.ID, u.Name, u.Email)
				fmt.Printf("    chats today: %d/%d, resets %s\n",
					u.ChatLimit.Count, u.ChatLimit.Limit, quota.NextReset(u.ChatLimit).Format("2006-01-02 15:04 MST"))
			}
		},
	}
}

func newUsersDeleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <email>",
		Short: "Delete a user with their chat sessions and uploaded images",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			st := openStore(cfg)
			defer st.Close()

			user, err := st.GetUserByEmail(ctx, args[0])
			cobra.CheckErr(err)

			svc := newAuthService(cfg, st)
			cobra.CheckErr(svc.DeleteAccount(ctx, user.ID))
			okColor.Printf("deleted %s (%s)\n", user.Email, user.ID)
		},
	}
}

func newUsersResetTokenCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-token <email>",
		Short: "Issue a password reset token for a user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore(cfg)
			defer st.Close()
			svc := newAuthService(cfg, st)

			token, err := svc.RequestPasswordReset(context.Background(), args[0])
			cobra.CheckErr(err)
			if token == "" {
				warnColor.Printf("no user with email %s\n", args[0])
				return
			}
			okColor.Printf("reset token (valid for %s):\n", auth.ResetTokenTTL)
			fmt.Println(token)
		},
	}
}
