package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/intake/internal/control"
	"github.com/vietddude/intake/internal/credential"
)

var login credential.Login

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Record the credentials of a signed-in user",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to record login", persistent(recordLogin(login)))
		fmt.Println("signed in")
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear tokens, cookies and the organization",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to log out", persistent(func(ctx context.Context, app *control.App) error {
			return app.Logout(ctx)
		}))
		fmt.Println("signed out")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe every stored credential from both storage tiers",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to reset storage", persistent(func(ctx context.Context, app *control.App) error {
			return app.Reset(ctx)
		}))
		fmt.Println("storage cleared")
	},
}

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Inspect or change the current organization",
}

var orgGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current organization",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to read organization", func(ctx context.Context, app *control.App) error {
			if org, ok := app.Store.Organization(ctx); ok {
				fmt.Println(org)
			}
			return nil
		})
	},
}

var orgSetCmd = &cobra.Command{
	Use:   "set [organization]",
	Short: "Set the organization for this user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to set organization", persistent(setOrganization(args[0])))
	},
}

var orgClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the organization",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to clear organization", persistent(func(ctx context.Context, app *control.App) error {
			return app.Store.ClearOrganization(ctx)
		}))
	},
}

func recordLogin(l credential.Login) action {
	return func(ctx context.Context, app *control.App) error {
		return app.Login(ctx, l)
	}
}

// setOrganization writes the organization through the login path so it
// lands in the durable tier, which is the only one that outlives the
// command.
func setOrganization(org string) action {
	return func(ctx context.Context, app *control.App) error {
		return app.Store.SetLogin(ctx, credential.Login{Organization: org})
	}
}

func init() {
	loginCmd.Flags().StringVar(&login.Token, "token", "", "bearer token")
	loginCmd.Flags().StringVar(&login.RefreshToken, "refresh-token", "", "refresh token")
	loginCmd.Flags().StringVar(&login.Email, "email", "", "user email")
	loginCmd.Flags().StringVar(&login.OrgID, "org-id", "", "current organization id")
	loginCmd.Flags().StringVar(&login.Organization, "organization", "", "organization database name")
	_ = loginCmd.MarkFlagRequired("token")

	orgCmd.AddCommand(orgGetCmd, orgSetCmd, orgClearCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, resetCmd, orgCmd)
}
