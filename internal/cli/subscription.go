package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/intake/internal/control"
)

var (
	cancelReason    string
	cancelImmediate bool
)

var subscriptionCmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Inspect and manage the organization's subscription",
}

var trialCmd = &cobra.Command{
	Use:   "trial",
	Short: "Show the trial status",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to load trial status", printed(func(ctx context.Context, app *control.App) (any, error) {
			return app.Subscriptions.TrialStatus(ctx)
		}))
	},
}

var subscriptionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current subscription",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to load subscription", printed(func(ctx context.Context, app *control.App) (any, error) {
			return app.Subscriptions.Details(ctx)
		}))
	},
}

var subscriptionCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the subscription",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to cancel subscription", printed(func(ctx context.Context, app *control.App) (any, error) {
			return app.Subscriptions.Cancel(ctx, cancelReason, cancelImmediate)
		}))
	},
}

var subscriptionReactivateCmd = &cobra.Command{
	Use:   "reactivate",
	Short: "Undo a pending cancellation",
	Run: func(cmd *cobra.Command, args []string) {
		withApp("Failed to reactivate subscription", printed(func(ctx context.Context, app *control.App) (any, error) {
			return app.Subscriptions.Reactivate(ctx)
		}))
	},
}

var tourCmd = &cobra.Command{
	Use:   "tour [name]",
	Short: "Report whether a guided tour should be shown, or mark it completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		complete, _ := cmd.Flags().GetBool("complete")
		withApp("Failed to update tour", func(ctx context.Context, app *control.App) error {
			if complete {
				return app.Tours.MarkCompleted(ctx, args[0])
			}
			fmt.Println(app.Tours.ShouldShow(ctx, args[0]))
			return nil
		})
	},
}

// printed turns a fetch into an action that prints the result as JSON.
func printed(fn func(ctx context.Context, app *control.App) (any, error)) action {
	return func(ctx context.Context, app *control.App) error {
		v, err := fn(ctx, app)
		if err != nil {
			return err
		}
		printJSON(v)
		return nil
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func init() {
	subscriptionCancelCmd.Flags().StringVar(&cancelReason, "reason", "", "cancellation reason")
	subscriptionCancelCmd.Flags().BoolVar(&cancelImmediate, "immediately", false, "cancel now instead of at period end")
	tourCmd.Flags().Bool("complete", false, "mark the tour completed")

	subscriptionCmd.AddCommand(trialCmd, subscriptionShowCmd, subscriptionCancelCmd, subscriptionReactivateCmd)
	rootCmd.AddCommand(subscriptionCmd, tourCmd)
}
