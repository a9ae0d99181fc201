package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/intake/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the backend and show the client's session state",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	withApp("Failed to read status", printStatus)
}

func printStatus(ctx context.Context, app *control.App) error {
	online := app.Connection.CheckHealth(ctx)
	app.Connection.SetOnline(online)

	org, _ := app.Store.Organization(ctx)
	retry := app.Executor.Config()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "FIELD\tVALUE")
	_, _ = fmt.Fprintf(w, "backend\t%s\n", app.Config().BaseURL())
	_, _ = fmt.Fprintf(w, "online\t%t\n", online)
	_, _ = fmt.Fprintf(w, "organization\t%s\n", org)
	_, _ = fmt.Fprintf(w, "user\t%s\n", app.Store.Email(ctx))
	_, _ = fmt.Fprintf(w, "signed in\t%t\n", app.Store.Token(ctx) != "")
	_, _ = fmt.Fprintf(w, "max retries\t%d\n", retry.MaxRetries)
	_, _ = fmt.Fprintf(w, "api timeout\t%s\n", retry.APITimeout)
	_, _ = fmt.Fprintf(w, "durable storage\t%t\n", app.RequireDurable() == nil)
	return w.Flush()
}
