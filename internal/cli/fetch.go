package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/vietddude/intake/internal/control"
	"github.com/vietddude/intake/internal/fetch"
)

var (
	fetchData   string
	uploadField string
	uploadForm  map[string]string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [method] [path]",
	Short: "Send an authenticated request and print the response body",
	Args:  cobra.ExactArgs(2),
	Run:   runFetch,
}

var uploadCmd = &cobra.Command{
	Use:   "upload [path] [file]",
	Short: "Upload a file as multipart form data",
	Args:  cobra.ExactArgs(2),
	Run:   runUpload,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchData, "data", "d", "", "JSON request body")
	uploadCmd.Flags().StringVar(&uploadField, "field", "file", "form field name for the file")
	uploadCmd.Flags().StringToStringVar(&uploadForm, "form", nil, "extra form fields (key=value)")
	rootCmd.AddCommand(fetchCmd, uploadCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	req := fetch.NewRequest(strings.ToUpper(args[0]), args[1])
	if fetchData != "" {
		req.Body = []byte(fetchData)
	}

	withApp("Request failed", func(ctx context.Context, app *control.App) error {
		resp, err := app.Client.Do(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(string(resp.Body))
		return nil
	})
}

func runUpload(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", args[1], err)
		os.Exit(1)
	}

	file := fetch.File{
		Field:       uploadField,
		Name:        filepath.Base(args[1]),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
	withApp("Upload failed", func(ctx context.Context, app *control.App) error {
		resp, err := app.Client.Upload(ctx, args[0], uploadForm, file)
		if err != nil {
			return err
		}
		fmt.Println(string(resp.Body))
		return nil
	})
}
