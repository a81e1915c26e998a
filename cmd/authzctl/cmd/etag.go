package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lambdakit/go-authz/caching"
)

func newETagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "etag [file]",
		Short: "Print the weak ETag of a file, or of stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), caching.WeakETag(data))
			return err
		},
	}
}
