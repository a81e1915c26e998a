package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	errUnauthorized = errors.New("Unauthorized")
	errForbidden    = errors.New("Forbidden")
)

// NewRootCommand returns the authzctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "authzctl",
		Short: "Verify bearer tokens and compute response ETags",
		Long: `authzctl runs the request authorization pipeline outside of a server.
Use it to check a token against a set of trusted issuers or to compute the
weak ETag a JSON response would be served with.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "YAML config file (environment variables take precedence)")
	root.AddCommand(newVerifyCommand())
	root.AddCommand(newETagCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		atomic,
	)
	return zap.New(core), nil
}
