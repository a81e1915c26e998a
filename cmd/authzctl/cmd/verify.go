package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lambdakit/go-authz"
	"github.com/lambdakit/go-authz/config"
	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
)

// flagKeys maps verify flags to config keys.
var flagKeys = map[string]string{
	"issuer":           "jwt_issuer",
	"audience":         "jwt_audience",
	"algorithm":        "jwt_algorithm",
	"issuer-selection": "jwt_issuer_selection",
	"log-level":        "log_level",
}

func newVerifyCommand() *cobra.Command {
	var required []string

	verifyCmd := &cobra.Command{
		Use:   "verify \"Bearer <token>\"",
		Short: "Verify an Authorization header and print its authorizer context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			cfg, err := config.Load(path, func(v *viper.Viper) error {
				for name, key := range flagKeys {
					if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			zapLogger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			defer zapLogger.Sync() //nolint:errcheck
			logger := authz.NewZapLogger(zapLogger)

			v, err := cfg.NewValidator(logger)
			if err != nil {
				return err
			}
			authorizer, err := core.New(core.WithVerifier(v), core.WithLogger(logger))
			if err != nil {
				return err
			}

			principal, err := authorizer.Authorize(cmd.Context(), args[0])
			switch {
			case core.IsConfigurationError(err):
				return err
			case err != nil:
				return errUnauthorized
			}

			if len(required) > 0 {
				specs := make([]permissions.RawSpec, 0, len(required))
				for _, name := range required {
					specs = append(specs, permissions.Permission(name))
				}
				if err := authorizer.Permissions(principal).AssertPermissions(cmd.Context(), specs...); err != nil {
					logger.Warn("Permission check failed", "error", err)
					return errForbidden
				}
			}

			authorizerContext, err := core.NewAuthorizerContext(principal)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(authorizerContext); err != nil {
				return fmt.Errorf("failed to write authorizer context: %w", err)
			}
			return nil
		},
	}

	flags := verifyCmd.Flags()
	flags.StringSlice("issuer", nil, "trusted issuer URL (repeatable, env JWT_ISSUER)")
	flags.StringSlice("audience", nil, "accepted audience (repeatable, env JWT_AUDIENCE)")
	flags.StringSlice("algorithm", nil, "allowed signature algorithm (repeatable, env JWT_ALGORITHM)")
	flags.String("issuer-selection", config.SelectionFanOut, "fan-out or token-issuer")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.StringSliceVar(&required, "require", nil, "permission the principal must hold (repeatable)")

	return verifyCmd
}
