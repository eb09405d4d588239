package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	iauth "github.com/edudao/gatekeeper/internal/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID   string
		wallet   string
		audience []string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a subject token for the HTTP API",
		Long: `Signs an access token with auth.jwt.secret from the configuration. The
secret must be configured explicitly so the server accepts the token.`,
		Example: `  gatekeeperctl token --user u1 --ttl 1h --config ./config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
				return errors.New("auth.jwt.secret must be configured to issue tokens")
			}

			jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
			if err != nil {
				return fmt.Errorf("initialise jwt service: %w", err)
			}

			token, err := jwtService.GenerateAccessToken(iauth.AccessTokenInput{
				UserID:   userID,
				Wallet:   wallet,
				Audience: audience,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id placed in the token")
	cmd.Flags().StringVar(&wallet, "wallet", "", "Wallet address claim")
	cmd.Flags().StringSliceVar(&audience, "audience", nil, "Audience claims")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.jwt.access_token_ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
