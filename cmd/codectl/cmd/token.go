package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	jwtpkg "github.com/synesthesie/verification/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	c := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token for the /api/v1/admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := jwtpkg.GenerateToken(subject, jwtpkg.AdminToken, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	c.Flags().StringVar(&subject, "subject", "", "admin identity recorded in the audit log")
	c.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = c.MarkFlagRequired("subject")
	return c
}
