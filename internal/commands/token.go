package commands

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iliyamo/tutoring-sessions/internal/config"
	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/utils"
)

var (
	tokenUser string
	tokenRole string
	tokenTTL  int
)

// tokenCmd mints a bearer token for local testing.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for a user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		role := model.Role(tokenRole)
		if !role.Valid() {
			return errors.Errorf("unknown role %q", tokenRole)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.AccessTTLMin
		}
		tok, err := utils.NewAccessToken(cfg.JWTSecret, tokenUser, string(role), ttl)
		if err != nil {
			return errors.Wrap(err, "sign token")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tok)
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(model.RoleStudent), "STUDENT, PARENT, TUTOR, MANAGER or ADMIN")
	tokenCmd.Flags().IntVar(&tokenTTL, "ttl", 0, "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN)")
	_ = tokenCmd.MarkFlagRequired("user")
}
