// Package cmd assembles the vaultsync demo CLI's command tree.
// NewRootCmd takes every dependency as a parameter and fx supplies them
// at the composition root in internal/app.NewApp, so this package never
// constructs its own dependencies.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/transport"

	sessionpkg "github.com/mapleapps-ca/vaultsync/cmd/vaultsync/internal/session"
)

// Deps bundles what every subcommand needs to resolve a user's session and
// build the managers that session drives. fx populates one of these and
// NewRootCmd closes over it in every cobra.Command's RunE; managers
// themselves are constructed per-command, after a session is loaded, since
// each one is bound to a specific accountsvc.Service instance.
type Deps struct {
	Logger    *zap.Logger
	Sessions  *sessionpkg.Manager
	Backend   transport.Backend
	ServerURL string
}

// NewRootCmd builds the root vaultsync command with every subcommand
// attached.
func NewRootCmd(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "vaultsync",
		Short: "End-to-end encrypted collection/item sync — demo CLI",
	}
	root.AddCommand(
		newSignupCmd(deps),
		newLoginCmd(deps),
		newLogoutCmd(deps),
		newWhoamiCmd(deps),
		newChangePasswordCmd(deps),
		newCollectionCmd(deps),
		newItemCmd(deps),
		newInvitationCmd(deps),
		newMemberCmd(deps),
	)
	return root
}
