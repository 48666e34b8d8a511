package cmd

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/domain/invitation"
	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/manager/collectionmgr"
	"github.com/mapleapps-ca/vaultsync/internal/manager/invitationmgr"

	"github.com/mapleapps-ca/vaultsync/cmd/vaultsync/internal/session"
)

func newInvitationCmd(deps Deps) *cobra.Command {
	parent := &cobra.Command{
		Use:   "invitation",
		Short: "Invite, list, accept, and reject collection-sharing invitations",
	}
	parent.AddCommand(
		newInvitationInviteCmd(deps),
		newInvitationListIncomingCmd(deps),
		newInvitationListOutgoingCmd(deps),
		newInvitationAcceptCmd(deps),
		newInvitationRejectCmd(deps),
	)
	return parent
}

func parseAccessLevel(s string) (keys.AccessLevel, error) {
	switch strings.ToLower(s) {
	case "readonly":
		return keys.AccessLevelReadOnly, nil
	case "readwrite":
		return keys.AccessLevelReadWrite, nil
	case "admin":
		return keys.AccessLevelAdmin, nil
	default:
		return 0, apperr.New(apperr.Programming, "unknown access level "+s+" (want readonly|readwrite|admin)")
	}
}

func newInvitationInviteCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "invite <username> <collection-uid> <to-username> <to-pubkey-base64> <access-level>",
		Short: "Invite a user to a collection with readonly|readwrite|admin access",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, collectionUID, toUsername, toPubkeyB64, levelStr := args[0], args[1], args[2], args[3], args[4]
			level, err := parseAccessLevel(levelStr)
			if err != nil {
				return err
			}
			toPubkey, err := base64.StdEncoding.DecodeString(toPubkeyB64)
			if err != nil {
				return apperr.Wrap(apperr.Programming, "decode to-pubkey", err)
			}
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			colMgr := collectionmgr.New(deps.Logger, deps.Backend, svc)
			col, err := colMgr.Fetch(cmd.Context(), collectionUID, syncmodel.ListOptions{})
			if err != nil {
				return err
			}
			invMgr := invitationmgr.New(deps.Logger, deps.Backend, svc)
			if err := invMgr.Invite(cmd.Context(), col, toUsername, toPubkey, level); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invited %s to %s as %s\n", toUsername, collectionUID, level)
			return nil
		},
	}
}

func printInvitations(cmd *cobra.Command, invs []*invitation.SignedInvitation) {
	for _, inv := range invs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s (%s)\n", inv.UID, inv.FromUsername, inv.ToUsername, inv.AccessLevel)
	}
}

func newInvitationListIncomingCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list-incoming <username>",
		Short: "List invitations addressed to this account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			invMgr := invitationmgr.New(deps.Logger, deps.Backend, svc)
			invs, _, err := invMgr.ListIncoming(cmd.Context(), syncmodel.ListOptions{Limit: 100})
			if err != nil {
				return err
			}
			printInvitations(cmd, invs)
			return nil
		},
	}
}

func newInvitationListOutgoingCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list-outgoing <username>",
		Short: "List invitations this account has sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			invMgr := invitationmgr.New(deps.Logger, deps.Backend, svc)
			invs, _, err := invMgr.ListOutgoing(cmd.Context(), syncmodel.ListOptions{Limit: 100})
			if err != nil {
				return err
			}
			printInvitations(cmd, invs)
			return nil
		},
	}
}

func findIncomingInvitation(cmd *cobra.Command, invMgr invitationmgr.Manager, uid string) (*invitation.SignedInvitation, error) {
	invs, _, err := invMgr.ListIncoming(cmd.Context(), syncmodel.ListOptions{Limit: 1000})
	if err != nil {
		return nil, err
	}
	for _, inv := range invs {
		if inv.UID == uid {
			return inv, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "no incoming invitation with uid "+uid)
}

func newInvitationAcceptCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <username> <invitation-uid>",
		Short: "Verify, accept, and re-seal an incoming invitation's collection key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, uid := args[0], args[1]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			invMgr := invitationmgr.New(deps.Logger, deps.Backend, svc)
			inv, err := findIncomingInvitation(cmd, invMgr, uid)
			if err != nil {
				return err
			}
			if err := invMgr.Accept(cmd.Context(), inv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accepted invitation %s\n", uid)
			return nil
		},
	}
}

func newInvitationRejectCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <username> <invitation-uid>",
		Short: "Reject an incoming invitation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, uid := args[0], args[1]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			invMgr := invitationmgr.New(deps.Logger, deps.Backend, svc)
			inv, err := findIncomingInvitation(cmd, invMgr, uid)
			if err != nil {
				return err
			}
			if err := invMgr.Reject(cmd.Context(), inv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rejected invitation %s\n", uid)
			return nil
		},
	}
}
