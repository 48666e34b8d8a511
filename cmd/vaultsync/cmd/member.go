package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/manager/membermgr"

	"github.com/mapleapps-ca/vaultsync/cmd/vaultsync/internal/session"
)

func newMemberCmd(deps Deps) *cobra.Command {
	parent := &cobra.Command{
		Use:   "member",
		Short: "List, remove, and modify a collection's members",
	}
	parent.AddCommand(
		newMemberListCmd(deps),
		newMemberRemoveCmd(deps),
		newMemberModifyCmd(deps),
		newMemberLeaveCmd(deps),
	)
	return parent
}

func newMemberListCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list <username> <collection-uid>",
		Short: "List a collection's members",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, collectionUID := args[0], args[1]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			memberMgr := membermgr.New(deps.Logger, deps.Backend, svc)
			members, err := memberMgr.List(cmd.Context(), collectionUID, syncmodel.ListOptions{Limit: 100})
			if err != nil {
				return err
			}
			for _, m := range members {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.Username, m.AccessLevel)
			}
			return nil
		},
	}
}

func newMemberRemoveCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <username> <collection-uid> <member-username>",
		Short: "Remove a member from a collection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, collectionUID, memberUsername := args[0], args[1], args[2]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			memberMgr := membermgr.New(deps.Logger, deps.Backend, svc)
			if err := memberMgr.Remove(cmd.Context(), collectionUID, memberUsername); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", memberUsername, collectionUID)
			return nil
		},
	}
}

func newMemberModifyCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "modify-access <username> <collection-uid> <member-username> <access-level>",
		Short: "Change a member's access level (readonly|readwrite|admin)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, collectionUID, memberUsername, levelStr := args[0], args[1], args[2], args[3]
			level, err := parseAccessLevel(levelStr)
			if err != nil {
				return err
			}
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			memberMgr := membermgr.New(deps.Logger, deps.Backend, svc)
			if err := memberMgr.ModifyAccessLevel(cmd.Context(), collectionUID, memberUsername, level); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s's access on %s to %s\n", memberUsername, collectionUID, level)
			return nil
		},
	}
}

func newMemberLeaveCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "leave <username> <collection-uid>",
		Short: "Leave a shared collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, collectionUID := args[0], args[1]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			memberMgr := membermgr.New(deps.Logger, deps.Backend, svc)
			if err := memberMgr.Leave(cmd.Context(), collectionUID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "left collection %s\n", collectionUID)
			return nil
		},
	}
}
