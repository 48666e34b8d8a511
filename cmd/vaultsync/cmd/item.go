package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapleapps-ca/vaultsync/internal/domain/item"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/envelope"
	"github.com/mapleapps-ca/vaultsync/internal/manager/collectionmgr"
	"github.com/mapleapps-ca/vaultsync/internal/manager/itemmgr"

	"github.com/mapleapps-ca/vaultsync/cmd/vaultsync/internal/session"
)

func newItemCmd(deps Deps) *cobra.Command {
	parent := &cobra.Command{
		Use:   "item",
		Short: "Create, list, and read encrypted collection items",
	}
	parent.AddCommand(newItemCreateCmd(deps), newItemListCmd(deps), newItemGetCmd(deps))
	return parent
}

func newItemCreateCmd(deps Deps) *cobra.Command {
	var metaName string
	c := &cobra.Command{
		Use:   "create <username> <collection-uid> <content>",
		Short: "Create an item in a collection and upload it via batch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, collectionUID, content := args[0], args[1], args[2]
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
			collectionCrypto, err := colMgr.CryptoManagerFor(cmd.Context(), col)
			if err != nil {
				return err
			}

			itemMgr := itemmgr.New(deps.Logger, deps.Backend, svc)
			meta := []byte(fmt.Sprintf(`{"name":%q}`, metaName))
			it, err := itemMgr.Create(cmd.Context(), collectionCrypto, meta, []byte(content), false)
			if err != nil {
				return err
			}
			if err := itemMgr.Batch(cmd.Context(), collectionUID, []*item.EncryptedCollectionItem{it}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created item %s in collection %s (etag=%s)\n", it.UID, collectionUID, derefStr(it.Etag))
			return nil
		},
	}
	c.Flags().StringVar(&metaName, "meta-name", "untitled", "human-readable name stored in the item's encrypted meta")
	return c
}

func newItemListCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list <username> <collection-uid>",
		Short: "List a collection's items and decrypt each meta/content",
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
			colMgr := collectionmgr.New(deps.Logger, deps.Backend, svc)
			col, err := colMgr.Fetch(cmd.Context(), collectionUID, syncmodel.ListOptions{})
			if err != nil {
				return err
			}
			collectionCrypto, err := colMgr.CryptoManagerFor(cmd.Context(), col)
			if err != nil {
				return err
			}

			itemMgr := itemmgr.New(deps.Logger, deps.Backend, svc)
			items, _, err := itemMgr.List(cmd.Context(), collectionUID, syncmodel.ListOptions{Limit: 100})
			if err != nil {
				return err
			}
			for _, it := range items {
				itemCrypto, err := envelope.ItemCryptoManager(collectionCrypto, it)
				if err != nil {
					return err
				}
				meta, err := envelope.DecryptMeta(itemCrypto, it.Content)
				if err != nil {
					return err
				}
				content, err := envelope.DecryptContent(itemCrypto, it.Content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]: meta=%s content=%q\n", it.UID, it.State(), meta, content)
			}
			return nil
		},
	}
}

func newItemGetCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "get <username> <collection-uid> <item-uid>",
		Short: "Fetch one item and print its decrypted content",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, collectionUID, itemUID := args[0], args[1], args[2]
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
			collectionCrypto, err := colMgr.CryptoManagerFor(cmd.Context(), col)
			if err != nil {
				return err
			}

			itemMgr := itemmgr.New(deps.Logger, deps.Backend, svc)
			it, err := itemMgr.Fetch(cmd.Context(), collectionUID, itemUID, syncmodel.ListOptions{})
			if err != nil {
				return err
			}
			if it.State() == item.StateGone {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: gone (server no longer has this item)\n", itemUID)
				return nil
			}
			itemCrypto, err := envelope.ItemCryptoManager(collectionCrypto, it)
			if err != nil {
				return err
			}
			if err := envelope.VerifyItem(collectionCrypto, it); err != nil {
				return err
			}
			content, err := envelope.DecryptContent(itemCrypto, it.Content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", content)
			return nil
		},
	}
}
