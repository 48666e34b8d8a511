// Command vaultsync is a thin demonstration CLI over the vaultsync core
// library: signup/login, collection/item create-and-sync, invitations, and
// membership management, each a one-shot call through the managers the
// core packages expose. It carries no business logic of its own — see
// internal/app for the fx composition root and cmd/vaultsync/cmd for the
// command tree.
package main

import (
	"os"

	"github.com/mapleapps-ca/vaultsync/cmd/vaultsync/internal/app"
)

const defaultServerURL = "https://localhost:8443"

func main() {
	serverURL := os.Getenv("VAULTSYNC_SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	app.NewApp(serverURL).Execute()
}
