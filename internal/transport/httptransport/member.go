package httptransport

import (
	"context"

	"github.com/mapleapps-ca/vaultsync/internal/domain/keys"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
)

type memberWire struct {
	Username    string `msgpack:"username"`
	AccessLevel string `msgpack:"access_level"`
}

func (c *Client) ListMembers(ctx context.Context, serverURL, authToken, collectionUID string, opts syncmodel.ListOptions) ([]transport.Member, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "collection", collectionUID, "member")
	var resp []memberWire
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]transport.Member, len(resp))
	for i, m := range resp {
		out[i] = transport.Member{Username: m.Username, AccessLevel: accessLevelFromWire(m.AccessLevel)}
	}
	return out, nil
}

func (c *Client) RemoveMember(ctx context.Context, serverURL, authToken, collectionUID, username string) error {
	url := join(serverURL, nil, "collection", collectionUID, "member", username)
	return c.do(ctx, "DELETE", url, authToken, nil, nil)
}

func (c *Client) ModifyMemberAccessLevel(ctx context.Context, serverURL, authToken, collectionUID, username string, level keys.AccessLevel) error {
	url := join(serverURL, nil, "collection", collectionUID, "member", username)
	req := memberWire{Username: username, AccessLevel: level.String()}
	return c.do(ctx, "PUT", url, authToken, req, nil)
}

func (c *Client) LeaveCollection(ctx context.Context, serverURL, authToken, collectionUID string) error {
	url := join(serverURL, nil, "collection", collectionUID, "member", "leave")
	return c.do(ctx, "POST", url, authToken, nil, nil)
}

func accessLevelFromWire(s string) keys.AccessLevel {
	switch s {
	case "Admin":
		return keys.AccessLevelAdmin
	case "ReadWrite":
		return keys.AccessLevelReadWrite
	default:
		return keys.AccessLevelReadOnly
	}
}
