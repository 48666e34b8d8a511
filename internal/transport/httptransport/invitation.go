package httptransport

import (
	"context"

	"github.com/mapleapps-ca/vaultsync/internal/domain/invitation"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
)

type invitationListResponse struct {
	Data     []*invitation.SignedInvitation `msgpack:"data"`
	Stoken   *string                        `msgpack:"stoken"`
	Iterator *string                        `msgpack:"iterator"`
	Done     bool                           `msgpack:"done"`
}

func (c *Client) ListIncomingInvitations(ctx context.Context, serverURL, authToken string, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "invitation", "incoming")
	var resp invitationListResponse
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return resp.Data, syncmodel.IteratorPage{Stoken: resp.Stoken, Iterator: resp.Iterator, Done: resp.Done}, nil
}

func (c *Client) ListOutgoingInvitations(ctx context.Context, serverURL, authToken string, opts syncmodel.ListOptions) ([]*invitation.SignedInvitation, syncmodel.IteratorPage, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "invitation", "outgoing")
	var resp invitationListResponse
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return resp.Data, syncmodel.IteratorPage{Stoken: resp.Stoken, Iterator: resp.Iterator, Done: resp.Done}, nil
}

func (c *Client) CreateInvitation(ctx context.Context, serverURL, authToken string, inv *invitation.SignedInvitation) error {
	url := join(serverURL, nil, "invitation", "outgoing")
	return c.do(ctx, "POST", url, authToken, inv, nil)
}

type acceptInvitationRequest struct {
	ResealedKey    []byte `msgpack:"resealed_key"`
	CollectionType []byte `msgpack:"collection_type"`
}

func (c *Client) AcceptInvitation(ctx context.Context, serverURL, authToken, invitationUID string, resealedKey []byte, collectionType []byte) error {
	url := join(serverURL, nil, "invitation", "incoming", invitationUID, "accept")
	req := acceptInvitationRequest{ResealedKey: resealedKey, CollectionType: collectionType}
	return c.do(ctx, "POST", url, authToken, req, nil)
}

func (c *Client) RejectInvitation(ctx context.Context, serverURL, authToken, invitationUID string) error {
	url := join(serverURL, nil, "invitation", "incoming", invitationUID, "reject")
	return c.do(ctx, "POST", url, authToken, nil, nil)
}
