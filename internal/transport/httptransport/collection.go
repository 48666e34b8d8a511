package httptransport

import (
	"context"
	"net/url"

	"github.com/mapleapps-ca/vaultsync/internal/domain/collection"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
)

func (c *Client) CreateCollection(ctx context.Context, serverURL, authToken string, col *collection.EncryptedCollection) (*collection.EncryptedCollection, error) {
	url := join(serverURL, nil, "collection")
	var resp collection.EncryptedCollection
	if err := c.do(ctx, "POST", url, authToken, col, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateCollection(ctx context.Context, serverURL, authToken string, col *collection.EncryptedCollection, useStoken bool) error {
	var q url.Values
	if useStoken && col.Stoken != nil {
		q = url.Values{"stoken": []string{*col.Stoken}}
	}
	reqURL := join(serverURL, q, "collection", col.UID)
	return c.do(ctx, "PUT", reqURL, authToken, col, nil)
}

func (c *Client) FetchCollection(ctx context.Context, serverURL, authToken, uid string, opts syncmodel.ListOptions) (*collection.EncryptedCollection, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "collection", uid)
	var resp collection.EncryptedCollection
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type collectionListResponse struct {
	Data     []*collection.EncryptedCollection `msgpack:"data"`
	Stoken   *string                           `msgpack:"stoken"`
	Iterator *string                           `msgpack:"iterator"`
	Done     bool                              `msgpack:"done"`
}

func (c *Client) ListCollections(ctx context.Context, serverURL, authToken string, opts syncmodel.ListOptions) ([]*collection.EncryptedCollection, syncmodel.IteratorPage, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "collection")
	var resp collectionListResponse
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return resp.Data, syncmodel.IteratorPage{Stoken: resp.Stoken, Iterator: resp.Iterator, Done: resp.Done}, nil
}
