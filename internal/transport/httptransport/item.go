package httptransport

import (
	"context"

	"github.com/mapleapps-ca/vaultsync/internal/domain/item"
	"github.com/mapleapps-ca/vaultsync/internal/domain/syncmodel"
)

func (c *Client) FetchItem(ctx context.Context, serverURL, authToken, collectionUID, itemUID string, opts syncmodel.ListOptions) (*item.EncryptedCollectionItem, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "collection", collectionUID, "item", itemUID)
	var resp item.EncryptedCollectionItem
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type itemListResponse struct {
	Data     []*item.EncryptedCollectionItem `msgpack:"data"`
	Stoken   *string                         `msgpack:"stoken"`
	Iterator *string                         `msgpack:"iterator"`
	Done     bool                            `msgpack:"done"`
}

func (c *Client) ListItems(ctx context.Context, serverURL, authToken, collectionUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "collection", collectionUID, "item")
	var resp itemListResponse
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return resp.Data, syncmodel.IteratorPage{Stoken: resp.Stoken, Iterator: resp.Iterator, Done: resp.Done}, nil
}

type batchRequest struct {
	Items []*item.EncryptedCollectionItem `msgpack:"items"`
	Deps  []depWire                       `msgpack:"deps"`
}

type depWire struct {
	UID      string  `msgpack:"uid"`
	LastEtag *string `msgpack:"last_etag"`
}

func toDepWire(deps []syncmodel.Dep) []depWire {
	out := make([]depWire, len(deps))
	for i, d := range deps {
		out[i] = depWire{UID: d.UID, LastEtag: d.LastEtag}
	}
	return out
}

func (c *Client) Batch(ctx context.Context, serverURL, authToken, collectionUID string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error {
	url := join(serverURL, nil, "collection", collectionUID, "item", "batch")
	req := batchRequest{Items: items, Deps: toDepWire(deps)}
	return c.do(ctx, "POST", url, authToken, req, nil)
}

type transactionRequest struct {
	Stoken string                          `msgpack:"stoken"`
	Items  []*item.EncryptedCollectionItem `msgpack:"items"`
	Deps   []depWire                       `msgpack:"deps"`
}

func (c *Client) Transaction(ctx context.Context, serverURL, authToken, collectionUID, stoken string, items []*item.EncryptedCollectionItem, deps []syncmodel.Dep) error {
	url := join(serverURL, nil, "collection", collectionUID, "item", "transaction")
	req := transactionRequest{Stoken: stoken, Items: items, Deps: toDepWire(deps)}
	return c.do(ctx, "POST", url, authToken, req, nil)
}

type fetchUpdatesRequest struct {
	Refs   []depWire `msgpack:"refs"`
	Stoken *string   `msgpack:"stoken"`
}

type fetchUpdatesResponseEntry struct {
	UID  string `msgpack:"uid"`
	Item []byte `msgpack:"item"`
}

func (c *Client) FetchUpdates(ctx context.Context, serverURL, authToken, collectionUID string, refs []syncmodel.ItemRef, opts syncmodel.FetchUpdatesOptions) ([]syncmodel.UpdateResult, error) {
	url := join(serverURL, nil, "collection", collectionUID, "item", "fetch_updates")
	req := fetchUpdatesRequest{Refs: toDepWire(refs), Stoken: opts.Stoken}
	var resp []fetchUpdatesResponseEntry
	if err := c.do(ctx, "POST", url, authToken, req, &resp); err != nil {
		return nil, err
	}
	out := make([]syncmodel.UpdateResult, len(resp))
	for i, e := range resp {
		out[i] = syncmodel.UpdateResult{UID: e.UID, Item: e.Item}
	}
	return out, nil
}

func (c *Client) ItemRevisions(ctx context.Context, serverURL, authToken, collectionUID, itemUID string, opts syncmodel.ListOptions) ([]*item.EncryptedCollectionItem, syncmodel.IteratorPage, error) {
	q := listQuery(opts.Stoken, opts.Iterator, opts.Limit, opts.WithCollection, string(opts.Prefetch))
	url := join(serverURL, q, "collection", collectionUID, "item", itemUID, "revision")
	var resp itemListResponse
	if err := c.do(ctx, "GET", url, authToken, nil, &resp); err != nil {
		return nil, syncmodel.IteratorPage{}, err
	}
	return resp.Data, syncmodel.IteratorPage{Stoken: resp.Stoken, Iterator: resp.Iterator, Done: resp.Done}, nil
}
