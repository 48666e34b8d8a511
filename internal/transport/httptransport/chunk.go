package httptransport

import "context"

// UploadChunk and DownloadChunk move raw ciphertext chunk bytes as
// application/octet-stream — msgpack framing would only add overhead to
// content that is already opaque ciphertext.
func (c *Client) UploadChunk(ctx context.Context, serverURL, authToken, collectionUID, itemUID, chunkUID string, ciphertext []byte) error {
	url := join(serverURL, nil, "collection", collectionUID, "item", itemUID, "chunk", chunkUID)
	_, err := c.doRaw(ctx, "PUT", url, authToken, ciphertext)
	return err
}

func (c *Client) DownloadChunk(ctx context.Context, serverURL, authToken, collectionUID, itemUID, chunkUID string) ([]byte, error) {
	url := join(serverURL, nil, "collection", collectionUID, "item", itemUID, "chunk", chunkUID)
	return c.doRaw(ctx, "GET", url, authToken, nil)
}
