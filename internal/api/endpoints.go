package api

import "context"

// PushBlock appends one serialized block to the app's ledger.
func (c *Client) PushBlock(ctx context.Context, block Block) error {
	return c.Do(ctx, "POST", "/v2/blocks", pushBlockRequest{Block: block}, nil)
}

// GetKeyPublishes fetches the key-publish blocks for the given resource ids.
// Unknown ids are simply absent from the response.
func (c *Client) GetKeyPublishes(ctx context.Context, resourceIDs [][]byte) ([]Block, error) {
	req := keyPublishesRequest{ResourceIDs: make([]Block, len(resourceIDs))}
	for i, id := range resourceIDs {
		req.ResourceIDs[i] = id
	}
	var result blocksResponse
	if err := c.Do(ctx, "POST", "/v2/key-publishes/query", req, &result); err != nil {
		return nil, err
	}
	return result.Blocks, nil
}

// PublishKeys pushes a batch of key-publish blocks.
func (c *Client) PublishKeys(ctx context.Context, blocks []Block) error {
	return c.Do(ctx, "POST", "/v2/key-publishes", publishKeysRequest{Blocks: blocks}, nil)
}

// GetUserHistories fetches the ordered block streams for the given user ids.
// The root block comes separately so callers always verify it first.
func (c *Client) GetUserHistories(ctx context.Context, userIDs [][]byte) (*UserHistories, error) {
	req := userHistoriesRequest{UserIDs: make([]Block, len(userIDs))}
	for i, id := range userIDs {
		req.UserIDs[i] = id
	}
	var result UserHistories
	if err := c.Do(ctx, "POST", "/v2/user-histories/query", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetGroupHistories fetches the ordered group block streams for the given
// group ids.
func (c *Client) GetGroupHistories(ctx context.Context, groupIDs [][]byte) ([]Block, error) {
	req := groupHistoriesRequest{GroupIDs: make([]Block, len(groupIDs))}
	for i, id := range groupIDs {
		req.GroupIDs[i] = id
	}
	var result blocksResponse
	if err := c.Do(ctx, "POST", "/v2/group-histories/query", req, &result); err != nil {
		return nil, err
	}
	return result.Blocks, nil
}

// GetGroupHistoriesByPublicKeys fetches group block streams addressed by the
// groups' current public encryption keys.
func (c *Client) GetGroupHistoriesByPublicKeys(ctx context.Context, publicKeys [][]byte) ([]Block, error) {
	req := groupHistoriesRequest{GroupPublicKeys: make([]Block, len(publicKeys))}
	for i, key := range publicKeys {
		req.GroupPublicKeys[i] = key
	}
	var result blocksResponse
	if err := c.Do(ctx, "POST", "/v2/group-histories/query", req, &result); err != nil {
		return nil, err
	}
	return result.Blocks, nil
}

// CreateGroup pushes a group-creation block.
func (c *Client) CreateGroup(ctx context.Context, block Block) error {
	return c.Do(ctx, "POST", "/v2/groups", groupBlockRequest{Block: block}, nil)
}

// PatchGroup pushes a group-addition or group-update block.
func (c *Client) PatchGroup(ctx context.Context, block Block) error {
	return c.Do(ctx, "PATCH", "/v2/groups", groupBlockRequest{Block: block}, nil)
}
