package trustvault

import (
	"context"

	"github.com/trustvault/client-go/internal/api"
)

// apiTransport adapts the API client to the narrow transport interfaces the
// internal managers depend on.
type apiTransport struct {
	api *api.Client
}

func rawBlocks(blocks []api.Block) [][]byte {
	out := make([][]byte, len(blocks))
	for i, b := range blocks {
		out[i] = b
	}
	return out
}

func (t *apiTransport) GetUserHistories(ctx context.Context, ids [][]byte) ([]byte, [][]byte, error) {
	histories, err := t.api.GetUserHistories(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return histories.RootBlock, rawBlocks(histories.Blocks), nil
}

func (t *apiTransport) GetGroupHistories(ctx context.Context, groupIDs [][]byte) ([][]byte, error) {
	blocks, err := t.api.GetGroupHistories(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	return rawBlocks(blocks), nil
}

func (t *apiTransport) GetGroupHistoriesByPublicKeys(ctx context.Context, publicKeys [][]byte) ([][]byte, error) {
	blocks, err := t.api.GetGroupHistoriesByPublicKeys(ctx, publicKeys)
	if err != nil {
		return nil, err
	}
	return rawBlocks(blocks), nil
}

func (t *apiTransport) CreateGroup(ctx context.Context, rawBlock []byte) error {
	return t.api.CreateGroup(ctx, rawBlock)
}

func (t *apiTransport) PatchGroup(ctx context.Context, rawBlock []byte) error {
	return t.api.PatchGroup(ctx, rawBlock)
}

func (t *apiTransport) GetKeyPublishes(ctx context.Context, resourceIDs [][]byte) ([][]byte, error) {
	blocks, err := t.api.GetKeyPublishes(ctx, resourceIDs)
	if err != nil {
		return nil, err
	}
	return rawBlocks(blocks), nil
}

func (t *apiTransport) PublishKeys(ctx context.Context, blocks [][]byte) error {
	wire := make([]api.Block, len(blocks))
	for i, b := range blocks {
		wire[i] = b
	}
	return t.api.PublishKeys(ctx, wire)
}
