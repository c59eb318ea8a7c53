package api

import "encoding/base64"

// Block is an opaque serialized ledger block in transit.
type Block []byte

// MarshalJSON encodes the block as a base64 JSON string.
func (b Block) MarshalJSON() ([]byte, error) {
	return []byte(`"` + base64.StdEncoding.EncodeToString(b) + `"`), nil
}

// UnmarshalJSON decodes a base64 JSON string.
func (b *Block) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return base64.CorruptInputError(0)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

type blocksResponse struct {
	Blocks []Block `json:"blocks"`
}

type keyPublishesRequest struct {
	ResourceIDs []Block `json:"resource_ids"`
}

type publishKeysRequest struct {
	Blocks []Block `json:"key_publishes"`
}

type userHistoriesRequest struct {
	UserIDs []Block `json:"user_ids"`
}

// UserHistories is the ordered block stream for a set of users, root block
// first.
type UserHistories struct {
	RootBlock Block   `json:"root_block"`
	Blocks    []Block `json:"blocks"`
}

type groupHistoriesRequest struct {
	GroupIDs        []Block `json:"group_ids,omitempty"`
	GroupPublicKeys []Block `json:"group_public_keys,omitempty"`
}

type pushBlockRequest struct {
	Block Block `json:"block"`
}

type groupBlockRequest struct {
	Block Block `json:"group_block"`
}
