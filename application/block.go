package application

import (
	"github.com/0xAtelerix/sdk/gosdk/apptypes"
	"github.com/fxamacker/cbor/v2"
)

var _ apptypes.AppchainBlock = &Block{}

// Block commits to the state root after a batch of invocations.
type Block struct {
	BlockNum uint64   `json:"number"   cbor:"1,keyasint"`
	Root     [32]byte `json:"root"     cbor:"2,keyasint"`
	Parent   [32]byte `json:"parent"   cbor:"3,keyasint"`
}

func (b *Block) Number() uint64 {
	return b.BlockNum
}

func (b *Block) Hash() [32]byte {
	return b.Root
}

func (b *Block) StateRoot() [32]byte {
	return b.Root
}

// Bytes is the CBOR encoding of the block header, or nil if it cannot be encoded.
func (b *Block) Bytes() []byte {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil
	}

	return data
}

func BlockConstructor(
	blockNumber uint64,
	stateRoot [32]byte,
	previousBlockHash [32]byte,
	_ apptypes.Batch[Transaction[Receipt], Receipt],
) *Block {
	return &Block{
		BlockNum: blockNumber,
		Root:     stateRoot,
		Parent:   previousBlockHash,
	}
}
