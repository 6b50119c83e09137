package application

import (
	"context"

	"github.com/0xAtelerix/sdk/gosdk"
	"github.com/0xAtelerix/sdk/gosdk/apptypes"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/rs/zerolog/log"
)

var (
	_ gosdk.StateTransitionSimplified                               = &StateTransition{}
	_ gosdk.StateTransitionInterface[Transaction[Receipt], Receipt] = gosdk.BatchProcesser[Transaction[Receipt], Receipt]{}
)

// StateTransition observes external chain blocks. Programs hosted here
// only react to appchain transactions, so external blocks never produce
// state changes or outgoing transactions.
type StateTransition struct {
	msa *gosdk.MultichainStateAccess
}

func NewStateTransition(msa *gosdk.MultichainStateAccess) *StateTransition {
	return &StateTransition{
		msa: msa,
	}
}

func (st *StateTransition) ProcessBlock(
	b apptypes.ExternalBlock,
	_ kv.RwTx,
) ([]apptypes.ExternalTransaction, error) {
	block, err := st.msa.EthBlock(context.Background(), b)
	if err != nil {
		return nil, err
	}

	receipts, err := st.msa.EthReceipts(context.Background(), b)
	if err != nil {
		return nil, err
	}

	logCount := 0
	for _, r := range receipts {
		logCount += len(r.Logs)
	}

	log.Debug().
		Uint64("chainID", b.ChainID).
		Uint64("n", block.Header.Number.Uint64()).
		Str("hash", block.Header.Hash().String()).
		Int("transactions", len(block.Body.Transactions)).
		Int("receipts", len(receipts)).
		Int("logs", logCount).
		Msg("External block")

	return nil, nil
}
