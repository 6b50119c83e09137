package application

import (
	"context"
	"fmt"

	"github.com/0xAtelerix/sdk/gosdk/apptypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/ledgerwatch/erigon-lib/kv"
)

// Invocation is the stored record of one processed transaction.
type Invocation struct {
	TxHash            common.Hash              `json:"txHash"            cbor:"1,keyasint"`
	ProgramID         string                   `json:"programId"         cbor:"2,keyasint"`
	Instruction       string                   `json:"instruction"       cbor:"3,keyasint,omitempty"`
	RemainingAccounts int                      `json:"remainingAccounts" cbor:"4,keyasint"`
	Logs              []string                 `json:"logs"              cbor:"5,keyasint"`
	Status            apptypes.TxReceiptStatus `json:"status"            cbor:"6,keyasint"`
	Error             string                   `json:"error,omitempty"   cbor:"7,keyasint,omitempty"`
	Code              uint32                   `json:"code"              cbor:"8,keyasint"`
}

// PutInvocation stores an invocation keyed by its transaction hash.
func PutInvocation(tx kv.RwTx, inv *Invocation) error {
	data, err := cbor.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invocation: %w", err)
	}

	if err := tx.Put(InvocationsBucket, inv.TxHash[:], data); err != nil {
		return fmt.Errorf("put invocation: %w", err)
	}

	return nil
}

// GetInvocation reads a single invocation by transaction hash.
func GetInvocation(tx kv.Tx, hash common.Hash) (*Invocation, error) {
	data, err := tx.GetOne(InvocationsBucket, hash[:])
	if err != nil {
		return nil, fmt.Errorf("db get: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvocationNotFound, hash.Hex())
	}

	var inv Invocation
	if err := cbor.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("unmarshal invocation: %w", err)
	}

	return &inv, nil
}

// ListInvocations returns up to limit invocations in key order, skipping the first offset.
func ListInvocations(ctx context.Context, tx kv.Tx, offset, limit int) ([]Invocation, error) {
	cur, err := tx.Cursor(InvocationsBucket)
	if err != nil {
		return nil, fmt.Errorf("cursor open: %w", err)
	}
	defer cur.Close()

	out := []Invocation{}
	skipped := 0

	k, v, err := cur.First()
	for ; k != nil && err == nil; k, v, err = cur.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if skipped < offset {
			skipped++

			continue
		}

		if limit > 0 && len(out) >= limit {
			break
		}

		var inv Invocation
		if unmarshalErr := cbor.Unmarshal(v, &inv); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal invocation %x: %w", k, unmarshalErr)
		}

		out = append(out, inv)
	}

	if err != nil {
		return nil, fmt.Errorf("cursor next: %w", err)
	}

	return out, nil
}
