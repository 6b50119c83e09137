package application

import (
	"fmt"

	solana "github.com/blocto/solana-go-sdk/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/kv"
)

// ProgramRecord is the registry entry of a deployed program.
type ProgramRecord struct {
	ID           string   `json:"programId"    cbor:"1,keyasint"`
	Name         string   `json:"name"         cbor:"2,keyasint"`
	Instructions []string `json:"instructions" cbor:"3,keyasint"`
	Executable   bool     `json:"executable"   cbor:"4,keyasint"`
}

func NewProgramRecord(p *Program) *ProgramRecord {
	return &ProgramRecord{
		ID:           p.ID.ToBase58(),
		Name:         p.Name,
		Instructions: p.InstructionNames(),
		Executable:   true,
	}
}

func invocationCountKey(id solana.PublicKey) []byte {
	return append(id[:], []byte(":invocations")...)
}

func PutProgram(tx kv.RwTx, id solana.PublicKey, rec *ProgramRecord) error {
	data, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal program: %w", err)
	}

	if err := tx.Put(ProgramsBucket, id[:], data); err != nil {
		return fmt.Errorf("put program: %w", err)
	}

	return nil
}

func GetProgram(tx kv.Tx, id solana.PublicKey) (*ProgramRecord, error) {
	data, err := tx.GetOne(ProgramsBucket, id[:])
	if err != nil {
		return nil, fmt.Errorf("db get: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, id.ToBase58())
	}

	var rec ProgramRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal program: %w", err)
	}

	return &rec, nil
}

// InvocationCount returns the number of successful invocations of a program.
func InvocationCount(tx kv.Tx, id solana.PublicKey) (*uint256.Int, error) {
	data, err := tx.GetOne(ProgramsBucket, invocationCountKey(id))
	if err != nil {
		return nil, fmt.Errorf("db get: %w", err)
	}

	count := uint256.NewInt(0)
	if len(data) > 0 {
		count.SetBytes(data)
	}

	return count, nil
}

// IncrementInvocations bumps the invocation counter and returns the new value.
func IncrementInvocations(tx kv.RwTx, id solana.PublicKey) (*uint256.Int, error) {
	count, err := InvocationCount(tx, id)
	if err != nil {
		return nil, err
	}

	count.AddUint64(count, 1)

	if err := tx.Put(ProgramsBucket, invocationCountKey(id), count.Bytes()); err != nil {
		return nil, fmt.Errorf("put invocation count: %w", err)
	}

	return count, nil
}
