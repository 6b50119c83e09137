package application

import (
	"encoding/json"
	"fmt"

	"github.com/0xAtelerix/sdk/gosdk/apptypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/rs/zerolog/log"
)

// programs is the runtime every transaction executes against.
var programs = DefaultRuntime()

// Transaction invokes one instruction of a deployed program.
// Data is base58 instruction data; when it is empty the instruction is
// selected by Instruction name.
type Transaction[R Receipt] struct {
	ProgramID   string        `json:"program_id"`
	Instruction string        `json:"instruction,omitempty"`
	Data        string        `json:"data,omitempty"`
	Accounts    []AccountMeta `json:"accounts,omitempty"`
	TxHash      string        `json:"hash"`
}

// NewInitializeTransaction builds a call to the initialize instruction.
func NewInitializeTransaction(txHash string) Transaction[Receipt] {
	return Transaction[Receipt]{
		ProgramID: ProgramID,
		Data:      EncodeInstruction(InstructionInitialize),
		TxHash:    txHash,
	}
}

func (e *Transaction[R]) Unmarshal(b []byte) error {
	if err := json.Unmarshal(b, e); err != nil {
		return err
	}

	return ValidateTxHash(e.TxHash)
}

func (e Transaction[R]) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func (e Transaction[R]) Hash() [32]byte {
	return common.HexToHash(e.TxHash)
}

// ValidateTxHash accepts only a 0x-prefixed, non-zero 32 byte hex hash,
// so that no two invocations can be stored under the same key by accident.
func ValidateTxHash(s string) error {
	b, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidTxHash, s, err)
	}

	if len(b) != common.HashLength {
		return fmt.Errorf("%w %q: want %d bytes, got %d", ErrInvalidTxHash, s, common.HashLength, len(b))
	}

	if common.BytesToHash(b) == (common.Hash{}) {
		return fmt.Errorf("%w %q: zero hash", ErrInvalidTxHash, s)
	}

	return nil
}

// Invoke decodes the transaction into a runtime invocation.
func (e Transaction[R]) Invoke() (Invoke, error) {
	in := Invoke{
		ProgramID: e.ProgramID,
		Accounts:  e.Accounts,
	}

	switch {
	case e.Data != "":
		data, err := DecodeInstructionData(e.Data)
		if err != nil {
			return in, err
		}

		in.Data = data
	case e.Instruction != "":
		d := InstructionDiscriminator(e.Instruction)
		in.Data = d[:]
	}

	return in, nil
}

// Simulate executes the transaction without persisting anything.
func (e Transaction[R]) Simulate() ExecutionResult {
	in, err := e.Invoke()
	if err != nil {
		return failedResult(
			ExecutionResult{ProgramID: e.ProgramID},
			&LogCollector{},
			programError(err, CodeInstructionDidNotDeserialize),
		)
	}

	return programs.Execute(in)
}

func (e Transaction[R]) Process(
	dbTx kv.RwTx,
) (res R, txs []apptypes.ExternalTransaction, err error) {
	result := e.Simulate()

	inv := &Invocation{
		TxHash:            e.Hash(),
		ProgramID:         e.ProgramID,
		Instruction:       result.Instruction,
		RemainingAccounts: result.RemainingAccounts,
		Logs:              result.Logs,
		Error:             result.Error,
		Code:              result.Code,
		Status:            apptypes.ReceiptConfirmed,
	}

	if !result.Succeeded() {
		inv.Status = apptypes.ReceiptFailed
	}

	if err := PutInvocation(dbTx, inv); err != nil {
		return res, nil, fmt.Errorf("store invocation: %w", err)
	}

	if !result.Succeeded() {
		log.Warn().
			Str("tx", inv.TxHash.Hex()).
			Str("program", e.ProgramID).
			Uint32("code", result.Code).
			Err(result.Err()).
			Msg("Invocation failed")

		return e.failedReceipt(result), nil, nil
	}

	id, err := ParsePublicKey(e.ProgramID)
	if err != nil {
		return res, nil, err
	}

	count, err := IncrementInvocations(dbTx, id)
	if err != nil {
		return res, nil, fmt.Errorf("count invocation: %w", err)
	}

	log.Info().
		Str("tx", inv.TxHash.Hex()).
		Str("program", e.ProgramID).
		Str("instruction", result.Instruction).
		Str("invocations", count.Dec()).
		Msg("Invocation processed")

	return e.successReceipt(result), []apptypes.ExternalTransaction{}, nil
}

func (e *Transaction[R]) failedReceipt(result ExecutionResult) R {
	return R{
		TxnHash:      e.Hash(),
		ErrorMessage: result.Error,
		TxStatus:     apptypes.ReceiptFailed,
		ProgramID:    e.ProgramID,
		Instruction:  result.Instruction,
		Logs:         result.Logs,
		Code:         result.Code,
	}
}

func (e *Transaction[R]) successReceipt(result ExecutionResult) R {
	return R{
		TxnHash:     e.Hash(),
		TxStatus:    apptypes.ReceiptConfirmed,
		ProgramID:   e.ProgramID,
		Instruction: result.Instruction,
		Logs:        result.Logs,
	}
}
