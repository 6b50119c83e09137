package application

import (
	"context"
	"strings"
	"testing"

	"github.com/0xAtelerix/sdk/gosdk/apptypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/ledgerwatch/erigon-lib/kv/mdbx"
	mdbxlog "github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) kv.RwDB {
	t.Helper()

	db, err := mdbx.NewMDBX(mdbxlog.New()).
		Path(t.TempDir()).
		WithTableCfg(func(_ kv.TableCfg) kv.TableCfg {
			return Tables()
		}).
		Open()
	require.NoError(t, err)

	t.Cleanup(db.Close)

	return db
}

func process(t *testing.T, db kv.RwDB, tx Transaction[Receipt]) Receipt {
	t.Helper()

	var receipt Receipt

	err := db.Update(t.Context(), func(dbTx kv.RwTx) error {
		var err error

		receipt, _, err = tx.Process(dbTx)

		return err
	})
	require.NoError(t, err)

	return receipt
}

func TestTransaction_ProcessInitialize(t *testing.T) {
	db := newTestDB(t)

	txHash := "0x00000000000000000000000000000000000000000000000000000000000000aa"
	receipt := process(t, db, NewInitializeTransaction(txHash))

	require.Equal(t, apptypes.ReceiptConfirmed, receipt.Status())
	require.Empty(t, receipt.Error())
	require.Equal(t, [32]byte(common.HexToHash(txHash)), receipt.TxHash())
	require.Equal(t, ProgramID, receipt.ProgramID)
	require.Equal(t, InstructionInitialize, receipt.Instruction)
	require.Contains(t, receipt.Logs, "Program log: Greetings from: "+ProgramID)

	err := db.View(t.Context(), func(tx kv.Tx) error {
		inv, err := GetInvocation(tx, common.HexToHash(txHash))
		require.NoError(t, err)
		require.Equal(t, apptypes.ReceiptConfirmed, inv.Status)
		require.Equal(t, receipt.Logs, inv.Logs)

		count, err := InvocationCount(tx, ProgramKey())
		require.NoError(t, err)
		require.Equal(t, uint64(1), count.Uint64())

		return nil
	})
	require.NoError(t, err)
}

func TestTransaction_ProcessByInstructionName(t *testing.T) {
	db := newTestDB(t)

	receipt := process(t, db, Transaction[Receipt]{
		ProgramID:   ProgramID,
		Instruction: InstructionInitialize,
		TxHash:      "0x01",
	})

	require.Equal(t, apptypes.ReceiptConfirmed, receipt.Status())
	require.Equal(t, InstructionInitialize, receipt.Instruction)
}

func TestTransaction_ProcessFailureIsRecorded(t *testing.T) {
	db := newTestDB(t)

	receipt := process(t, db, Transaction[Receipt]{
		ProgramID: ProgramID,
		Data:      EncodeInstruction("withdraw"),
		TxHash:    "0x02",
	})

	require.Equal(t, apptypes.ReceiptFailed, receipt.Status())
	require.Equal(t, CodeInstructionFallbackNotFound, receipt.Code)
	require.Contains(t, receipt.Error(), ErrInstructionFallbackNotFound.Error())

	err := db.View(t.Context(), func(tx kv.Tx) error {
		inv, err := GetInvocation(tx, common.HexToHash("0x02"))
		require.NoError(t, err)
		require.Equal(t, apptypes.ReceiptFailed, inv.Status)
		require.Equal(t, CodeInstructionFallbackNotFound, inv.Code)

		count, err := InvocationCount(tx, ProgramKey())
		require.NoError(t, err)
		require.True(t, count.IsZero())

		return nil
	})
	require.NoError(t, err)
}

func TestTransaction_InvalidData(t *testing.T) {
	tx := Transaction[Receipt]{ProgramID: ProgramID, Data: "0OIl", TxHash: "0x03"}

	res := tx.Simulate()
	require.False(t, res.Succeeded())
	require.ErrorIs(t, res.Err(), ErrInvalidInstruction)
	require.Equal(t, CodeInstructionDidNotDeserialize, res.Code)
	require.Equal(t, CodeInstructionDidNotDeserialize, ErrorCode(res.Err()))
	require.Len(t, res.Logs, 1)
	require.True(t, strings.HasPrefix(res.Logs[0], "Program "+ProgramID+" failed: "))
}

func TestTransaction_InvalidDataReceipt(t *testing.T) {
	db := newTestDB(t)

	receipt := process(t, db, Transaction[Receipt]{ProgramID: ProgramID, Data: "0OIl", TxHash: "0x04"})

	require.Equal(t, apptypes.ReceiptFailed, receipt.Status())
	require.Equal(t, CodeInstructionDidNotDeserialize, receipt.Code)
	require.NotEmpty(t, receipt.Logs)
}

func TestValidateTxHash(t *testing.T) {
	valid := "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	require.NoError(t, ValidateTxHash(valid))

	for _, s := range []string{
		"",
		"0x",
		"not-hex",
		"0x01",
		strings.TrimPrefix(valid, "0x"), // missing prefix
		"0x" + strings.Repeat("zz", 32), // not hex
		"0x" + strings.Repeat("00", 32), // zero hash
		valid + "00",                    // too long
	} {
		require.ErrorIs(t, ValidateTxHash(s), ErrInvalidTxHash, "input %q", s)
	}
}

func TestTransaction_UnmarshalRejectsBadHash(t *testing.T) {
	for _, payload := range []string{
		`{"program_id":"` + ProgramID + `","instruction":"initialize"}`,
		`{"program_id":"` + ProgramID + `","instruction":"initialize","hash":"hello"}`,
		`{"program_id":"` + ProgramID + `","instruction":"initialize","hash":"0x` + strings.Repeat("0", 64) + `"}`,
	} {
		var tx Transaction[Receipt]
		require.ErrorIs(t, tx.Unmarshal([]byte(payload)), ErrInvalidTxHash, payload)
	}

	var tx Transaction[Receipt]
	require.Error(t, tx.Unmarshal([]byte(`{"hash":`)))
}

func TestTransaction_MarshalRoundTrip(t *testing.T) {
	tx := NewInitializeTransaction("0x0000000000000000000000000000000000000000000000000000000000000abc")
	tx.Accounts = []AccountMeta{{Pubkey: ProgramID, IsWritable: true}}

	data, err := tx.Marshal()
	require.NoError(t, err)

	var decoded Transaction[Receipt]
	require.NoError(t, decoded.Unmarshal(data))
	require.Equal(t, tx, decoded)
	require.Equal(t, tx.Hash(), decoded.Hash())
}

func TestListInvocations_Paging(t *testing.T) {
	db := newTestDB(t)

	for _, h := range []string{"0x01", "0x02", "0x03"} {
		process(t, db, NewInitializeTransaction(h))
	}

	err := db.View(context.Background(), func(tx kv.Tx) error {
		all, err := ListInvocations(t.Context(), tx, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, common.HexToHash("0x01"), all[0].TxHash)

		page, err := ListInvocations(t.Context(), tx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, common.HexToHash("0x02"), page[0].TxHash)

		empty, err := ListInvocations(t.Context(), tx, 5, 10)
		require.NoError(t, err)
		require.Empty(t, empty)

		_, err = GetInvocation(tx, common.HexToHash("0xff"))
		require.ErrorIs(t, err, ErrInvocationNotFound)

		count, err := InvocationCount(tx, ProgramKey())
		require.NoError(t, err)
		require.Equal(t, uint64(3), count.Uint64())

		return nil
	})
	require.NoError(t, err)
}
