package application

import (
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func TestProgramKey_RoundTrip(t *testing.T) {
	key := ProgramKey()

	require.Len(t, key[:], 32)
	require.Equal(t, ProgramID, key.ToBase58())
}

func TestParsePublicKey_Invalid(t *testing.T) {
	for _, s := range []string{
		"",
		"0OIl",                             // not in the base58 alphabet
		base58.Encode([]byte("short key")), // wrong length
		base58.Encode(make([]byte, 33)),    // wrong length
	} {
		_, err := ParsePublicKey(s)
		require.ErrorIs(t, err, ErrInvalidPublicKey, "input %q", s)
	}
}

func TestInstructionDiscriminator_Initialize(t *testing.T) {
	d := InstructionDiscriminator(InstructionInitialize)

	require.Equal(t, Discriminator{0xaf, 0xaf, 0x6d, 0x1f, 0x0d, 0x98, 0x9b, 0xed}, d)
	require.Equal(t, "afaf6d1f0d989bed", d.String())

	raw, err := DecodeInstructionData(EncodeInstruction(InstructionInitialize))
	require.NoError(t, err)
	require.Equal(t, d[:], raw)
}

func TestInitialize_ZeroAccountsSucceeds(t *testing.T) {
	logs := &LogCollector{}
	ctx := &Context{ProgramID: ProgramKey(), logs: logs}

	require.NoError(t, Initialize(ctx))
	require.Equal(t, []string{"Program log: Greetings from: " + ProgramID}, logs.Lines())
}

func TestInitialize_WithoutCollector(t *testing.T) {
	ctx := &Context{ProgramID: ProgramKey()}
	require.Empty(t, ctx.Logs())

	require.NotPanics(t, func() {
		require.NoError(t, Initialize(ctx))
	})
	require.Equal(t, []string{"Program log: Greetings from: " + ProgramID}, ctx.Logs())
}

func TestRuntime_ExecuteInitialize(t *testing.T) {
	rt := DefaultRuntime()

	res := rt.Execute(Invoke{
		ProgramID: ProgramID,
		Data:      InstructionDiscriminator(InstructionInitialize).bytes(),
	})

	require.True(t, res.Succeeded())
	require.NoError(t, res.Err())
	require.Equal(t, InstructionInitialize, res.Instruction)
	require.Equal(t, CodeOK, res.Code)
	require.Zero(t, res.RemainingAccounts)
	require.Equal(t, []string{
		"Program " + ProgramID + " invoke [1]",
		"Program log: Instruction: Initialize",
		"Program log: Greetings from: " + ProgramID,
		"Program " + ProgramID + " success",
	}, res.Logs)
}

func TestRuntime_ExtraAccountsAreRemaining(t *testing.T) {
	res := DefaultRuntime().Execute(Invoke{
		ProgramID: ProgramID,
		Data:      InstructionDiscriminator(InstructionInitialize).bytes(),
		Accounts: []AccountMeta{
			{Pubkey: ProgramID},
			{Pubkey: base58.Encode(make([]byte, 32)), IsSigner: true, IsWritable: true},
		},
	})

	require.True(t, res.Succeeded())
	require.Equal(t, 2, res.RemainingAccounts)
}

func TestRuntime_ExecuteFailures(t *testing.T) {
	initialize := InstructionDiscriminator(InstructionInitialize).bytes()

	tests := []struct {
		name string
		in   Invoke
		err  error
		code uint32
	}{
		{
			name: "unknown program",
			in:   Invoke{ProgramID: base58.Encode(make([]byte, 32)), Data: initialize},
			err:  ErrProgramNotFound,
			code: CodeProgramNotFound,
		},
		{
			name: "malformed program id",
			in:   Invoke{ProgramID: "not-a-key", Data: initialize},
			err:  ErrInvalidPublicKey,
			code: CodeProgramNotFound,
		},
		{
			name: "missing data",
			in:   Invoke{ProgramID: ProgramID},
			err:  ErrInstructionMissing,
			code: CodeInstructionMissing,
		},
		{
			name: "short data",
			in:   Invoke{ProgramID: ProgramID, Data: initialize[:7]},
			err:  ErrInstructionMissing,
			code: CodeInstructionMissing,
		},
		{
			name: "unknown discriminator",
			in:   Invoke{ProgramID: ProgramID, Data: InstructionDiscriminator("close").bytes()},
			err:  ErrInstructionFallbackNotFound,
			code: CodeInstructionFallbackNotFound,
		},
		{
			name: "trailing arguments",
			in:   Invoke{ProgramID: ProgramID, Data: append(initialize, 1)},
			err:  ErrInstructionDidNotDeserialize,
			code: CodeInstructionDidNotDeserialize,
		},
		{
			name: "bad account key",
			in: Invoke{
				ProgramID: ProgramID,
				Data:      initialize,
				Accounts:  []AccountMeta{{Pubkey: "xyz"}},
			},
			err:  ErrInvalidAccountKey,
			code: CodeInvalidAccountKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DefaultRuntime().Execute(tt.in)

			require.False(t, res.Succeeded())
			require.ErrorIs(t, res.Err(), tt.err)
			require.Equal(t, tt.code, res.Code)
			require.Equal(t, tt.code, ErrorCode(res.Err()))
			require.NotEmpty(t, res.Logs)
			require.True(t, strings.HasPrefix(res.Logs[len(res.Logs)-1], "Program "+tt.in.ProgramID+" failed: "))
		})
	}
}

func TestRuntime_HandlerErrorGetsGenericCode(t *testing.T) {
	program := &Program{
		ID:   ProgramKey(),
		Name: "failing",
		Instructions: []Instruction{{
			Name: "boom",
			Handler: func(*Context) error {
				return Error("boom")
			},
		}},
	}

	res := NewRuntime(program).Execute(Invoke{
		ProgramID: ProgramID,
		Data:      InstructionDiscriminator("boom").bytes(),
	})

	require.False(t, res.Succeeded())
	require.Equal(t, CodeGeneric, res.Code)
	require.Equal(t, "boom", res.Instruction)
}

func (d Discriminator) bytes() []byte {
	return append([]byte(nil), d[:]...)
}
