package application

import (
	"errors"
	"fmt"

	solana "github.com/blocto/solana-go-sdk/common"
	"github.com/rs/zerolog/log"
)

// LogCollector accumulates the log lines of one invocation.
type LogCollector struct {
	lines []string
}

func (l *LogCollector) Program(msg string) {
	l.lines = append(l.lines, "Program log: "+msg)
}

func (l *LogCollector) runtime(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *LogCollector) Lines() []string {
	return append([]string(nil), l.lines...)
}

// Invoke is a decoded request to run an instruction.
type Invoke struct {
	ProgramID string
	Data      []byte
	Accounts  []AccountMeta
}

// ExecutionResult is the outcome of running one instruction.
type ExecutionResult struct {
	ProgramID         string   `json:"programId"`
	Instruction       string   `json:"instruction,omitempty"`
	RemainingAccounts int      `json:"remainingAccounts"`
	Logs              []string `json:"logs"`
	Error             string   `json:"error,omitempty"`
	Code              uint32   `json:"code"`

	err error
}

func (r ExecutionResult) Succeeded() bool {
	return r.err == nil
}

func (r ExecutionResult) Err() error {
	return r.err
}

// Runtime routes invocations to deployed programs.
type Runtime struct {
	programs map[solana.PublicKey]*Program
}

func NewRuntime(programs ...*Program) *Runtime {
	rt := &Runtime{programs: make(map[solana.PublicKey]*Program, len(programs))}
	for _, p := range programs {
		rt.programs[p.ID] = p
	}

	return rt
}

// DefaultRuntime hosts the blockchain program only.
func DefaultRuntime() *Runtime {
	return NewRuntime(NewBlockchainProgram())
}

func (rt *Runtime) Programs() []*Program {
	out := make([]*Program, 0, len(rt.programs))
	for _, p := range rt.programs {
		out = append(out, p)
	}

	return out
}

func (rt *Runtime) Program(id solana.PublicKey) (*Program, bool) {
	p, ok := rt.programs[id]

	return p, ok
}

// failedResult closes the log with the failure line and records err on res.
func failedResult(res ExecutionResult, logs *LogCollector, err error) ExecutionResult {
	logs.runtime("Program %s failed: %s", res.ProgramID, err)
	res.err = err
	res.Error = err.Error()
	res.Code = ErrorCode(err)
	res.Logs = logs.Lines()

	return res
}

// Execute runs the invocation without touching any storage.
func (rt *Runtime) Execute(in Invoke) ExecutionResult {
	res := ExecutionResult{ProgramID: in.ProgramID}
	logs := &LogCollector{}

	fail := func(err error) ExecutionResult {
		return failedResult(res, logs, err)
	}

	id, err := ParsePublicKey(in.ProgramID)
	if err != nil {
		return fail(programError(err, CodeProgramNotFound))
	}

	program, ok := rt.Program(id)
	if !ok {
		return fail(programError(fmt.Errorf("%w: %s", ErrProgramNotFound, in.ProgramID), CodeProgramNotFound))
	}

	logs.runtime("Program %s invoke [1]", in.ProgramID)

	for _, acc := range in.Accounts {
		if _, err := ParsePublicKey(acc.Pubkey); err != nil {
			return fail(programError(fmt.Errorf("%w: %w", ErrInvalidAccountKey, err), CodeInvalidAccountKey))
		}
	}

	d, args, err := splitInstruction(in.Data)
	if err != nil {
		return fail(err)
	}

	ix, ok := program.instruction(d)
	if !ok {
		return fail(programError(ErrInstructionFallbackNotFound, CodeInstructionFallbackNotFound))
	}

	res.Instruction = ix.Name

	// none of the instructions take arguments
	if len(args) > 0 {
		return fail(programError(ErrInstructionDidNotDeserialize, CodeInstructionDidNotDeserialize))
	}

	var remaining []AccountMeta
	if len(in.Accounts) > ix.Accounts {
		remaining = in.Accounts[ix.Accounts:]
	}

	res.RemainingAccounts = len(remaining)

	logs.Program("Instruction: " + instructionTitle(ix.Name))

	ctx := &Context{
		ProgramID:         program.ID,
		RemainingAccounts: remaining,
		logs:              logs,
	}

	if err := ix.Handler(ctx); err != nil {
		var perr *ProgramError
		if !errors.As(err, &perr) {
			err = programError(err, CodeGeneric)
		}

		return fail(err)
	}

	logs.runtime("Program %s success", in.ProgramID)

	res.Logs = logs.Lines()

	log.Debug().
		Str("program", in.ProgramID).
		Str("instruction", ix.Name).
		Int("remaining_accounts", res.RemainingAccounts).
		Msg("Instruction executed")

	return res
}

// instructionTitle turns "initialize" into "Initialize" for the instruction log line.
func instructionTitle(name string) string {
	if name == "" {
		return name
	}

	b := []byte(name)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}

	return string(b)
}
