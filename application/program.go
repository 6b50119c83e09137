package application

import (
	"fmt"

	solana "github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// ProgramID is the address the program is deployed under.
const ProgramID = "A44iQK5oFoZDpbDUn3gturKbPWNtEax3x6RBARxPcUGk"

// ProgramName is the name the program is registered with at genesis.
const ProgramName = "blockchain"

// ParsePublicKey decodes a base58 address into a 32-byte key.
func ParsePublicKey(s string) (solana.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w %q: %w", ErrInvalidPublicKey, s, err)
	}

	if len(raw) != len(solana.PublicKey{}) {
		return solana.PublicKey{}, fmt.Errorf("%w %q: got %d bytes", ErrInvalidPublicKey, s, len(raw))
	}

	return solana.PublicKeyFromBytes(raw), nil
}

// ProgramKey returns the parsed ProgramID.
func ProgramKey() solana.PublicKey {
	key, err := ParsePublicKey(ProgramID)
	if err != nil {
		panic(err)
	}

	return key
}

// Context is what an instruction handler receives: the invoked program
// and the accounts passed with the instruction.
type Context struct {
	ProgramID solana.PublicKey
	// Accounts the instruction does not declare.
	RemainingAccounts []AccountMeta
	logs              *LogCollector
}

// Msg appends a program log line. A Context built without a collector
// gets one on first use.
func (c *Context) Msg(format string, args ...any) {
	if c.logs == nil {
		c.logs = &LogCollector{}
	}

	c.logs.Program(fmt.Sprintf(format, args...))
}

// Logs returns the program log lines written so far.
func (c *Context) Logs() []string {
	if c.logs == nil {
		return nil
	}

	return c.logs.Lines()
}

// AccountMeta references an account passed to an instruction.
type AccountMeta struct {
	Pubkey     string `json:"pubkey"     cbor:"1,keyasint"`
	IsSigner   bool   `json:"isSigner"   cbor:"2,keyasint"`
	IsWritable bool   `json:"isWritable" cbor:"3,keyasint"`
}

// InstructionHandler executes one instruction.
type InstructionHandler func(ctx *Context) error

// Instruction binds a handler to its name and the number of accounts it declares.
type Instruction struct {
	Name     string
	Accounts int
	Handler  InstructionHandler
}

// Program is a deployed program: an id and its instruction set.
type Program struct {
	ID           solana.PublicKey
	Name         string
	Instructions []Instruction
}

func (p *Program) instruction(d Discriminator) (Instruction, bool) {
	for _, ix := range p.Instructions {
		if InstructionDiscriminator(ix.Name) == d {
			return ix, true
		}
	}

	return Instruction{}, false
}

// InstructionNames lists the program's instructions in declaration order.
func (p *Program) InstructionNames() []string {
	names := make([]string, 0, len(p.Instructions))
	for _, ix := range p.Instructions {
		names = append(names, ix.Name)
	}

	return names
}

// NewBlockchainProgram returns the program declared under ProgramID.
func NewBlockchainProgram() *Program {
	return &Program{
		ID:   ProgramKey(),
		Name: ProgramName,
		Instructions: []Instruction{
			{Name: InstructionInitialize, Accounts: 0, Handler: Initialize},
		},
	}
}

// Initialize takes no accounts and always succeeds.
func Initialize(ctx *Context) error {
	ctx.Msg("Greetings from: %s", ctx.ProgramID.ToBase58())

	return nil
}
