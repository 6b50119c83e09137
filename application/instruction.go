package application

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

const InstructionInitialize = "initialize"

// DiscriminatorLength is the size of the instruction selector prefixed to instruction data.
const DiscriminatorLength = 8

type Discriminator [DiscriminatorLength]byte

func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// InstructionDiscriminator is sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) Discriminator {
	sum := sha256.Sum256([]byte("global:" + name))

	var d Discriminator
	copy(d[:], sum[:DiscriminatorLength])

	return d
}

// EncodeInstruction returns the base58 instruction data for a no-argument instruction.
func EncodeInstruction(name string) string {
	d := InstructionDiscriminator(name)

	return base58.Encode(d[:])
}

// DecodeInstructionData decodes base58 instruction data.
func DecodeInstructionData(data string) ([]byte, error) {
	raw, err := base58.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInstruction, err)
	}

	return raw, nil
}

// splitInstruction separates the discriminator from the argument bytes.
func splitInstruction(data []byte) (Discriminator, []byte, error) {
	var d Discriminator
	if len(data) < DiscriminatorLength {
		return d, nil, programError(ErrInstructionMissing, CodeInstructionMissing)
	}

	copy(d[:], data[:DiscriminatorLength])

	return d, data[DiscriminatorLength:], nil
}
