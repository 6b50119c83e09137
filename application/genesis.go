package application

import (
	"context"
	"fmt"

	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/rs/zerolog/log"
)

var genesisMarker = []byte("genesis_initialized")

// InitializeGenesis registers the runtime's programs on first startup.
func InitializeGenesis(ctx context.Context, db kv.RwDB, rt *Runtime) error {
	if db == nil {
		return ErrDatabaseNil
	}

	tx, err := db.BeginRw(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	existing, err := tx.GetOne(ProgramsBucket, genesisMarker)
	if err != nil {
		return fmt.Errorf("failed to check genesis marker: %w", err)
	}

	if len(existing) > 0 {
		log.Info().Msg("Genesis already initialized, skipping...")

		return tx.Commit()
	}

	log.Info().Msg("First startup detected - deploying programs...")

	for _, program := range rt.Programs() {
		rec := NewProgramRecord(program)

		if err := PutProgram(tx, program.ID, rec); err != nil {
			return fmt.Errorf("failed to deploy program %s: %w", rec.ID, err)
		}

		log.Info().
			Str("program_id", rec.ID).
			Str("name", rec.Name).
			Strs("instructions", rec.Instructions).
			Msg("Deployed program")
	}

	if err := tx.Put(ProgramsBucket, genesisMarker, []byte("true")); err != nil {
		return fmt.Errorf("failed to set genesis marker: %w", err)
	}

	log.Info().Msg("Genesis initialization completed successfully!")

	return tx.Commit()
}
