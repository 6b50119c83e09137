package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/0xAtelerix/sdk/gosdk/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/kv"

	"github.com/0xAtelerix/blockchain/application"
)

const defaultListLimit = 100

type CustomRPC struct {
	rpcServer *rpc.StandardRPCServer
	db        kv.RoDB
}

func NewCustomRPC(rpcServer *rpc.StandardRPCServer, db kv.RoDB) *CustomRPC {
	return &CustomRPC{
		rpcServer: rpcServer,
		db:        db,
	}
}

func (c *CustomRPC) AddRPCMethods() {
	c.rpcServer.AddMethod("getProgram", c.GetProgram)
	c.rpcServer.AddMethod("getInvocation", c.GetInvocation)
	c.rpcServer.AddMethod("listInvocations", c.ListInvocations)
	c.rpcServer.AddMethod("simulateTransaction", c.SimulateTransaction)
}

type GetProgramRequest struct {
	ProgramID string `json:"programId"`
}

type ProgramResponse struct {
	*application.ProgramRecord

	Invocations *uint256.Int `json:"invocations"`
}

type GetInvocationRequest struct {
	Hash string `json:"hash"`
}

type ListInvocationsRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// decodeParam re-encodes the first positional param into dst.
func decodeParam(params []any, dst any) error {
	if len(params) == 0 {
		return application.ErrMissingParameters
	}

	paramBytes, err := json.Marshal(params[0])
	if err != nil {
		return fmt.Errorf("failed to marshal parameter: %w", err)
	}

	if err := json.Unmarshal(paramBytes, dst); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	return nil
}

// GetProgram returns the registry entry of a deployed program and its invocation count.
func (c *CustomRPC) GetProgram(ctx context.Context, params []any) (any, error) {
	req := GetProgramRequest{ProgramID: application.ProgramID}
	if len(params) > 0 {
		if err := decodeParam(params, &req); err != nil {
			return nil, err
		}
	}

	id, err := application.ParsePublicKey(req.ProgramID)
	if err != nil {
		return nil, err
	}

	if c.db == nil {
		return nil, application.ErrDatabaseNotAvailable
	}

	tx, err := c.db.BeginRo(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ro: %w", err)
	}
	defer tx.Rollback()

	rec, err := application.GetProgram(tx, id)
	if err != nil {
		return nil, err
	}

	count, err := application.InvocationCount(tx, id)
	if err != nil {
		return nil, err
	}

	return ProgramResponse{ProgramRecord: rec, Invocations: count}, nil
}

// GetInvocation returns the stored outcome of a processed transaction.
func (c *CustomRPC) GetInvocation(ctx context.Context, params []any) (any, error) {
	var req GetInvocationRequest
	if err := decodeParam(params, &req); err != nil {
		return nil, err
	}

	if req.Hash == "" {
		return nil, application.ErrMissingParameters
	}

	if c.db == nil {
		return nil, application.ErrDatabaseNotAvailable
	}

	tx, err := c.db.BeginRo(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ro: %w", err)
	}
	defer tx.Rollback()

	inv, err := application.GetInvocation(tx, common.HexToHash(req.Hash))
	if err != nil {
		return nil, err
	}

	return inv, nil
}

// ListInvocations pages through stored invocations ordered by tx hash.
func (c *CustomRPC) ListInvocations(ctx context.Context, params []any) (any, error) {
	req := ListInvocationsRequest{Limit: defaultListLimit}
	if len(params) > 0 {
		if err := decodeParam(params, &req); err != nil {
			return nil, err
		}
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.Limit <= 0 || req.Limit > defaultListLimit {
		req.Limit = defaultListLimit
	}

	if c.db == nil {
		return nil, application.ErrDatabaseNotAvailable
	}

	tx, err := c.db.BeginRo(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ro: %w", err)
	}
	defer tx.Rollback()

	invocations, err := application.ListInvocations(ctx, tx, req.Offset, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}

	return invocations, nil
}

// SimulateTransaction executes a transaction without submitting it.
func (*CustomRPC) SimulateTransaction(_ context.Context, params []any) (any, error) {
	var tx application.Transaction[application.Receipt]
	if err := decodeParam(params, &tx); err != nil {
		return nil, err
	}

	return tx.Simulate(), nil
}
