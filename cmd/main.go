package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xAtelerix/sdk/gosdk"
	"github.com/0xAtelerix/sdk/gosdk/rpc"
	"github.com/0xAtelerix/sdk/gosdk/txpool"
	"github.com/fxamacker/cbor/v2"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/ledgerwatch/erigon-lib/kv/mdbx"
	mdbxlog "github.com/ledgerwatch/log/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/0xAtelerix/blockchain/application"
	"github.com/0xAtelerix/blockchain/application/api"
)

const ChainID = 1001

var (
	ErrAppchainStopped  = errors.New("appchain stopped")
	ErrRPCServerStopped = errors.New("rpc server stopped")
)

type RuntimeArgs struct {
	EmitterPort      string
	AppchainDBPath   string
	EventStreamDir   string
	TxStreamDir      string
	LocalDBPath      string
	RPCPort          string
	MultichainConfig gosdk.MultichainConfig
	LogLevel         zerolog.Level
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	RunCLI(ctx)
}

func RunCLI(ctx context.Context) {
	args, err := ParseArgs(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid arguments")
	}

	if err := Run(ctx, args, nil); err != nil {
		log.Fatal().Err(err).Msg("Appchain node stopped")
	}
}

// ParseArgs reads the node flags. Defaults come from the SDK appchain config.
func ParseArgs(name string, argv []string) (RuntimeArgs, error) {
	config := gosdk.MakeAppchainConfig(ChainID, nil)

	// Use a local FlagSet (no globals).
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	emitterPort := fs.String("emitter-port", config.EmitterPort, "Emitter gRPC port")
	appchainDBPath := fs.String("db-path", config.AppchainDBPath, "Path to appchain DB")
	streamDir := fs.String("stream-dir", config.EventStreamDir, "Event stream directory")
	txDir := fs.String("tx-dir", config.TxStreamDir, "Transaction stream directory")

	localDBPath := fs.String("local-db-path", "./localdb", "Path to local DB")
	rpcPort := fs.String("rpc-port", ":8080", "Port for the JSON-RPC server")
	multichainConfigJSON := fs.String("multichain-config", "", "Multichain config JSON path")
	logLevel := fs.Int("log-level", int(zerolog.InfoLevel), "Logging level")

	if err := fs.Parse(argv); err != nil {
		return RuntimeArgs{}, err
	}

	level := zerolog.Level(*logLevel)
	if level > zerolog.Disabled {
		level = zerolog.DebugLevel
	} else if level < zerolog.TraceLevel {
		level = zerolog.TraceLevel
	}

	var mcDbs gosdk.MultichainConfig

	if *multichainConfigJSON != "" {
		f, err := os.ReadFile(*multichainConfigJSON)
		if err != nil {
			return RuntimeArgs{}, fmt.Errorf("read multichain config: %w", err)
		}

		if err := json.Unmarshal(f, &mcDbs); err != nil {
			log.Warn().Err(err).Msg("Error unmarshalling multichain config")
		}
	}

	return RuntimeArgs{
		EmitterPort:      *emitterPort,
		AppchainDBPath:   *appchainDBPath,
		EventStreamDir:   *streamDir,
		TxStreamDir:      *txDir,
		LocalDBPath:      *localDBPath,
		RPCPort:          *rpcPort,
		LogLevel:         level,
		MultichainConfig: mcDbs,
	}, nil
}

func openDB(path string, tables kv.TableCfg, readonly bool) (kv.RwDB, error) {
	opts := mdbx.NewMDBX(mdbxlog.New()).
		Path(path).
		WithTableCfg(func(_ kv.TableCfg) kv.TableCfg {
			return tables
		})

	if readonly {
		opts = opts.Readonly()
	}

	return opts.Open()
}

// seedValidatorSet writes a single-validator set for epoch 1.
// TODO: read the validator set from the multichain config once pelacli exposes it.
func seedValidatorSet(ctx context.Context, db kv.RwDB) error {
	valset := &gosdk.ValidatorSet{Set: map[gosdk.ValidatorID]gosdk.Stake{0: 100}}

	var epochKey [4]byte
	binary.BigEndian.PutUint32(epochKey[:], 1)

	valsetData, err := cbor.Marshal(valset)
	if err != nil {
		return fmt.Errorf("marshal validator set: %w", err)
	}

	return db.Update(ctx, func(tx kv.RwTx) error {
		return tx.Put(gosdk.ValsetBucket, epochKey[:], valsetData)
	})
}

// Run starts the node and blocks until it is cancelled or either the
// appchain loop or the RPC server stops on its own.
func Run(ctx context.Context, args RuntimeArgs, _ chan<- int) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(args.LogLevel)

	// Cancel on SIGINT/SIGTERM too
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	config := gosdk.MakeAppchainConfig(ChainID, args.MultichainConfig)

	config.EmitterPort = args.EmitterPort
	config.AppchainDBPath = args.AppchainDBPath
	config.EventStreamDir = args.EventStreamDir
	config.TxStreamDir = args.TxStreamDir

	chainDBs, err := gosdk.NewMultichainStateAccessDB(args.MultichainConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create multichain db")
	}

	msa := gosdk.NewMultichainStateAccess(chainDBs)

	appchainDB, err := openDB(config.AppchainDBPath, gosdk.MergeTables(
		gosdk.DefaultTables(),
		application.Tables(),
	), false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open appchain mdbx database")
	}

	defer appchainDB.Close()

	subs, err := gosdk.NewSubscriber(ctx, appchainDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create subscriber")
	}

	stateTransition := gosdk.NewBatchProcesser[application.Transaction[application.Receipt]](
		application.NewStateTransition(msa),
		msa,
		subs,
	)

	localDB, err := openDB(args.LocalDBPath, txpool.Tables(), false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local mdbx database")
	}

	defer localDB.Close()

	if err := seedValidatorSet(ctx, appchainDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to store validator set")
	}

	txPool := txpool.NewTxPool[application.Transaction[application.Receipt]](
		localDB,
	)

	txBatchDB, err := openDB(config.TxStreamDir, gosdk.TxBucketsTables(), true)
	if err != nil {
		log.Fatal().Str("path", config.TxStreamDir).Err(err).Msg("Failed to open tx batch mdbx database")
	}

	log.Info().Str("program_id", application.ProgramID).Msg("Starting appchain...")

	appchain := gosdk.NewAppchain(
		stateTransition,
		application.BlockConstructor,
		txPool,
		config,
		appchainDB,
		subs,
		msa,
		txBatchDB,
	)

	log.Info().Msg("Initializing genesis state...")

	if err := application.InitializeGenesis(ctx, appchainDB, application.DefaultRuntime()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize genesis state")
	}

	runErr := make(chan error, 1)

	go func() {
		runErr <- appchain.Run(ctx, nil)
	}()

	rpcServer := rpc.NewStandardRPCServer(nil)

	rpcServer.AddMiddleware(api.NewLoggingMiddleware(log.Logger))

	// sendTransaction, getTransactionByHash, getTransactionStatus, ...
	rpc.AddStandardMethods(rpcServer, appchainDB, txPool)

	// getProgram, getInvocation, listInvocations, simulateTransaction
	api.NewCustomRPC(rpcServer, appchainDB).AddRPCMethods()

	log.Info().Str("addr", args.RPCPort).Msg("Starting RPC server")

	rpcErr := make(chan error, 1)

	go func() {
		rpcErr <- rpcServer.StartHTTPServer(ctx, args.RPCPort)
	}()

	return waitForShutdown(ctx, cancel, runErr, rpcErr)
}

// waitForShutdown blocks until ctx is done or one of the node loops
// returns. A loop that returns while ctx is still live is an error, and
// cancel is called so the other loop stops too.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, runErr, rpcErr <-chan error) error {
	defer cancel()

	var err error

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")

		return nil
	case err = <-runErr:
		err = stoppedErr(ctx, ErrAppchainStopped, err)
	case err = <-rpcErr:
		err = stoppedErr(ctx, ErrRPCServerStopped, err)
	}

	if err != nil {
		log.Error().Err(err).Msg("Node loop stopped")
	}

	return err
}

func stoppedErr(ctx context.Context, loop, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", loop, err)
	case ctx.Err() != nil:
		return nil
	default:
		return loop
	}
}
