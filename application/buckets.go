package application

import "github.com/ledgerwatch/erigon-lib/kv"

const (
	ProgramsBucket    = "appprograms"    // program id -> cbor ProgramRecord, program id + ":invocations" -> uint256
	InvocationsBucket = "appinvocations" // tx hash -> cbor Invocation
)

func Tables() kv.TableCfg {
	return kv.TableCfg{
		ProgramsBucket:    {},
		InvocationsBucket: {},
	}
}
