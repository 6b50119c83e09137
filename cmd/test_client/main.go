package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/0xAtelerix/blockchain/application"
)

type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

const (
	maxRetries      = 5
	statusProcessed = "Processed"
)

type rpcClient struct {
	client    *http.Client
	url       string
	mu        sync.Mutex
	requestID int64
}

func newRPCClient(url string) *rpcClient {
	return &rpcClient{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
	}
}

func (c *rpcClient) nextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestID++

	return c.requestID
}

// call retries transport failures; JSON-RPC errors are returned as is.
func (c *rpcClient) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID(),
	})
	if err != nil {
		return err
	}

	var lastErr error

	for retry := 0; retry < maxRetries; retry++ {
		if retry > 0 {
			time.Sleep(time.Duration(retry) * 200 * time.Millisecond)
		}

		var resp JSONRPCResponse
		if lastErr = c.post(ctx, reqBody, &resp); lastErr != nil {
			continue
		}

		if resp.Error != nil {
			return resp.Error
		}

		if out == nil {
			return nil
		}

		return json.Unmarshal(resp.Result, out)
	}

	return lastErr
}

func (c *rpcClient) post(ctx context.Context, body []byte, out *JSONRPCResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}

type stats struct {
	mu        sync.Mutex
	succeeded int
	failed    int
}

func (s *stats) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.failed++

		return
	}

	s.succeeded++
}

func main() {
	rpcURL := flag.String("rpc", "http://localhost:8080/rpc", "JSON-RPC endpoint")
	count := flag.Int("count", 1, "Number of initialize invocations to send")
	workers := flag.Int("workers", 4, "Concurrent senders")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx := context.Background()
	client := newRPCClient(*rpcURL)

	var program json.RawMessage
	if err := client.call(ctx, "getProgram", []any{map[string]any{"programId": application.ProgramID}}, &program); err != nil {
		log.Fatal().Err(err).Msg("Program is not deployed")
	}

	log.Info().RawJSON("program", program).Msg("Program")

	var sim application.ExecutionResult
	if err := client.call(ctx, "simulateTransaction", []any{application.NewInitializeTransaction("0x0")}, &sim); err != nil {
		log.Fatal().Err(err).Msg("Simulation failed")
	}

	log.Info().Strs("logs", sim.Logs).Msg("Simulated initialize")

	jobs := make(chan int)
	st := &stats{}
	start := time.Now()

	var wg sync.WaitGroup

	for w := 0; w < *workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				err := invokeInitialize(ctx, client, start.UnixNano()+int64(i))
				if err != nil {
					log.Error().Err(err).Int("n", i).Msg("Invocation failed")
				}

				st.record(err)
			}
		}()
	}

	for i := 0; i < *count; i++ {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	log.Info().
		Int("succeeded", st.succeeded).
		Int("failed", st.failed).
		Dur("elapsed", time.Since(start)).
		Msg("Done")
}

func invokeInitialize(ctx context.Context, client *rpcClient, nonce int64) error {
	txHash := fmt.Sprintf("0x%064x", nonce)
	tx := application.NewInitializeTransaction(txHash)

	if err := client.call(ctx, "sendTransaction", []any{tx}, nil); err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}

	var status string

	for retry := 0; retry < maxRetries; retry++ {
		time.Sleep(time.Duration(retry+1) * time.Second)

		var result any
		if err := client.call(ctx, "getTransactionStatus", []any{txHash}, &result); err != nil {
			log.Warn().Err(err).Int("attempt", retry+1).Msg("Status check failed")

			continue
		}

		status = fmt.Sprintf("%v", result)

		if status == statusProcessed {
			break
		}
	}

	if status != statusProcessed {
		return fmt.Errorf("transaction %s not processed in time, last status %q", txHash, status)
	}

	var inv application.Invocation
	if err := client.call(ctx, "getInvocation", []any{map[string]any{"hash": txHash}}, &inv); err != nil {
		return fmt.Errorf("get invocation: %w", err)
	}

	log.Info().
		Str("tx", txHash).
		Strs("logs", inv.Logs).
		Msg("Initialize processed")

	return nil
}
