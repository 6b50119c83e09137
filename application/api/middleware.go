package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/0xAtelerix/sdk/gosdk/rpc"
	"github.com/rs/zerolog"
)

// ErrNilRequestBody is returned when the request body is nil
var ErrNilRequestBody = errors.New("request body is nil")

// LoggingMiddleware logs every JSON-RPC request and its response.
type LoggingMiddleware struct {
	log zerolog.Logger
	now func() time.Time
}

func NewLoggingMiddleware(log zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		log: log,
		now: time.Now,
	}
}

func (m *LoggingMiddleware) ProcessRequest(
	_ http.ResponseWriter,
	r *http.Request,
) error {
	m.log.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote", r.RemoteAddr).
		Time("at", m.now()).
		Msg("RPC request")

	if r.Method == http.MethodPost && r.Body == nil {
		return ErrNilRequestBody
	}

	return nil
}

func (m *LoggingMiddleware) ProcessResponse(
	_ http.ResponseWriter,
	_ *http.Request,
	response rpc.JSONRPCResponse,
) error {
	if response.Error != nil {
		m.log.Warn().
			Interface("id", response.ID).
			Interface("error", response.Error).
			Msg("RPC error response")

		return nil
	}

	m.log.Debug().
		Interface("id", response.ID).
		Msg("RPC response")

	return nil
}
