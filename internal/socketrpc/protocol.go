package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 method reference
//
// The socket RPC server exposes model.CounterReader over a Unix domain socket,
// one JSON document per line.
//
//   Method          Params            Result
//   ------------    --------------    --------------------------------
//   ListCounters    {Limit: int}      []Counter (oldest month first)
//   CounterCount    (none)            int64
//   Ping            (none)            "pong"
//
// Limit <= 0 returns every stored month. Methods without params accept
// empty or null params.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (query failure)

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeApplication    = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/reqchart/reqchart.sock, falling back to
// ~/.local/state/reqchart/reqchart.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "reqchart", "reqchart.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/reqchart.sock"
	}
	return filepath.Join(home, ".local", "state", "reqchart", "reqchart.sock")
}
