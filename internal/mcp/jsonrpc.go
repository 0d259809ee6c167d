// Package mcp implements a minimal Model Context Protocol client over a
// stdio transport, used to extend the tool registry at startup with tools
// discovered from external MCP server processes.
package mcp

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// JSON-RPC 2.0 specification: https://www.jsonrpc.org/specification

const jsonRPCVersion = "2.0"

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id,omitempty"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

type idGenerator struct {
	counter atomic.Int64
}

func (g *idGenerator) next() int64 { return g.counter.Add(1) }

func newRequest(id int64, method string, params map[string]any) *request {
	return &request{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params}
}
