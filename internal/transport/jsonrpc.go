package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// /rpc carries plain tool calls as JSON-RPC 2.0: the method names a tool
// and params are its arguments. Batches are not accepted.

// JSON-RPC error codes used by /rpc.
const (
	CodeParse          = -32700
	CodeInvalidRequest = -32600
	CodeUnknownTool    = -32601
	CodeInvalidParams  = -32602
	CodeToolFailed     = -32603
)

// maxCallBytes bounds the size of a tool call body.
const maxCallBytes = 1 << 20

var (
	errMalformed = errors.New("malformed tool call")
	errNotACall  = errors.New("not a JSON-RPC 2.0 tool call")
)

// ToolCall is a decoded /rpc request.
type ToolCall struct {
	JSONRPC string          `json:"jsonrpc"`
	Tool    string          `json:"method"`
	Args    json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Reply is the /rpc response envelope.
type Reply struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
	ID      any       `json:"id,omitempty"`
}

// RPCError is the error member of a Reply. For tool errors Data holds the
// tool's own error, with its code and recovery hint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// codedError is implemented by errors that carry a stable error code.
type codedError interface {
	error
	CodeValue() string
}

// DecodeToolCall reads a single tool call from body.
func DecodeToolCall(body io.Reader) (ToolCall, error) {
	var call ToolCall
	if err := json.NewDecoder(io.LimitReader(body, maxCallBytes)).Decode(&call); err != nil {
		return ToolCall{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if call.JSONRPC != "2.0" || strings.TrimSpace(call.Tool) == "" {
		return ToolCall{}, errNotACall
	}
	return call, nil
}

// decodeFailure picks the reply for a body DecodeToolCall rejected.
func decodeFailure(err error) *RPCError {
	if errors.Is(err, errMalformed) {
		return &RPCError{Code: CodeParse, Message: "parse error"}
	}
	return &RPCError{Code: CodeInvalidRequest, Message: "invalid request"}
}

// toolFailure picks the reply for an error returned by a tool.
func toolFailure(err error) *RPCError {
	var coded codedError
	if !errors.As(err, &coded) {
		return &RPCError{Code: CodeToolFailed, Message: err.Error()}
	}
	code := CodeToolFailed
	switch coded.CodeValue() {
	case "UNKNOWN_TOOL":
		code = CodeUnknownTool
	case "INVALID_PARAMS":
		code = CodeInvalidParams
	}
	return &RPCError{Code: code, Message: coded.Error(), Data: coded}
}

// writeReply always answers 200; failures travel in the envelope.
func writeReply(w http.ResponseWriter, reply Reply) {
	reply.JSONRPC = "2.0"
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(reply)
}
