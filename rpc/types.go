package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeForbidden      = -32002
	codeNotFound       = -32004
	codeConflict       = -32009
	codeRateLimited    = -32020
	codePaused         = -32030
	codeServerError    = -32000
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Result:  result,
	})
}

// decodeParams unmarshals the single object parameter every mutating method
// takes. Methods with no parameters pass a nil target.
func decodeParams(req *RPCRequest, target interface{}) error {
	if target == nil {
		if len(req.Params) != 0 {
			return fmt.Errorf("no parameters expected")
		}
		return nil
	}
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object required")
	}
	if err := json.Unmarshal(req.Params[0], target); err != nil {
		return fmt.Errorf("invalid parameter object: %w", err)
	}
	return nil
}

// decodeOptionalParams is decodeParams for queries whose parameter object
// may be omitted entirely.
func decodeOptionalParams(req *RPCRequest, target interface{}) error {
	if len(req.Params) == 0 {
		return nil
	}
	return decodeParams(req, target)
}

func parseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", trimmed)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", trimmed)
	}
	return amount, nil
}
