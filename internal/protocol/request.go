package protocol

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/wagiedev/sidecar-bridge-go/internal/errors"
)

// Version is the protocol tag carried by every request.
const Version = "2.0"

var (
	errMissingID = stderrors.New("response has no id")
	errInvalidID = stderrors.New("response id is not an unsigned integer")
)

// Request is a call sent to the worker.
//
// Wire format:
//
//	{"jsonrpc":"2.0","id":1,"method":"diagnose","params":{"text":"wifi is down"}}
type Request struct {
	// JSONRPC is always Version
	JSONRPC string `json:"jsonrpc"`

	// ID uniquely identifies this call for response correlation
	ID uint64 `json:"id"`

	// Method names the worker handler to invoke
	Method string `json:"method"`

	// Params is any JSON-encodable value; nil is sent as {}
	Params any `json:"params"`
}

// NewRequest builds a request for method with the given params.
func NewRequest(id uint64, method string, params any) *Request {
	if params == nil {
		params = map[string]any{}
	}

	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Response is a worker answer routed back to a pending call.
//
// Wire format for success:
//
//	{"id":1,"result":{...}}
//
// Wire format for error:
//
//	{"id":1,"error":{"code":-32000,"message":"..."}}
//
// Exactly one of Result and Error is set after decoding. A response with
// neither (or with "error": null) decodes to a JSON null Result.
type Response struct {
	ID     uint64
	Result json.RawMessage
	Error  json.RawMessage
}

// IsError checks if the worker answered with an error payload.
func (r *Response) IsError() bool {
	return r.Error != nil
}

// decodeResponse parses one line of worker output.
//
// Lines that are not JSON objects return a JSONDecodeError; objects without
// a usable id return errMissingID or errInvalidID.
func decodeResponse(line []byte) (*Response, error) {
	var envelope map[string]json.RawMessage

	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, &errors.JSONDecodeError{RawData: string(line), Err: err}
	}

	rawID, ok := envelope["id"]
	if !ok {
		return nil, errMissingID
	}

	var id uint64
	if err := json.Unmarshal(rawID, &id); err != nil || isNull(rawID) {
		return nil, fmt.Errorf("%w: %s", errInvalidID, rawID)
	}

	resp := &Response{ID: id}

	if result, ok := envelope["result"]; ok {
		resp.Result = result
	} else if errPayload, ok := envelope["error"]; ok && !isNull(errPayload) {
		resp.Error = errPayload
	} else {
		resp.Result = json.RawMessage("null")
	}

	return resp, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
