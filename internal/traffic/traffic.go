package traffic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lydakis/masq/internal/uigateway"
)

const (
	resultOK    = "ok"
	resultError = "error"
	oneWayPath  = "OneWay"
)

// DeserializationErrorKind distinguishes text that is not JSON from JSON that
// does not have the envelope shape.
type DeserializationErrorKind int

const (
	JSONSyntaxError DeserializationErrorKind = iota
	SchemaError
)

func (k DeserializationErrorKind) String() string {
	switch k {
	case JSONSyntaxError:
		return "JsonSyntaxError"
	case SchemaError:
		return "SchemaError"
	default:
		return fmt.Sprintf("DeserializationErrorKind(%d)", int(k))
	}
}

// DeserializationError reports inbound text that could not be turned into an
// envelope. Opcode and Path are filled in when they were readable, so the
// failure can still be attributed to a conversation.
type DeserializationError struct {
	Kind   DeserializationErrorKind
	Opcode string
	Path   *uigateway.MessagePath
	Detail string
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("%s(%q)", e.Kind, e.Detail)
}

// Critical reports whether the failure happened before the path was known.
func (e *DeserializationError) Critical() bool {
	return e.Path == nil
}

type wireEnvelope struct {
	Opcode  string          `json:"opcode"`
	Path    json.RawMessage `json:"path"`
	Result  string          `json:"result"`
	Payload json.RawMessage `json:"payload"`
}

type wireError struct {
	Code    uint64 `json:"code"`
	Message string `json:"message"`
}

// MarshalFromUI renders a client-to-node message as envelope JSON. It panics
// if the body's success payload is not valid JSON, which message
// constructors rule out.
func MarshalFromUI(msg uigateway.NodeFromUiMessage) string {
	return marshalBody(msg.Body)
}

// MarshalToUI renders a node-to-client message as envelope JSON. The target is
// not part of the wire format.
func MarshalToUI(msg uigateway.NodeToUiMessage) string {
	return marshalBody(msg.Body)
}

// UnmarshalToUI parses envelope JSON received by a client. target is recorded
// on the result since the wire does not carry it.
func UnmarshalToUI(raw string, target uigateway.MessageTarget) (uigateway.NodeToUiMessage, error) {
	body, err := unmarshalBody(raw)
	if err != nil {
		return uigateway.NodeToUiMessage{}, err
	}
	return uigateway.NodeToUiMessage{Target: target, Body: body}, nil
}

// UnmarshalFromUI parses envelope JSON received by the node side.
func UnmarshalFromUI(raw string, clientID uint64) (uigateway.NodeFromUiMessage, error) {
	body, err := unmarshalBody(raw)
	if err != nil {
		return uigateway.NodeFromUiMessage{}, err
	}
	return uigateway.NodeFromUiMessage{ClientID: clientID, Body: body}, nil
}

func marshalBody(body uigateway.MessageBody) string {
	env := wireEnvelope{
		Opcode: body.Opcode,
		Path:   marshalPath(body.Path),
	}
	if body.Error != nil {
		env.Result = resultError
		env.Payload, _ = json.Marshal(wireError{Code: body.Error.Code, Message: body.Error.Message})
	} else {
		env.Result = resultOK
		env.Payload = body.Payload
		if len(env.Payload) == 0 {
			env.Payload = json.RawMessage("null")
		}
	}

	data, err := json.Marshal(env)
	if err != nil {
		panic(fmt.Sprintf("marshaling %q envelope: %v", body.Opcode, err))
	}
	return string(data)
}

func marshalPath(path uigateway.MessagePath) json.RawMessage {
	if !path.IsTwoWay() {
		return json.RawMessage(`"` + oneWayPath + `"`)
	}
	return json.RawMessage(fmt.Sprintf("%d", path.ContextID()))
}

func unmarshalBody(raw string) (uigateway.MessageBody, error) {
	data := []byte(raw)
	if !json.Valid(data) {
		var probe any
		detail := "invalid JSON"
		if err := json.Unmarshal(data, &probe); err != nil {
			detail = err.Error()
		}
		return uigateway.MessageBody{}, &DeserializationError{Kind: JSONSyntaxError, Detail: detail}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return uigateway.MessageBody{}, schemaError("", nil, "message is not a JSON object")
	}

	opcodeRaw, ok := fields["opcode"]
	if !ok {
		return uigateway.MessageBody{}, schemaError("", nil, "missing field 'opcode'")
	}
	var opcode string
	if err := json.Unmarshal(opcodeRaw, &opcode); err != nil {
		return uigateway.MessageBody{}, schemaError("", nil, "field 'opcode' must be a string")
	}

	pathRaw, ok := fields["path"]
	if !ok {
		return uigateway.MessageBody{}, schemaError(opcode, nil, "missing field 'path'")
	}
	path, err := unmarshalPath(pathRaw)
	if err != nil {
		return uigateway.MessageBody{}, schemaError(opcode, nil, err.Error())
	}

	resultRaw, ok := fields["result"]
	if !ok {
		return uigateway.MessageBody{}, schemaError(opcode, &path, "missing field 'result'")
	}
	var result string
	if err := json.Unmarshal(resultRaw, &result); err != nil {
		return uigateway.MessageBody{}, schemaError(opcode, &path, "field 'result' must be a string")
	}

	payload, ok := fields["payload"]
	if !ok {
		return uigateway.MessageBody{}, schemaError(opcode, &path, "missing field 'payload'")
	}

	switch result {
	case resultOK:
		return uigateway.SuccessBody(opcode, path, append(json.RawMessage(nil), payload...)), nil
	case resultError:
		code, message, err := unmarshalErrorPayload(payload)
		if err != nil {
			return uigateway.MessageBody{}, schemaError(opcode, &path, err.Error())
		}
		return uigateway.ErrorBody(opcode, path, code, message), nil
	default:
		return uigateway.MessageBody{}, schemaError(opcode, &path, fmt.Sprintf("field 'result' must be %q or %q, got %q", resultOK, resultError, result))
	}
}

func unmarshalPath(raw json.RawMessage) (uigateway.MessagePath, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s != oneWayPath {
			return uigateway.MessagePath{}, fmt.Errorf("field 'path' must be %q or a context id", oneWayPath)
		}
		return uigateway.OneWay(), nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return uigateway.MessagePath{}, fmt.Errorf("field 'path' must be %q or a context id", oneWayPath)
	}
	id, err := parseContextID(n)
	if err != nil {
		return uigateway.MessagePath{}, err
	}
	return uigateway.TwoWay(id), nil
}

func parseContextID(n json.Number) (uint64, error) {
	id, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field 'path' context id %s is not an unsigned integer", n)
	}
	return id, nil
}

func unmarshalErrorPayload(raw json.RawMessage) (uint64, string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return 0, "", fmt.Errorf("error payload is not a JSON object")
	}
	codeRaw, ok := fields["code"]
	if !ok {
		return 0, "", fmt.Errorf("error payload missing field 'code'")
	}
	messageRaw, ok := fields["message"]
	if !ok {
		return 0, "", fmt.Errorf("error payload missing field 'message'")
	}
	var we wireError
	if err := json.Unmarshal(codeRaw, &we.Code); err != nil {
		return 0, "", fmt.Errorf("error payload field 'code' must be an unsigned integer")
	}
	if err := json.Unmarshal(messageRaw, &we.Message); err != nil {
		return 0, "", fmt.Errorf("error payload field 'message' must be a string")
	}
	return we.Code, we.Message, nil
}

func schemaError(opcode string, path *uigateway.MessagePath, detail string) *DeserializationError {
	return &DeserializationError{Kind: SchemaError, Opcode: opcode, Path: path, Detail: detail}
}
