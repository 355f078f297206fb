package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Envelope is the decoded response body: {code, message, ...payload}.
type Envelope map[string]any

// Code renders the application status code as a string, whether the server
// sent it as a string or a number.
func (e Envelope) Code() string {
	return scalarString(e["code"])
}

// Message returns the envelope message, or "" when absent.
func (e Envelope) Message() string {
	s, _ := e["message"].(string)
	return s
}

// Decode copies the envelope into v via its JSON form.
func (e Envelope) Decode(v any) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return nil
}

func decodeEnvelope(body []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env == nil {
		return nil, errors.New("decode envelope: body is not an object")
	}
	return env, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
