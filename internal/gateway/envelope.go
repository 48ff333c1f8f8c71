package gateway

import (
	"encoding/json"
	"fmt"
)

// Outcome tags a decoded response body
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeFailure
)

const (
	// StatusFailure is the envelope value marking an application-level failure
	StatusFailure = "failure"
	// StatusSuccess is the envelope value the backend uses on success
	StatusSuccess = "success"

	// DefaultFailureMessage is used when a failure envelope has no message
	DefaultFailureMessage = "API call failed"
)

// Result is the tagged decision for a 2xx body
type Result struct {
	Outcome Outcome
	Body    json.RawMessage
	Message string
}

// Decide is the only place that interprets the response envelope.
//
// A body without a status field is a success. The backend does not
// declare success on every endpoint (e.g. /groups/:group/site_config
// returns the bare config), so absence of the failure marker is the
// success signal. Bodies that are not JSON objects are returned as they are.
func Decide(body []byte) Result {
	fields, ok := objectFields(body)
	if !ok {
		return Result{Outcome: OutcomeOK, Body: json.RawMessage(body)}
	}

	var status string
	if raw, ok := fields["status"]; !ok || json.Unmarshal(raw, &status) != nil || status != StatusFailure {
		return Result{Outcome: OutcomeOK, Body: json.RawMessage(body)}
	}

	message := stringField(fields, "message")
	if message == "" {
		message = DefaultFailureMessage
	}
	return Result{Outcome: OutcomeFailure, Body: json.RawMessage(body), Message: message}
}

// serverMessage builds the message for a non-2xx response
func serverMessage(status int, body []byte) string {
	if fields, ok := objectFields(body); ok {
		for _, key := range []string{"message", "detail", "error"} {
			if msg := stringField(fields, key); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("request failed with status code %d", status)
}

func objectFields(body []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
