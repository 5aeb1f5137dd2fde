// Package flow implements the client-side state machine that drives the
// phone verification endpoints: request a code, collect it from the user,
// submit it, and hold the resulting session credential. It mirrors the
// states of the application wizard's login step.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type State int

const (
	// StateIdle accepts a phone number.
	StateIdle State = iota
	// StateCodeRequested is the in-flight request-code call.
	StateCodeRequested
	// StateCodeEntry waits for the user to type the received code. The
	// phone number is locked; only Reset releases it.
	StateCodeEntry
	// StateSubmitting is the in-flight verify-code call.
	StateSubmitting
	// StateAuthenticated holds a session credential.
	StateAuthenticated
	// StateFailed is a terminal transport or server failure; Reset starts
	// over.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCodeRequested:
		return "code_requested"
	case StateCodeEntry:
		return "code_entry"
	case StateSubmitting:
		return "submitting"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrPhoneLocked  = errors.New("a code was already requested; reset to change the number")
	ErrNoCodeEntry  = errors.New("no code entry in progress")
	ErrNotCompleted = errors.New("flow is not authenticated")
)

// ServerError is a non-200 response from either endpoint, carrying the
// server's human-readable message.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Flow drives one verification attempt for one user. It is not safe for
// concurrent use; it models a single UI session.
type Flow struct {
	baseURL string
	client  *http.Client

	state       State
	phoneNumber string
	mock        bool
	token       string
}

func New(baseURL string, client *http.Client) *Flow {
	if client == nil {
		client = http.DefaultClient
	}
	return &Flow{baseURL: baseURL, client: client, state: StateIdle}
}

func (f *Flow) State() State { return f.state }

// PhoneLocked reports whether the phone number field is locked because a
// code has already been requested for it.
func (f *Flow) PhoneLocked() bool {
	return f.state == StateCodeEntry || f.state == StateSubmitting || f.state == StateAuthenticated
}

// MockDelivery reports whether the last issued code was delivered in the
// server's mock mode.
func (f *Flow) MockDelivery() bool { return f.mock }

// Token returns the session credential after successful verification.
func (f *Flow) Token() (string, error) {
	if f.state != StateAuthenticated {
		return "", ErrNotCompleted
	}
	return f.token, nil
}

// Reset returns to Idle, unlocking the phone number field. This is the
// "change number / resend" affordance.
func (f *Flow) Reset() {
	f.state = StateIdle
	f.phoneNumber = ""
	f.mock = false
	f.token = ""
}

// RequestCode asks the server to issue a code for phoneNumber. On success
// the flow moves to CodeEntry and the number is locked; on failure it stays
// in Idle and the error carries the server's message.
func (f *Flow) RequestCode(ctx context.Context, phoneNumber string) error {
	if f.state != StateIdle {
		return ErrPhoneLocked
	}

	f.state = StateCodeRequested
	var resp struct {
		Success bool `json:"success"`
		Mock    bool `json:"mock"`
	}
	if err := f.post(ctx, "/api/auth/request-code", map[string]string{"phoneNumber": phoneNumber}, &resp); err != nil {
		f.state = StateIdle
		return err
	}

	f.phoneNumber = phoneNumber
	f.mock = resp.Mock
	f.state = StateCodeEntry
	return nil
}

// SubmitCode submits the user-typed code for the locked phone number. A
// rejected code (wrong, expired, or exhausted) returns the flow to
// CodeEntry for another try; a transport or server fault moves it to
// Failed. On success the flow is Authenticated and the credential is
// returned.
func (f *Flow) SubmitCode(ctx context.Context, code string) (string, error) {
	if f.state != StateCodeEntry {
		return "", ErrNoCodeEntry
	}

	f.state = StateSubmitting
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	err := f.post(ctx, "/api/auth/verify-code", map[string]string{"phoneNumber": f.phoneNumber, "code": code}, &resp)
	if err != nil {
		var srvErr *ServerError
		if errors.As(err, &srvErr) && srvErr.StatusCode < http.StatusInternalServerError {
			// User-actionable rejection: allow re-entry.
			f.state = StateCodeEntry
		} else {
			f.state = StateFailed
		}
		return "", err
	}

	f.token = resp.Token
	f.state = StateAuthenticated
	return f.token, nil
}

func (f *Flow) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &ServerError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
