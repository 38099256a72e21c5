package forwarder

import (
	"net/http"

	"github.com/kunal768/distributed-echo-system/internal/upstream"
)

// Client-facing body strings. These are part of the public contract and
// must not be reworded.
const (
	errMissingMsg          = "Missing 'msg' parameter"
	errUpstreamUnavailable = "Service A unavailable"
)

// Outcome labels the terminal state of one forwarded request.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidRequest
	OutcomeTimeout
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidRequest:
		return "invalid_request"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Result is the terminal state of one forward: exactly one outcome, built by
// one of the constructors below, carrying the echoed payload on success and
// the failure details otherwise. A Result belongs to a single request and is
// never shared across requests.
type Result struct {
	outcome Outcome
	message string
	echo    upstream.EchoResponse
	details string
}

// Success records a completed round trip through the echo service.
func Success(msg string, echo upstream.EchoResponse) Result {
	return Result{outcome: OutcomeSuccess, message: msg, echo: echo}
}

// InvalidRequest records a rejected request; no upstream call was made.
func InvalidRequest() Result {
	return Result{outcome: OutcomeInvalidRequest}
}

// UpstreamTimeout records a call that hit its deadline.
func UpstreamTimeout(details string) Result {
	return Result{outcome: OutcomeTimeout, details: details}
}

// UpstreamUnavailable records a call that failed before its deadline.
func UpstreamUnavailable(details string) Result {
	return Result{outcome: OutcomeUnavailable, details: details}
}

// resultFromCallError converts a failed echo call into its terminal state.
func resultFromCallError(err error) Result {
	kind := Classify(err)
	if kind == KindTimeout {
		return UpstreamTimeout(kind.Details(err))
	}
	return UpstreamUnavailable(kind.Details(err))
}

func (r Result) Outcome() Outcome {
	return r.outcome
}

// Details returns the failure description shown to the client, empty for
// success and invalid-request results.
func (r Result) Details() string {
	return r.details
}

// HTTPStatus maps the outcome to its response status code.
func (r Result) HTTPStatus() int {
	switch r.outcome {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

type successBody struct {
	Msg          string                `json:"msg"`
	EchoResponse upstream.EchoResponse `json:"echo_response"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Body returns the JSON-serializable response body for this result.
func (r Result) Body() interface{} {
	switch r.outcome {
	case OutcomeSuccess:
		return successBody{Msg: r.message, EchoResponse: r.echo}
	case OutcomeInvalidRequest:
		return errorBody{Error: errMissingMsg}
	default:
		return errorBody{Error: errUpstreamUnavailable, Details: r.details}
	}
}
