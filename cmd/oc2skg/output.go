package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matsen/oc2skg/internal/config"
	"github.com/matsen/oc2skg/internal/meshup"
	"github.com/matsen/oc2skg/internal/oc"
	"github.com/matsen/oc2skg/internal/skg"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: ErrorDetail{Code: "error", Message: msg}})
	}
	os.Exit(code)
}

// exitWithErr classifies err, reports it and exits with the matching code.
func exitWithErr(err error, id string) {
	code, kind := classifyError(err)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	} else {
		outputJSON(ErrorResponse{Error: ErrorDetail{Code: kind, Message: err.Error(), ID: id}})
	}
	os.Exit(code)
}

// classifyError maps an error onto an exit code and a short error code.
func classifyError(err error) (int, string) {
	var (
		parseErr *skg.ParseError
		apiErr   *oc.APIError
		syntax   *json.SyntaxError
		typeErr  *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return ExitConfigError, "config_error"
	case oc.IsNotFound(err):
		return ExitNotFound, "not_found"
	case oc.IsAuthError(err):
		return ExitAPIError, "auth_error"
	case oc.IsRateLimited(err):
		return ExitAPIError, "rate_limited"
	case errors.Is(err, oc.ErrNetworkError), errors.As(err, &apiErr):
		return ExitAPIError, "api_error"
	case errors.As(err, &parseErr), errors.Is(err, skg.ErrEmptyInput),
		errors.Is(err, oc.ErrInvalidResponse), errors.Is(err, meshup.ErrNoCitingProduct),
		errors.As(err, &syntax), errors.As(err, &typeErr):
		return ExitDataError, "data_error"
	}
	return ExitError, "error"
}

// SavedResponse reports a written JSON-LD document.
type SavedResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	Nodes  int    `json:"nodes"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed command.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// reportSaved prints the success line for a document written to path.
func reportSaved(path string, doc *skg.Document) {
	if humanOutput {
		outputHuman("JSON-LD saved to %s\n", path)
		return
	}
	outputJSON(SavedResponse{Status: "saved", Path: path, Nodes: len(doc.Graph)})
}
