package gemini

import "errors"

// AnalysisMessage is the only text a failed analysis shows the user.
const AnalysisMessage = "Analysis failed. Zoom out on the chart and try again."

var (
	ErrNotConfigured = errors.New("gemini client not configured: missing API key")
	ErrNoImage       = errors.New("attach the primary chart image")
	ErrNoStrategy    = errors.New("strategy is required")
)

// AnalysisError covers every transport, service and parse failure of an
// analysis request. Error() never exposes the cause; Unwrap does, for logs.
type AnalysisError struct {
	cause error
}

func (e *AnalysisError) Error() string { return AnalysisMessage }

func (e *AnalysisError) Unwrap() error { return e.cause }

func analysisError(cause error) error {
	return &AnalysisError{cause: cause}
}

// IsAnalysisError reports whether err carries an *AnalysisError.
func IsAnalysisError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae)
}
