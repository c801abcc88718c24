package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidURL    = "INVALID_URL"
	ErrCodeFetchFailed   = "FETCH_FAILED"
	ErrCodeBlocked       = "BLOCKED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeNormalization = "NORMALIZATION_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// Stage names the pipeline state in which a scrape failed.
type Stage string

const (
	StageInit       Stage = "init"
	StageClassified Stage = "classified"
	StageFetched    Stage = "fetched"
	StageExtracted  Stage = "extracted"
	StageNormalized Stage = "normalized"
	StageDone       Stage = "done"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code     string `json:"code"`
	Stage    string `json:"stage,omitempty"`
	Platform string `json:"platform,omitempty"`
	Message  string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code plus the
// pipeline stage and platform at which the failure occurred.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code     string
	Stage    Stage
	Platform Platform
	Message  string
	Err      error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s/%s]: %s: %v", e.Code, e.Stage, e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s/%s]: %s", e.Code, e.Stage, e.Platform, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code string, stage Stage, platform Platform, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Stage: stage, Platform: platform, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{
		Code:     e.Code,
		Stage:    string(e.Stage),
		Platform: string(e.Platform),
		Message:  e.Message,
	}
}
