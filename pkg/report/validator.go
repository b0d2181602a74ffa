package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/birads-report-server/internal/domain"
)

// DefaultMaxReportBytes caps accepted report size at 1 MiB. Real reports
// run a few kilobytes; anything near the cap is not a mammography report.
const DefaultMaxReportBytes = 1 << 20

// Validator checks raw report text before it enters the pipeline.
type Validator struct {
	maxBytes int
}

// NewValidator creates a report validator. A non-positive maxBytes falls
// back to DefaultMaxReportBytes.
func NewValidator(maxBytes int) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReportBytes
	}
	return &Validator{maxBytes: maxBytes}
}

// Validate rejects empty, oversized and non-UTF-8 input.
func (v *Validator) Validate(reportText string) error {
	if strings.TrimSpace(reportText) == "" {
		return domain.NewValidationError("report_text", "report text cannot be empty", reportText)
	}
	if len(reportText) > v.maxBytes {
		return domain.NewValidationError("report_text", fmt.Sprintf("report text exceeds %d bytes", v.maxBytes), len(reportText))
	}
	if !utf8.ValidString(reportText) {
		return domain.NewValidationError("report_text", "report text is not valid UTF-8", nil)
	}
	return nil
}

// MaxBytes returns the configured size cap.
func (v *Validator) MaxBytes() int {
	return v.maxBytes
}
