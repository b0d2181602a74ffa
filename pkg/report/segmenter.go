// Package report implements the mammography report parsing pipeline:
// section segmentation, entity extraction and input validation. All
// matching is deterministic pattern work; no model inference is involved.
package report

import (
	"regexp"
	"strings"

	"github.com/birads-report-server/internal/domain"
)

// Segmenter splits raw report text into the four named sections.
type Segmenter struct{}

// NewSegmenter creates a new section segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment extracts the general-info, observations, impression and
// conclusion sections. A missing boundary label yields an empty string for
// that section, never an error.
func (s *Segmenter) Segment(reportText string) domain.SectionSet {
	return domain.SectionSet{
		GeneralInfo:  firstGroup(generalInfoPattern, reportText),
		Observations: firstGroup(observationsPattern, reportText),
		Impression:   firstGroup(impressionPattern, reportText),
		Conclusion:   firstGroup(conclusionPattern, reportText),
	}
}

// firstGroup returns the trimmed first capture group of the first match, or
// an empty string when the pattern does not match.
func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
