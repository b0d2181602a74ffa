package report

import "regexp"

// Section boundary patterns. Each pattern is searched independently and the
// first occurrence wins; spans are lazy so a start label never consumes past
// the nearest following end label.
var (
	// Contiguous labeled lines: Date ..., Patient ..., Type ...
	generalInfoPattern = regexp.MustCompile(`(?i)((?:Date|Patient|Type)[^\n]*(?:\n(?:Date|Patient|Type)[^\n]*)*)`)

	// OBSERVATIONS: ... up to the next IMPRESSION: or CONCLUSION: label
	observationsPattern = regexp.MustCompile(`(?is)(?:OBSERVATIONS|FINDINGS):\s*(.*?)(?:IMPRESSION|CONCLUSION):`)

	// IMPRESSION: ... up to the CONCLUSION: label
	impressionPattern = regexp.MustCompile(`(?is)IMPRESSION:\s*(.*?)CONCLUSION:`)

	// CONCLUSION: ... up to end of input or a blank-line boundary
	conclusionPattern = regexp.MustCompile(`(?is)CONCLUSION:\s*(.*?)(?:\n?\z|\n\s*\n)`)
)

// Patient attribute patterns. Date and Type labels are matched
// case-sensitively; the age and gender markers are not.
var (
	agePattern      = regexp.MustCompile(`(?i)(\d+)[-\s]ans`)
	femalePattern   = regexp.MustCompile(`(?i)\b(?:femme|patiente)\b`)
	malePattern     = regexp.MustCompile(`(?i)\b(?:homme|patient)\b`)
	examDatePattern = regexp.MustCompile(`Date[^:]*:\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	examTypePattern = regexp.MustCompile(`Type[^:]*:\s*([^\n]+)`)
)

// Classification pattern: tolerates a missing hyphen and an optional letter
// grade after the digit. Deliberately permissive: "BI-RADS 1A" matches and
// the captured code is recorded as written.
var biradsPattern = regexp.MustCompile(`(?i)BI-?RADS\s*(\d[A-C]?)`)

// Finding patterns. The three compound patterns capture the same triple in
// different orderings; all three run and every match is kept, so one mention
// can legitimately yield two findings.
var (
	// type ... size ... location marker
	typeSizeLocationPattern = regexp.MustCompile(`(?i)(masse|nodule|opacité|lésion|calcification)s?\s+([^.;,]*?)\s+(\d+)\s*mm\s+([^.;,]*?)(quadrant|QS|QI)`)

	// type ... location marker ... size
	typeLocationSizePattern = regexp.MustCompile(`(?i)(masse|nodule|opacité|lésion|calcification)s?\s+([^.;,]*?)(quadrant|QS|QI)([^.;,]*?)\s+(\d+)\s*mm`)

	// quadrant code ... type ... size
	locationTypeSizePattern = regexp.MustCompile(`(?i)(QSE|QSI|QIE|QII|UQO|UQI|LQO|LQI)[^.;,]*?(masse|nodule|opacité|lésion|calcification)s?[^.;,]*?(\d+)\s*mm`)

	// Fallback tier: any size mention, typed and located from its context
	sizePattern        = regexp.MustCompile(`(?i)(\d+)\s*mm`)
	anomalyTypePattern = regexp.MustCompile(`(?i)(masse|nodule|opacité|lésion|calcification)s?`)
	locationPattern    = regexp.MustCompile(`(?i)(QSE|QSI|QIE|QII|quadrant\s+[\p{L}\p{N}_]+)`)
)

// Explicit recommendation keywords scanned from the conclusion.
var (
	biopsyKeywordPattern     = regexp.MustCompile(`(?i)biopsie`)
	followUpKeywordPattern   = regexp.MustCompile(`(?i)contrôle|suivi|surveillance`)
	ultrasoundKeywordPattern = regexp.MustCompile(`(?i)échographie`)
	mriKeywordPattern        = regexp.MustCompile(`(?i)IRM`)
)
