package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/birads-report-server/internal/domain"
)

// contextRadius is the number of characters inspected on each side of a
// size mention when the fallback matcher types and locates it.
const contextRadius = 50

// FindingMatcher scans observation text and returns zero or more finding
// candidates. Matchers run as an ordered cascade and their results are
// concatenated without deduplication.
type FindingMatcher func(text string) ([]domain.Finding, error)

// matchTypeSizeLocation handles mentions ordered type, size, location, e.g.
// "masse irrégulière de 22 mm dans le quadrant supéro-externe". The location
// captured is the marker token itself.
func matchTypeSizeLocation(text string) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	for _, m := range typeSizeLocationPattern.FindAllStringSubmatch(text, -1) {
		size, err := parseSize(m[3])
		if err != nil {
			return nil, err
		}
		findings = append(findings, domain.Finding{
			Type:     strings.ToLower(m[1]),
			SizeMM:   size,
			Location: m[5],
		})
	}
	return findings, nil
}

// matchTypeLocationSize handles mentions ordered type, location, size, e.g.
// "nodule du quadrant inféro-externe mesurant 8 mm".
func matchTypeLocationSize(text string) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	for _, m := range typeLocationSizePattern.FindAllStringSubmatch(text, -1) {
		size, err := parseSize(m[5])
		if err != nil {
			return nil, err
		}
		findings = append(findings, domain.Finding{
			Type:     strings.ToLower(m[1]),
			SizeMM:   size,
			Location: m[3],
		})
	}
	return findings, nil
}

// matchLocationTypeSize handles mentions led by a quadrant code, e.g.
// "QSE droit: masse spiculée de 22 mm".
func matchLocationTypeSize(text string) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	for _, m := range locationTypeSizePattern.FindAllStringSubmatch(text, -1) {
		size, err := parseSize(m[3])
		if err != nil {
			return nil, err
		}
		findings = append(findings, domain.Finding{
			Type:     strings.ToLower(m[2]),
			SizeMM:   size,
			Location: m[1],
		})
	}
	return findings, nil
}

// matchSizeWithContext is the fallback matcher: every "<n> mm" mention
// becomes a finding, typed and located from the surrounding context window.
// An absent keyword defaults the type to "anomalie" and the location to
// "non précisée".
func matchSizeWithContext(text string) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	for _, idx := range sizePattern.FindAllStringSubmatchIndex(text, -1) {
		size, err := parseSize(text[idx[2]:idx[3]])
		if err != nil {
			return nil, err
		}

		context := contextWindow(text, idx[0], idx[1])

		anomalyType := "anomalie"
		if m := anomalyTypePattern.FindStringSubmatch(context); m != nil {
			anomalyType = strings.ToLower(m[1])
		}

		location := "non précisée"
		if m := locationPattern.FindStringSubmatch(context); m != nil {
			location = m[1]
		}

		findings = append(findings, domain.Finding{
			Type:     anomalyType,
			SizeMM:   size,
			Location: location,
		})
	}
	return findings, nil
}

// contextWindow widens the byte span [start, end) by contextRadius
// characters on each side, clamped to the text bounds. Widening counts
// characters, not bytes, so accented letters do not shrink the window.
func contextWindow(text string, start, end int) string {
	ws := start
	for i := 0; i < contextRadius && ws > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:ws])
		ws -= size
	}
	we := end
	for i := 0; i < contextRadius && we < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[we:])
		we += size
	}
	return text[ws:we]
}

// parseSize converts a captured size token to millimeters. The capture
// patterns only admit digit runs, so a failure here means the token
// over- or underflows; surface it instead of propagating a wrong value.
func parseSize(raw string) (float64, error) {
	size, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing finding size: %w", domain.NewValidationError("size_mm", "cannot convert captured size to a number", raw))
	}
	return size, nil
}
