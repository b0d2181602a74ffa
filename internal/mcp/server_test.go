package mcp

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/knowledge"
	"github.com/birads-report-server/internal/service"
	"github.com/birads-report-server/pkg/external"
)

const toolTestReport = `
Date d'examen: 10/02/2024
Patiente: Femme, 54 ans
Type d'examen: Mammographie bilatérale

OBSERVATIONS:
Sein droit: Présence d'une opacité nodulaire dans le QSE, mesurant 12 mm.

IMPRESSION:
Masse suspecte dans le sein droit, classification BI-RADS 4A.

CONCLUSION:
Classification BI-RADS 4A (suspicion faible de malignité)
Une biopsie sous guidage échographique est conseillée.
`

func newTestMCPServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := casebase.NewSQLiteStore(filepath.Join(t.TempDir(), "cases.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, err = casebase.SeedIfEmpty(context.Background(), store)
	require.NoError(t, err)

	kb := knowledge.NewBase()
	matcher, err := service.NewMatcher(store, external.NewLocalEncoder(64), nil, logger, service.MatcherOptions{TopN: 3})
	require.NoError(t, err)

	server, err := NewServer(Deps{
		Analyzer:  service.NewAnalyzer(kb, logger, service.AnalyzerOptions{}),
		Matcher:   matcher,
		Knowledge: kb,
		Logger:    logger,
	})
	require.NoError(t, err)
	return server
}

func resultText(t *testing.T, result *sdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServer_RequiresAnalyzer(t *testing.T) {
	_, err := NewServer(Deps{Knowledge: knowledge.NewBase()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzer")
}

func TestHandleAnalyzeReport(t *testing.T) {
	server := newTestMCPServer(t)

	result, structured, err := server.handleAnalyzeReport(context.Background(), nil, AnalyzeReportParams{
		ReportText: toolTestReport,
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var decoded domain.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	assert.Equal(t, domain.BIRADS4A, decoded.Entities.BiradsClassification)

	analysis, ok := structured.(*domain.AnalysisResult)
	require.True(t, ok)
	assert.Equal(t, domain.BIRADS4A, analysis.Entities.BiradsClassification)
}

func TestHandleAnalyzeReport_EmptyInput(t *testing.T) {
	server := newTestMCPServer(t)

	result, structured, err := server.handleAnalyzeReport(context.Background(), nil, AnalyzeReportParams{
		ReportText: "   ",
	})
	require.NoError(t, err)
	assert.Nil(t, structured)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "report_text is required")
}

func TestHandleGetGuideline(t *testing.T) {
	server := newTestMCPServer(t)

	tests := []struct {
		name     string
		code     string
		wantErr  bool
		wantCode domain.ClassificationCode
	}{
		{"known code", "4C", false, domain.BIRADS4C},
		{"lowercase code", "4a", false, domain.BIRADS4A},
		{"unknown code", "9", true, ""},
		{"blank code", "  ", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, structured, err := server.handleGetGuideline(context.Background(), nil, GetGuidelineParams{
				Code: tt.code,
			})
			require.NoError(t, err)

			if tt.wantErr {
				assert.True(t, result.IsError)
				assert.Nil(t, structured)
				return
			}

			require.False(t, result.IsError)
			guideline, ok := structured.(domain.Guideline)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, guideline.Code)
		})
	}
}

func TestHandleFindSimilarCases(t *testing.T) {
	server := newTestMCPServer(t)

	result, structured, err := server.handleFindSimilarCases(context.Background(), nil, FindSimilarCasesParams{
		ReportText: toolTestReport,
		TopN:       2,
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	matches, ok := structured.(FindSimilarCasesResult)
	require.True(t, ok)
	require.NotNil(t, matches.Entities)
	assert.Len(t, matches.Matches, 2)
	for _, match := range matches.Matches {
		assert.GreaterOrEqual(t, match.Similarity, 0.0)
		assert.LessOrEqual(t, match.Similarity, 1.0)
	}
}

func TestHandleFindSimilarCases_NoMatcher(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	kb := knowledge.NewBase()

	server, err := NewServer(Deps{
		Analyzer:  service.NewAnalyzer(kb, logger, service.AnalyzerOptions{}),
		Knowledge: kb,
		Logger:    logger,
	})
	require.NoError(t, err)

	result, structured, err := server.handleFindSimilarCases(context.Background(), nil, FindSimilarCasesParams{
		ReportText: toolTestReport,
	})
	require.NoError(t, err)
	assert.Nil(t, structured)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not configured")
}
