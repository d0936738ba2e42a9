package webscraper

import (
	"context"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/classify"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"
)

func parseProgram(t *testing.T, path string) string {
	t.Helper()
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = parser.ParseFile(token.NewFileSet(), path, src, parser.ParseComments)
	require.NoError(t, err, string(src))
	return string(src)
}

// TestGenerate_FromReport verifies the default program location and the
// detail-page template for a /post/* listing.
func TestGenerate_FromReport(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{})
	ctx := context.Background()

	ex, err := svc.Explore(ctx, ExploreRequest{URL: s.URL + "/posts"})
	require.NoError(t, err)

	res, err := svc.Generate(ctx, GenerateRequest{ReportPath: ex.ReportPath, Format: "json"})
	require.NoError(t, err)

	domain := ex.Report.Domain()
	assert.Equal(t, "scrape_"+domain+"_static", res.Program)
	assert.Equal(t, filepath.Join(filepath.Dir(ex.ReportPath), res.Program, "main.go"), res.Path)
	assert.Equal(t, classify.WithDetailPages, res.Pattern)
	assert.Equal(t, report.MethodStatic, res.Method)

	src := parseProgram(t, res.Path)
	assert.Contains(t, src, "run.FollowDetails(")
	assert.Contains(t, src, `Format:   "json"`)
	assert.Contains(t, src, "MaxItems: 30")

	progs, err := svc.catalog.Programs(ctx, ex.Report.RunID)
	require.NoError(t, err)
	require.Len(t, progs, 1)
	assert.Equal(t, res.Path, progs[0].Path)
}

// TestGenerate_Latest verifies a domain slug resolves the newest usable run.
func TestGenerate_Latest(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{})
	ctx := context.Background()

	ex, err := svc.Explore(ctx, ExploreRequest{URL: s.URL + "/rss"})
	require.NoError(t, err)
	_, err = svc.Explore(ctx, ExploreRequest{URL: s.URL + "/private"})
	require.True(t, IsPolicyBlocked(err))

	out := filepath.Join(t.TempDir(), "feed", "main.go")
	res, err := svc.Generate(ctx, GenerateRequest{Latest: ex.Report.Domain(), OutputPath: out, DataDir: "data"})
	require.NoError(t, err)
	assert.Equal(t, ex.ReportPath, res.ReportPath)
	assert.Equal(t, classify.Feed, res.Pattern)
	assert.Equal(t, "md", res.Format)
	assert.Equal(t, out, res.Path)

	src := parseProgram(t, out)
	assert.Contains(t, src, "run.FeedItems(ctx)")
	assert.Contains(t, src, `DataDir:  "data"`)

	_, err = svc.Generate(ctx, GenerateRequest{Latest: "nowhere_example"})
	assert.ErrorIs(t, err, ErrNoReport)
	_, err = svc.Generate(ctx, GenerateRequest{})
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestGenerate_Rejects(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{})
	ctx := context.Background()

	blocked, err := svc.Explore(ctx, ExploreRequest{URL: s.URL + "/private"})
	require.Error(t, err)
	_, err = svc.Generate(ctx, GenerateRequest{ReportPath: blocked.ReportPath})
	assert.ErrorContains(t, err, "cannot be synthesized")

	cards, err := svc.Explore(ctx, ExploreRequest{URL: s.URL + "/cards"})
	require.NoError(t, err)
	_, err = svc.Generate(ctx, GenerateRequest{ReportPath: cards.ReportPath, Format: "xml"})
	assert.ErrorContains(t, err, "unknown format")

	// static documents have no tab template
	_, err = svc.Generate(ctx, GenerateRequest{ReportPath: cards.ReportPath, Pattern: string(classify.TabsAndCards)})
	assert.True(t, IsTemplateMissing(err))

	_, err = svc.Generate(ctx, GenerateRequest{ReportPath: filepath.Join(t.TempDir(), "absent.json")})
	assert.Error(t, err)
}
