package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dshills/semindex-mcp/internal/query"
	"github.com/dshills/semindex-mcp/internal/service"
	"github.com/dshills/semindex-mcp/pkg/types"
)

// ContextTestSuite exercises the tiered context engine end to end over
// a live indexing service.
type ContextTestSuite struct {
	suite.Suite
	ctx context.Context
	dir string
	emb *MockEmbedder
}

func (s *ContextTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.emb = NewMockEmbedder(8)

	s.write("go.mod", "module example.com/ctxfixture\n")
	s.write("sessions.go", `package ctxfixture

// StartSession opens a session for an authenticated user and records
// the login timestamp.
func StartSession(user string) string {
	return "session:" + user
}
`)
	s.write("GUIDE.md", "# Guide\n\nThe guide explains session handling and authentication flows in detail.\n")
}

func (s *ContextTestSuite) write(name, content string) {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
}

func (s *ContextTestSuite) startEngine() (*service.Service, *query.Engine) {
	svc := service.New(s.dir, s.emb, service.WithDebounce(testDebounce))
	s.Require().NoError(svc.Start(s.ctx))
	s.T().Cleanup(svc.Stop)
	return svc, query.New(svc)
}

func (s *ContextTestSuite) waitState(svc *service.Service, want service.IndexState) {
	s.T().Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Status().State == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	s.Require().Failf("timeout", "service never reached %s, currently %s", want, svc.Status().State)
}

// TestReadyIndexAnswers asserts the core contract: a ready index
// answers without error, from the semantic tier or a lower one.
func (s *ContextTestSuite) TestReadyIndexAnswers() {
	svc, engine := s.startEngine()
	s.waitState(svc, service.StateReady)

	result, err := engine.GetContext(s.ctx, "where is session authentication handled", 5)
	s.Require().NoError(err)
	s.Require().NotNil(result)
	s.NotEmpty(result.Results, "the fixture mentions the query terms; some tier must answer")

	switch result.Source {
	case types.SourceSemantic:
		s.Equal(types.QualitySemantic, result.Quality)
	case types.SourceKeyword:
		s.Equal(types.QualityKeyword, result.Quality)
	default:
		s.Failf("unexpected tier", "source %q", result.Source)
	}
	for _, r := range result.Results {
		s.NoError(r.Validate())
	}
}

// TestKeywordTierWhenIndexDown forces an offline embedder; the answer
// must come from the grep tier, annotated with its lower quality.
func (s *ContextTestSuite) TestKeywordTierWhenIndexDown() {
	s.emb.SetFailing(true)
	svc, engine := s.startEngine()
	s.waitState(svc, service.StateDegraded)

	result, err := engine.GetContext(s.ctx, "session authentication", 5)
	s.Require().NoError(err)
	s.Equal(types.SourceKeyword, result.Source)
	s.Equal(types.QualityKeyword, result.Quality)
	s.NotEmpty(result.Results)
	s.Contains(result.Content, "GUIDE.md")
}

// TestFileTierFloor asks for terms present only in a file name
func (s *ContextTestSuite) TestFileTierFloor() {
	s.emb.SetFailing(true)
	svc, engine := s.startEngine()
	s.waitState(svc, service.StateDegraded)

	result, err := engine.GetContext(s.ctx, "qqnonexistent sessions.go", 5)
	s.Require().NoError(err)
	s.Equal(types.SourceFiles, result.Source)
	s.Equal(types.QualityFiles, result.Quality)
}

// TestNothingFoundIsStillAnAnswer returns the empty file tier, not an
// error
func (s *ContextTestSuite) TestNothingFoundIsStillAnAnswer() {
	s.emb.SetFailing(true)
	svc, engine := s.startEngine()
	s.waitState(svc, service.StateDegraded)

	result, err := engine.GetContext(s.ctx, "qqnonexistent frobnication", 5)
	s.Require().NoError(err)
	s.Equal(types.SourceFiles, result.Source)
	s.True(result.Empty())
}

// TestEmptyQueryRejected is the engine's only error path
func (s *ContextTestSuite) TestEmptyQueryRejected() {
	_, engine := s.startEngine()
	_, err := engine.GetContext(s.ctx, "\t  \n", 5)
	s.Require().ErrorIs(err, query.ErrEmptyQuery)
}

// TestUpdatedContentBecomesFindable edits a file and expects the new
// text to surface through some tier after the watcher catches up.
func (s *ContextTestSuite) TestUpdatedContentBecomesFindable() {
	svc, engine := s.startEngine()
	s.waitState(svc, service.StateReady)

	s.write("GUIDE.md", "# Guide\n\nThe guide now also documents the brand new replication protocol.\n")

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		result, err := engine.GetContext(s.ctx, "replication protocol", 5)
		s.Require().NoError(err)
		if !result.Empty() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	s.Fail("updated content never became findable")
}

func TestContextSuite(t *testing.T) {
	suite.Run(t, new(ContextTestSuite))
}
