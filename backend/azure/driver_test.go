package azure

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/strataio/strata"
)

type driverSuite struct {
	suite.Suite

	service *fakeService
	driver  *Driver
}

func (s *driverSuite) SetupTest() {
	s.service, s.driver = newTestDriver(s.T())
}

func (s *driverSuite) TestImplementsStorage() {
	s.Implements((*strata.Storage)(nil), s.driver)
}

func (s *driverSuite) TestInfoExisting() {
	s.service.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "500")
		w.Header().Set("Last-Modified", "Sun, 02 Aug 2026 11:30:00 GMT")
	}

	entry, err := s.driver.Info(context.Background(), "/a/file1", strata.DetailBasic)
	s.Require().NoError(err)

	s.True(entry.Exists)
	s.Equal(strata.KindFile, entry.Kind)
	s.Equal(uint64(500), entry.Size)
	s.Equal(time.Date(2026, 8, 2, 11, 30, 0, 0, time.UTC), entry.ModTime.UTC())

	captured := s.service.captured()
	s.Require().Len(captured, 1)
	s.Equal(http.MethodHead, captured[0].Method)
	s.Equal(containerPath("/a/file1"), captured[0].Path)
}

func (s *driverSuite) TestInfoMissing() {
	s.service.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}

	entry, err := s.driver.Info(context.Background(), "/gone", strata.DetailBasic)
	s.Require().NoError(err)

	s.False(entry.Exists)
	s.Zero(entry.Size)
	s.True(entry.ModTime.IsZero())
}

// A container holding a/file1 (500 bytes) and prefix a/sub/ listed
// non-recursively from the root shows one directory and no files; listed
// recursively it shows the file with its metadata and no directories.
func (s *driverSuite) TestListRootDelimited() {
	s.service.respond = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("delimiter") == "/" {
			_, _ = w.Write([]byte(listPageXML("", []string{"a/"}, nil)))
			return
		}
		_, _ = w.Write([]byte(listPageXML("", nil,
			map[string]string{"a/file1": blobProperties(500, "Sun, 02 Aug 2026 11:30:00 GMT")})))
	}

	entries, err := s.driver.List(context.Background(), "/", strata.DetailBasic, nil)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("a", entries[0].Name)
	s.Equal(strata.KindDir, entries[0].Kind)

	var recursive []strata.Entry
	err = s.driver.client.listInternal(context.Background(), "/", strata.DetailBasic, nil, true,
		func(entry strata.Entry) error {
			recursive = append(recursive, entry)
			return nil
		})
	s.Require().NoError(err)
	s.Require().Len(recursive, 1)
	s.Equal("a/file1", recursive[0].Name)
	s.Equal(strata.KindFile, recursive[0].Kind)
	s.Equal(uint64(500), recursive[0].Size)
}

func (s *driverSuite) TestListAppliesFullPattern() {
	s.service.respond = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listPageXML("", nil, map[string]string{
			// Server-side prefix narrowing is best effort; a key can slip
			// past it and must be filtered here
			"backup/full-1": "",
		})))
	}

	pattern := regexp.MustCompile(`^full-\d$`)

	entries, err := s.driver.List(context.Background(), "/backup", strata.DetailType, pattern)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("full-1", entries[0].Name)

	s.service.respond = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listPageXML("", nil, map[string]string{"backup/full-other": ""})))
	}

	entries, err = s.driver.List(context.Background(), "/backup", strata.DetailType, pattern)
	s.Require().NoError(err)
	s.Empty(entries, "entries failing the full pattern are dropped")
}

func (s *driverSuite) TestReadOnly() {
	_, opts := newTestService(s.T())
	opts.Writable = false

	driver, err := NewDriver(opts)
	s.Require().NoError(err)

	ctx := context.Background()
	_, err = driver.NewWriter(ctx, "/a/file1")
	s.ErrorIs(err, strata.ErrNotWritable)
	s.ErrorIs(driver.Remove(ctx, "/a/file1"), strata.ErrNotWritable)
	s.ErrorIs(driver.RemovePath(ctx, "/a", true), strata.ErrNotWritable)
}

func (s *driverSuite) TestBasePath() {
	service, opts := newTestService(s.T())
	opts.Path = "/repo"

	driver, err := NewDriver(opts)
	s.Require().NoError(err)

	_, err = driver.Info(context.Background(), "/a/file1", strata.DetailExists)
	s.Require().NoError(err)

	captured := service.captured()
	s.Require().Len(captured, 1)
	s.Equal(containerPath("/repo/a/file1"), captured[0].Path)
}

func (s *driverSuite) TestPathExpression() {
	service, opts := newTestService(s.T())
	opts.PathResolver = func(expression, path string) string {
		s.Equal("<REPO>", expression)
		return "resolved/" + path
	}

	driver, err := NewDriver(opts)
	s.Require().NoError(err)

	_, err = driver.Info(context.Background(), "<REPO>/a/file1", strata.DetailExists)
	s.Require().NoError(err)

	captured := service.captured()
	s.Require().Len(captured, 1)
	s.Equal(containerPath("/resolved/a/file1"), captured[0].Path)

	_, err = driver.Info(context.Background(), "<REPO/a", strata.DetailExists)
	s.Error(err, "unterminated expression")
}

func (s *driverSuite) TestPathExpressionWithoutResolver() {
	_, err := s.driver.Info(context.Background(), "<REPO>/a", strata.DetailExists)
	s.Error(err)
}

func TestDriver(t *testing.T) {
	suite.Run(t, new(driverSuite))
}
