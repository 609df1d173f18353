package backend

import (
	"context"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/strataio/strata"
)

type stubStorage struct{}

func (stubStorage) Info(context.Context, string, strata.DetailLevel) (strata.Entry, error) {
	return strata.Entry{}, nil
}

func (stubStorage) List(context.Context, string, strata.DetailLevel, *regexp.Regexp) ([]strata.Entry, error) {
	return nil, nil
}

func (stubStorage) NewReader(context.Context, string, strata.ReadOptions) (io.ReadCloser, error) {
	return nil, nil
}

func (stubStorage) NewWriter(context.Context, string) (io.WriteCloser, error) { return nil, nil }

func (stubStorage) Remove(context.Context, string) error { return nil }

func (stubStorage) RemovePath(context.Context, string, bool) error { return nil }

type backendSuite struct {
	suite.Suite
}

func (s *backendSuite) SetupTest() {
	UnregisterAll()
}

func (s *backendSuite) TestRegister() {
	Register("stub", stubStorage{})
	s.NotNil(Backend("stub"))
	s.Nil(Backend("missing"))
}

func (s *backendSuite) TestUnregister() {
	Register("stub", stubStorage{})
	Unregister("stub")
	s.Nil(Backend("stub"))
}

func (s *backendSuite) TestRegisteredBackends() {
	Register("b", stubStorage{})
	Register("a", stubStorage{})
	s.Equal([]string{"a", "b"}, RegisteredBackends())
}

func TestBackend(t *testing.T) {
	suite.Run(t, new(backendSuite))
}
