package azure

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

const testDate = "Sun, 02 Aug 2026 11:30:00 GMT"

func testSharedKeyClient() *Client {
	return &Client{
		keyType:   KeyTypeShared,
		account:   testAccount,
		host:      testAccount + ".blob.core.windows.net",
		sharedKey: []byte("testkey"),
	}
}

type authSuite struct {
	suite.Suite
}

func (s *authSuite) TestStringToSignLayout() {
	header := http.Header{}
	header.Set("Content-Length", "0")

	signed := stringToSign(http.MethodGet, "/"+testContainer+"/a/file.txt", url.Values{}, testDate, header, testAccount)

	segments := strings.Split(signed, "\n")
	s.Len(segments, 13, "fixed layout is thirteen newline-delimited segments")
	s.Equal(http.MethodGet, segments[0])
	s.Equal(testDate, segments[6])
	s.Equal("/"+testAccount+"/"+testContainer+"/a/file.txt", segments[12])

	// content-encoding, content-language, content-length (zero signs as
	// empty), content-md5, content-type, the conditional headers, and range
	// are all empty here
	for _, idx := range []int{1, 2, 3, 4, 5, 7, 8, 9, 10, 11} {
		s.Empty(segments[idx], "segment %d", idx)
	}
}

func (s *authSuite) TestStringToSignContentLength() {
	header := http.Header{}
	header.Set("Content-Length", "42")

	signed := stringToSign(http.MethodPut, "/p", url.Values{}, testDate, header, testAccount)
	s.Equal("42", strings.Split(signed, "\n")[3], "non-zero content length is signed literally")
}

func (s *authSuite) TestStringToSignCanonicalHeadersAndQuery() {
	header := http.Header{}
	header.Set("Content-Length", "0")
	header.Set("x-ms-version", headerVersionSharedValue)
	header.Set("x-ms-blob-type", "BlockBlob")
	header.Set("Accept", "*/*") // not vendor-prefixed, never signed

	query := url.Values{}
	query.Set("restype", "container")
	query.Set("comp", "list")

	signed := stringToSign(http.MethodGet, "/"+testContainer, query, testDate, header, testAccount)

	s.Equal(
		"GET\n\n\n\n\n\n"+testDate+"\n\n\n\n\n\n"+
			"x-ms-blob-type:BlockBlob\n"+
			"x-ms-version:"+headerVersionSharedValue+"\n"+
			"/"+testAccount+"/"+testContainer+
			"\ncomp:list"+
			"\nrestype:container",
		signed)
}

func (s *authSuite) TestSharedKeySignature() {
	client := testSharedKeyClient()

	header := http.Header{}
	header.Set("Content-Length", "0")

	s.Require().NoError(client.authenticate(
		context.Background(), http.MethodGet, "/"+testContainer+"/a/file.txt", url.Values{}, testDate, header))

	s.Equal(client.host, header.Get("Host"))
	s.Equal(testDate, header.Get("Date"))
	s.Equal(headerVersionSharedValue, header.Get(headerVersion))

	// The exact bytes being signed are a wire compatibility contract
	expectedStringToSign := "GET\n\n\n\n\n\n" + testDate + "\n\n\n\n\n\n" +
		"x-ms-version:" + headerVersionSharedValue + "\n" +
		"/" + testAccount + "/" + testContainer + "/a/file.txt"

	mac := hmac.New(sha256.New, []byte("testkey"))
	mac.Write([]byte(expectedStringToSign))
	expected := "SharedKey " + testAccount + ":" + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	s.Equal(expected, header.Get("Authorization"))
}

func (s *authSuite) TestSharedKeySignatureDeterministic() {
	sign := func() string {
		client := testSharedKeyClient()
		header := http.Header{}
		header.Set("Content-Length", "0")
		s.Require().NoError(client.authenticate(
			context.Background(), http.MethodGet, "/"+testContainer+"/x", url.Values{}, testDate, header))
		return header.Get("Authorization")
	}

	s.Equal(sign(), sign(), "re-signing identical inputs yields the same signature")
}

func (s *authSuite) TestSASMergeIsAdditive() {
	sasKey, err := url.ParseQuery("sv=2019-12-12&sig=secretsig&sp=rl")
	s.Require().NoError(err)

	client := &Client{keyType: KeyTypeSAS, account: testAccount, host: "h", sasKey: sasKey}

	query := url.Values{}
	query.Set("restype", "container")
	query.Set("comp", "list")

	header := http.Header{}
	s.Require().NoError(client.authenticate(context.Background(), http.MethodGet, "/p", query, testDate, header))

	// Caller keys survive and SAS keys are added
	s.Equal("container", query.Get("restype"))
	s.Equal("list", query.Get("comp"))
	s.Equal("secretsig", query.Get("sig"))
	s.Equal("2019-12-12", query.Get("sv"))
	s.Equal("rl", query.Get("sp"))

	// SAS adds no headers beyond Host
	s.Empty(header.Get("Authorization"))
	s.Empty(header.Get(headerVersion))
}

func TestAuth(t *testing.T) {
	suite.Run(t, new(authSuite))
}
