package azure

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	headerVersion            = "x-ms-version"
	headerVersionSharedValue = "2019-12-12"
	headerVersionAutoValue   = "2024-08-04"

	vendorHeaderPrefix = "x-ms-"
)

// authenticate augments header (and, for SAS, query) so the request is
// accepted by the service. path must already be URI-encoded and include the
// account/container prefix; it is what gets signed.
//
// Based on https://docs.microsoft.com/en-us/rest/api/storageservices/authorize-with-shared-key
func (c *Client) authenticate(
	ctx context.Context, verb, path string, query url.Values, dateTime string, header http.Header,
) error {
	// Host header is required for all types of authentication
	header.Set("Host", c.host)

	switch {
	case c.keyType == KeyTypeShared:
		header.Set("Date", dateTime)
		header.Set(headerVersion, headerVersionSharedValue)

		signature := hmac.New(sha256.New, c.sharedKey)
		signature.Write([]byte(stringToSign(verb, path, query, dateTime, header, c.account))) //nolint:errcheck

		header.Set("Authorization",
			"SharedKey "+c.account+":"+base64.StdEncoding.EncodeToString(signature.Sum(nil)))

	case c.keyType == KeyTypeAuto:
		token, err := c.credentials.ensure(ctx)
		if err != nil {
			return err
		}

		// Bearer auth requires a newer service version than shared key
		header.Set(headerVersion, headerVersionAutoValue)
		header.Set("Authorization", "Bearer "+token)

	default: // SAS
		// SAS parameters are additive: caller-supplied keys are kept as is
		for key, values := range c.sasKey {
			for _, value := range values {
				query.Add(key, value)
			}
		}
	}

	return nil
}

// stringToSign renders the canonical request representation the shared-key
// signature is computed over. The layout is a wire-compatibility contract and
// must be reproduced byte for byte: thirteen newline-delimited segments in a
// fixed order, followed by the canonical vendor headers, the canonical
// resource, and the canonical query.
func stringToSign(verb, path string, query url.Values, dateTime string, header http.Header, account string) string {
	// Canonical headers: every vendor-prefixed header, lower-cased, in
	// ascending name order, one "name:value" line each
	var headerNames []string
	for name := range header {
		if lower := strings.ToLower(name); strings.HasPrefix(lower, vendorHeaderPrefix) {
			headerNames = append(headerNames, lower)
		}
	}
	sort.Strings(headerNames)

	var headerCanonical strings.Builder
	for _, name := range headerNames {
		headerCanonical.WriteString(name + ":" + header.Get(name) + "\n")
	}

	// Canonical query: every key in ascending order, each on a new line
	var queryNames []string
	for name := range query {
		queryNames = append(queryNames, name)
	}
	sort.Strings(queryNames)

	var queryCanonical strings.Builder
	for _, name := range queryNames {
		queryCanonical.WriteString("\n" + name + ":" + strings.Join(query[name], ","))
	}

	// Content length is signed as the empty string when it is literally zero
	contentLength := header.Get("Content-Length")
	if contentLength == "0" {
		contentLength = ""
	}

	return verb + "\n" +
		"\n" + // content-encoding
		"\n" + // content-language
		contentLength + "\n" +
		header.Get("Content-MD5") + "\n" +
		"\n" + // content-type
		dateTime + "\n" +
		"\n" + // If-Modified-Since
		"\n" + // If-Match
		"\n" + // If-None-Match
		"\n" + // If-Unmodified-Since
		header.Get("Range") + "\n" +
		headerCanonical.String() +
		"/" + account + path +
		queryCanonical.String()
}
