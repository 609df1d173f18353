/*
Package azure implements the strata.Storage contract on Azure Blob Storage.

A container is exposed as a POSIX-like file hierarchy: blobs are files, and
directories are a naming convention over key prefixes. The driver speaks the
Blob service REST protocol directly and supports three mutually exclusive
authentication schemes selected by Options.KeyType:

  - shared: requests are signed with the storage account's shared key
    (HMAC-SHA256 over the canonical string-to-sign)
  - sas: a pre-signed shared-access-signature query string is merged into
    every request
  - auto: a bearer token is fetched from the instance metadata endpoint
    (managed identity) and cached until shortly before it expires

Usage:

	opts := azure.NewOptions()
	opts.Account = "myaccount"
	opts.Container = "backups"
	opts.KeyType = azure.KeyTypeShared
	opts.Key = sharedKeyBase64

	driver, err := azure.NewDriver(opts)
	if err != nil {
	    return err
	}

	entries, err := driver.List(ctx, "/", strata.DetailBasic, nil)

Listing and recursive removal pipeline their HTTP traffic one request ahead:
while a page of results is being parsed and dispatched, the request for the
next page (or the delete of the previous file) is already in flight. Overlap
is strictly depth one; the driver never fans out.
*/
package azure
