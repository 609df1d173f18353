// Command stratacp copies a file from one place to another, even between
// supported storage backends:
//
//	stratacp file:///tmp/backup.tar azure://backups/2026/backup.tar
//
// The local filesystem backend needs no configuration. The azure backend is
// configured with flags or the STRATA_AZURE_* environment variables.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/strataio/strata"
	"github.com/strataio/strata/backend/azure"
	"github.com/strataio/strata/backend/localfs"
)

type azureFlags struct {
	account   string
	container string
	key       string
	keyType   string
	endpoint  string
	uriStyle  string
	port      uint
	blockSize int
	timeout   time.Duration
	insecure  bool
	caFile    string
}

func main() {
	var verbose bool
	var flags azureFlags

	cmd := &cobra.Command{
		Use:          "stratacp SOURCE DEST",
		Short:        "Copy a file between storage backends",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := zerolog.ErrorLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd.Context(), args[0], args[1], &flags)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, with credentials redacted")
	cmd.Flags().StringVar(&flags.account, "azure-account", os.Getenv("STRATA_AZURE_STORAGE_ACCOUNT"), "azure storage account")
	cmd.Flags().StringVar(&flags.key, "azure-key", os.Getenv("STRATA_AZURE_STORAGE_KEY"), "azure shared key (base64) or SAS query string")
	cmd.Flags().StringVar(&flags.keyType, "azure-key-type", string(azure.KeyTypeShared), "azure key type: shared, sas, or auto")
	cmd.Flags().StringVar(&flags.endpoint, "azure-endpoint", "blob.core.windows.net", "azure service endpoint")
	cmd.Flags().StringVar(&flags.uriStyle, "azure-uri-style", string(azure.URIStyleHost), "azure uri style: host or path")
	cmd.Flags().UintVar(&flags.port, "azure-port", 0, "azure service port override")
	cmd.Flags().IntVar(&flags.blockSize, "azure-block-size", 4*1024*1024, "upload block size in bytes")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", time.Minute, "request timeout")
	cmd.Flags().BoolVar(&flags.insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().StringVar(&flags.caFile, "ca-file", "", "CA bundle for TLS verification ('~' is expanded)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCopy(ctx context.Context, source, dest string, flags *azureFlags) error {
	srcStorage, srcPath, err := openStorage(source, flags)
	if err != nil {
		return err
	}
	dstStorage, dstPath, err := openStorage(dest, flags)
	if err != nil {
		return err
	}

	reader, err := srcStorage.NewReader(ctx, srcPath, strata.ReadOptions{})
	if err != nil {
		return err
	}
	defer reader.Close() //nolint:errcheck

	writer, err := dstStorage.NewWriter(ctx, dstPath)
	if err != nil {
		return err
	}

	copied, err := io.Copy(writer, reader)
	if err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	fmt.Printf("%s %s -> %s (%s)\n", color.GreenString("copied"), source, dest, humanize.Bytes(uint64(copied)))
	return nil
}

// openStorage resolves a URI to a configured backend and the path within it.
func openStorage(rawURI string, flags *azureFlags) (strata.Storage, string, error) {
	uri, err := url.Parse(rawURI)
	if err != nil {
		return nil, "", err
	}

	switch uri.Scheme {
	case "", localfs.Name:
		path, err := homedir.Expand(uri.Path)
		if err != nil {
			return nil, "", err
		}
		return localfs.NewDriver("/", true), path, nil

	case azure.Name:
		opts := azure.NewOptions()
		opts.Account = flags.account
		opts.Container = uri.Host
		opts.Key = flags.key
		opts.KeyType = azure.KeyType(flags.keyType)
		opts.Endpoint = flags.endpoint
		opts.URIStyle = azure.URIStyle(flags.uriStyle)
		opts.Port = flags.port
		opts.BlockSize = flags.blockSize
		opts.Timeout = flags.timeout
		opts.VerifyPeer = !flags.insecure
		opts.CAFile = flags.caFile
		opts.Logger = log.Logger

		driver, err := azure.NewDriver(opts)
		if err != nil {
			return nil, "", err
		}
		return driver, uri.Path, nil
	}

	return nil, "", fmt.Errorf("unsupported scheme %q, expected file:///path or azure://container/path", uri.Scheme)
}
