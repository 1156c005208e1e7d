package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// BlobStore is the subset of blob storage operations the pipelines use
type BlobStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, name string) ([]byte, error)
	Upload(ctx context.Context, name string, r io.Reader) error
}

// AzureBlobStore implements BlobStore over one Azure container
type AzureBlobStore struct {
	client    *azblob.Client
	container string
}

// NewAzureBlobStore connects with a connection string when one is configured,
// otherwise with the account shared key
func NewAzureBlobStore(config *pipeline.AzureConfig) (*AzureBlobStore, error) {
	var (
		client *azblob.Client
		err    error
	)

	if config.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(config.ConnectionString, nil)
	} else {
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("invalid azure credentials: %w", err)
		}
		url := fmt.Sprintf("https://%s.blob.core.windows.net/", config.AccountName)
		client, err = azblob.NewClientWithSharedKeyCredential(url, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureBlobStore{client: client, container: config.Container}, nil
}

// List returns blob names under prefix
func (s *AzureBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return names, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// Download reads a whole blob into memory
func (s *AzureBlobStore) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Upload streams r into a blob, overwriting it
func (s *AzureBlobStore) Upload(ctx context.Context, name string, r io.Reader) error {
	if _, err := s.client.UploadStream(ctx, s.container, name, r, nil); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

// BlobSource reads every parquet blob under a prefix
type BlobSource struct {
	Store  BlobStore
	Prefix string
}

// NewBlobSource creates a source over store
func NewBlobSource(store BlobStore, prefix string) *BlobSource {
	return &BlobSource{Store: store, Prefix: prefix}
}

// Rows downloads and decodes each parquet blob in listing order
func (s *BlobSource) Rows(ctx context.Context) ([]translation.RawRow, error) {
	names, err := s.Store.List(ctx, s.Prefix)
	if err != nil {
		return nil, err
	}

	logger := logging.GetLogger("loader")
	var rows []translation.RawRow
	loaded := 0
	for _, name := range names {
		if !strings.HasSuffix(name, ".parquet") {
			continue
		}
		data, err := s.Store.Download(ctx, name)
		if err != nil {
			return rows, err
		}
		blobRows, err := ReadParquet(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return rows, fmt.Errorf("%s: %w", name, err)
		}
		logger.Info().Str("blob", name).Int("rows", len(blobRows)).Msg("Parquet blob loaded")
		rows = append(rows, blobRows...)
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("no parquet blobs found under prefix %q", s.Prefix)
	}
	return rows, nil
}
