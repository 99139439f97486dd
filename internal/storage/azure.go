package storage

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"
)

const jsonContentType = "application/json"

// AzureArchive keeps change exports and digests as JSON blobs in one container
type AzureArchive struct {
	client    *azblob.Client
	container string
}

var _ Archive = (*AzureArchive)(nil)

// NewAzureArchive connects with the default Azure credential chain and creates
// the container on first use
func NewAzureArchive(ctx context.Context, accountName, container string) (*AzureArchive, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azblob.NewClient(fmt.Sprintf("https://%s.blob.core.windows.net/", accountName), credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	switch _, err := client.CreateContainer(ctx, container, nil); {
	case err == nil:
		logrus.WithField("container", container).Info("Created archive container")
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
	default:
		return nil, fmt.Errorf("failed to create container %s: %w", container, err)
	}

	return &AzureArchive{client: client, container: container}, nil
}

// Store uploads data as a JSON blob, replacing any blob with the same name
func (a *AzureArchive) Store(ctx context.Context, name string, data []byte) error {
	contentType := jsonContentType
	_, err := a.client.UploadBuffer(ctx, a.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{"blob": name, "bytes": len(data)}).Debug("Archived blob")
	return nil
}

// Retrieve downloads a blob. A missing blob is ErrNotFound.
func (a *AzureArchive) Retrieve(ctx context.Context, name string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, fmt.Errorf("archive %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// List returns blob names under prefix in lexical order
func (a *AzureArchive) List(ctx context.Context, prefix string) ([]string, error) {
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs under %s: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
