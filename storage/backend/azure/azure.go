package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/meltwater/azstorage/internal"
	"github.com/meltwater/azstorage/retry"
	"github.com/meltwater/azstorage/settings"
	"github.com/meltwater/azstorage/storage"
	"github.com/meltwater/azstorage/storage/common"
)

var _ storage.Backend = (*Backend)(nil)

// DefaultTimeout bounds container creation when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Backend implements storage.Backend for Azure Blob Storage.
type Backend struct {
	logger        log.Logger
	client        *azblob.Client
	containerName string
	location      retry.Location
}

// New creates an Azure Blob backend for the blob endpoint of s.
func New(l log.Logger, s settings.Settings, c Config) (*Backend, error) {
	if c.ContainerName == "" {
		return nil, errors.New("azure container name is required")
	}

	if s.Blob.Primary == "" {
		return nil, fmt.Errorf("azure, connection string of format %s has no blob endpoint", s.Format)
	}

	if c.LocationMode.NeedsSecondary() && s.Blob.Secondary == "" {
		return nil, fmt.Errorf("azure, location mode %s requires a secondary blob endpoint", c.LocationMode)
	}

	if c.Retry == (retry.Config{}) {
		c.Retry = retry.DefaultConfig()
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	rp, err := retry.New(c.Retry, retry.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("azure, retry policy, %w", err)
	}

	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			PerCallPolicies: []policy.Policy{rp.PipelinePolicy()},
			Retry:           policy.RetryOptions{MaxRetries: -1},
		},
	}

	if c.History != nil {
		opts.PerRetryPolicies = []policy.Policy{c.History.Policy()}
	}

	if c.Transport != nil {
		opts.Transport = c.Transport
	}

	client, err := newClient(l, s, c, opts)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		logger:        l,
		client:        client,
		containerName: c.ContainerName,
		location: retry.Location{
			Mode:      c.LocationMode,
			Primary:   s.Blob.Primary,
			Secondary: s.Blob.Secondary,
		},
	}

	if c.CreateContainer {
		ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
		defer cancel()

		if err := b.ensureContainer(ctx); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func newClient(l log.Logger, s settings.Settings, c Config, opts *azblob.ClientOptions) (*azblob.Client, error) {
	serviceURL := s.Blob.Primary

	switch {
	// Authentication: Priority 0 - OIDC (highest priority)
	case c.OIDCTokenID != "" && c.TenantID != "":
		level.Info(l).Log("msg", "using OIDC token authentication", "tenantID", c.TenantID)

		if c.ClientID == "" {
			return nil, errors.New("azure client ID is required when using OIDC authentication")
		}

		// The OIDC token from the CI/CD system is used directly as the client assertion.
		token := c.OIDCTokenID
		getAssertion := func(context.Context) (string, error) {
			return token, nil
		}

		cred, err := azidentity.NewClientAssertionCredential(c.TenantID, c.ClientID, getAssertion, nil)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create OIDC client assertion credential, %w", err)
		}

		client, err := azblob.NewClient(serviceURL, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create client with OIDC, %w", err)
		}

		return client, nil

	// Authentication: Priority 1 - Service Principal (ClientID + ClientSecret + TenantID)
	case c.ClientID != "" && c.ClientSecret != "" && c.TenantID != "":
		level.Info(l).Log("msg", "using service principal authentication", "clientID", c.ClientID, "tenantID", c.TenantID)

		cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create service principal credential, %w", err)
		}

		client, err := azblob.NewClient(serviceURL, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create client with service principal, %w", err)
		}

		return client, nil

	// Authentication: Priority 2 - Shared Key from the connection string
	case s.AccountName != "" && s.AccountKey != "":
		level.Info(l).Log("msg", "using shared key authentication", "accountName", s.AccountName, "format", s.Format)

		cred, err := azblob.NewSharedKeyCredential(s.AccountName, s.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("azure, invalid shared key credentials, %w", err)
		}

		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create client with shared key, %w", err)
		}

		return client, nil

	// Authentication: Priority 3 - Shared Access Signature from the connection string
	case s.SASToken != "":
		level.Info(l).Log("msg", "using shared access signature authentication", "format", s.Format)

		client, err := azblob.NewClientWithNoCredential(serviceURL+"?"+s.SASToken, opts)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create client with shared access signature, %w", err)
		}

		return client, nil

	default:
		return nil, errors.New("azure authentication requires either (OIDCTokenID + TenantID + ClientID), (ClientID + ClientSecret + TenantID), an account key or a shared access signature")
	}
}

// ensureContainer creates the container, accepting one that already exists.
func (b *Backend) ensureContainer(ctx context.Context) error {
	level.Info(b.logger).Log("msg", "ensuring container exists", "container", b.containerName)

	_, err := b.client.CreateContainer(b.primary(ctx), b.containerName, nil)
	if err == nil {
		level.Info(b.logger).Log("msg", "container created successfully", "container", b.containerName)
		return nil
	}

	if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		level.Info(b.logger).Log("msg", "container already exists, continuing", "container", b.containerName)
		return nil
	}

	// Creation may be forbidden for the credential while the container is readable.
	level.Info(b.logger).Log("msg", "container creation failed, verifying container exists", "container", b.containerName, "err", err)

	maxResults := int32(1)
	pager := b.client.NewListBlobsFlatPager(b.containerName, &azblob.ListBlobsFlatOptions{MaxResults: &maxResults})

	if _, checkErr := pager.NextPage(b.primary(ctx)); checkErr != nil {
		level.Error(b.logger).Log("msg", "failed to create or access container", "container", b.containerName, "createError", err, "checkError", checkErr)
		return fmt.Errorf("azure, failed to create or access container, createErr: %w, checkErr: %v", err, checkErr)
	}

	level.Info(b.logger).Log("msg", "container exists (verified), continuing despite creation error", "container", b.containerName)

	return nil
}

// Get writes downloaded content to the given writer.
func (b *Backend) Get(ctx context.Context, p string, w io.Writer) error {
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		resp, err := b.client.DownloadStream(b.read(ctx), b.containerName, p, nil)
		if err != nil {
			errCh <- fmt.Errorf("get the object, %w", err)
			return
		}

		rc := resp.Body
		defer internal.CloseWithErrLogf(b.logger, rc, "response body, close defer")

		if _, err := io.Copy(&ctxWriter{ctx: ctx, w: w}, rc); err != nil {
			errCh <- fmt.Errorf("copy the object, %w", err)
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		return err
	case <-ctx.Done():
		// The download is bound to ctx; wait for it so w is not written after Get returns.
		<-errCh
		return ctx.Err()
	}
}

// ctxWriter stops accepting writes once its context is done.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.w.Write(p)
}

// Put uploads contents of the given reader.
func (b *Backend) Put(ctx context.Context, p string, r io.Reader) error {
	level.Debug(b.logger).Log("msg", "uploading blob", "name", p, "container", b.containerName)

	if _, err := b.client.UploadStream(b.primary(ctx), b.containerName, p, r, nil); err != nil {
		return fmt.Errorf("put the object, %w", err)
	}

	level.Info(b.logger).Log("msg", "uploaded blob", "name", p)

	return nil
}

// Exists checks if path already exists.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	level.Debug(b.logger).Log("msg", "checking if the object already exists", "name", p)

	blob := b.client.ServiceClient().NewContainerClient(b.containerName).NewBlobClient(p)

	_, err := blob.GetProperties(b.read(ctx), nil)
	if err == nil {
		return true, nil
	}

	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return false, nil
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return false, nil
	}

	return false, fmt.Errorf("check if object exists, %w", err)
}

// List returns the blobs whose names start with prefix.
//
// Once a page has been served, following pages are requested from the same
// endpoint, since continuation markers are only valid where they were issued.
func (b *Backend) List(ctx context.Context, prefix string) ([]common.FileEntry, error) {
	level.Debug(b.logger).Log("msg", "listing blobs", "prefix", prefix)

	var (
		entries []common.FileEntry
		loc     = b.location
	)

	pager := b.client.NewListBlobsFlatPager(b.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		var raw *http.Response

		resp, err := pager.NextPage(runtime.WithCaptureResponse(retry.WithLocation(ctx, loc), &raw))
		if err != nil {
			return nil, fmt.Errorf("list blobs, %w", err)
		}

		if mode, ok := retry.ContinuationMode(raw); ok && mode != loc.Mode {
			level.Debug(b.logger).Log("msg", "pinning listing to endpoint", "mode", mode)
			loc.Mode = mode
		}

		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil {
				continue
			}

			e := common.FileEntry{Path: *item.Name}

			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					e.Size = *item.Properties.ContentLength
				}

				if item.Properties.LastModified != nil {
					e.LastModified = *item.Properties.LastModified
				}
			}

			entries = append(entries, e)
		}
	}

	level.Debug(b.logger).Log("msg", "listed blobs", "prefix", prefix, "count", len(entries))

	return entries, nil
}

// Delete removes the blob at p.
func (b *Backend) Delete(ctx context.Context, p string) error {
	if _, err := b.client.DeleteBlob(b.primary(ctx), b.containerName, p, nil); err != nil {
		return fmt.Errorf("delete the object, %w", err)
	}

	level.Info(b.logger).Log("msg", "deleted blob", "name", p)

	return nil
}

// read attaches the configured location to requests that may be served by the secondary.
func (b *Backend) read(ctx context.Context) context.Context {
	return retry.WithLocation(ctx, b.location)
}

// primary pins writes to the primary endpoint; the secondary is read-only.
func (b *Backend) primary(ctx context.Context) context.Context {
	loc := b.location
	loc.Mode = retry.PrimaryOnly

	return retry.WithLocation(ctx, loc)
}
