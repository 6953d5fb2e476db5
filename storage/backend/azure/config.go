package azure

import (
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/meltwater/azstorage/history"
	"github.com/meltwater/azstorage/retry"
)

// Config is a structure to store Azure backend configuration.
// Account endpoints and keys come from the resolved connection string.
type Config struct {
	// Authentication - OIDC (Priority 0, highest)
	OIDCTokenID string // OIDC token ID for authentication
	TenantID    string // Azure Tenant ID (required for OIDC and service principal)

	// Authentication - Service Principal (Priority 1)
	ClientID     string // Azure Application (Client) ID
	ClientSecret string // Azure Application Secret

	// Authentication - Shared Key and SAS (Priority 2 and 3) use the connection string.

	// Storage Configuration
	ContainerName   string
	CreateContainer bool
	LocationMode    retry.LocationMode
	Retry           retry.Config
	Timeout         time.Duration

	// History records every attempt when set.
	History *history.Recorder

	// Transport replaces the HTTP client of the pipeline.
	Transport policy.Transporter
}
