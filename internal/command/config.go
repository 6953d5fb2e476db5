package command

import (
	"fmt"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/meltwater/azstorage/history"
	"github.com/meltwater/azstorage/retry"
	"github.com/meltwater/azstorage/settings"
	"github.com/meltwater/azstorage/storage/backend/azure"
)

// Config command-line parameters and secrets.
type Config struct {
	ConnectionString string
	Container        string
	CreateContainer  bool
	LocationMode     string
	HistoryFile      string
	Timeout          time.Duration

	// Retry
	RetryType         string
	MaxRetries        int
	RetryInterval     time.Duration
	RetryAccumulation string
	RetryConnect      bool

	// Token authentication, preferred over the connection string credentials.
	OIDCTokenID  string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Settings resolves the connection string.
func (c Config) Settings() (settings.Settings, error) {
	s, err := settings.Resolve(c.ConnectionString)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("resolve connection string, %w", err)
	}

	return s, nil
}

// Retry builds the retry configuration.
func (c Config) Retry() (retry.Config, error) {
	t, err := retry.ParseType(c.RetryType)
	if err != nil {
		return retry.Config{}, err
	}

	a, err := retry.ParseAccumulation(c.RetryAccumulation)
	if err != nil {
		return retry.Config{}, err
	}

	rc := retry.Config{
		Type:         t,
		MaxRetries:   c.MaxRetries,
		Interval:     c.RetryInterval,
		Accumulation: a,
		RetryConnect: c.RetryConnect,
	}

	if err := rc.Validate(); err != nil {
		return retry.Config{}, err
	}

	return rc, nil
}

// Azure builds the blob backend configuration.
func (c Config) Azure(l log.Logger) (azure.Config, error) {
	mode, err := retry.ParseLocationMode(c.LocationMode)
	if err != nil {
		return azure.Config{}, err
	}

	rc, err := c.Retry()
	if err != nil {
		return azure.Config{}, err
	}

	ac := azure.Config{
		OIDCTokenID:     c.OIDCTokenID,
		TenantID:        c.TenantID,
		ClientID:        c.ClientID,
		ClientSecret:    c.ClientSecret,
		ContainerName:   c.Container,
		CreateContainer: c.CreateContainer,
		LocationMode:    mode,
		Retry:           rc,
		Timeout:         c.Timeout,
	}

	if c.HistoryFile != "" {
		ac.History = history.New(history.WithPath(c.HistoryFile), history.WithLogger(l))
	}

	return ac, nil
}

// Backend resolves the connection string and connects to the container.
func (c Config) Backend(l log.Logger) (*azure.Backend, error) {
	s, err := c.Settings()
	if err != nil {
		return nil, err
	}

	ac, err := c.Azure(l)
	if err != nil {
		return nil, err
	}

	b, err := azure.New(log.With(l, "backend", "azure"), s, ac)
	if err != nil {
		return nil, fmt.Errorf("initialize backend, %w", err)
	}

	return b, nil
}
