package settings

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Shape names, in the order they are tried.
const (
	FormatDevelopmentStorage       = "UseDevelopmentStorage"
	FormatAutomatic                = "Automatic"
	FormatAutomaticSAS             = "AutomaticSharedAccessSignature"
	FormatExplicitEndpoints        = "ExplicitEndpointsOnly"
	FormatExplicitEndpointsWithSAS = "ExplicitEndpointsSharedAccessSignature"
)

const (
	// DefaultEndpointSuffix is the DNS suffix of the public cloud.
	DefaultEndpointSuffix = "core.windows.net"

	// DevStoreAccountName is the well-known storage emulator account.
	DevStoreAccountName = "devstoreaccount1"
	// DevStoreAccountKey is the well-known storage emulator key.
	DevStoreAccountKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
	// DevStoreURI is the default storage emulator host.
	DevStoreURI = "http://127.0.0.1"

	secondarySuffix = "-secondary"
	defaultProtocol = "https"
)

var devStorePorts = map[Service]int{
	Blob:  10000,
	Queue: 10001,
	Table: 10002,
}

var (
	useDevelopmentStorage    = Requirement{Name: KeyUseDevelopmentStorage, Check: OneOf(KeyUseDevelopmentStorage, "true")}
	developmentStorageProxy  = Requirement{Name: KeyDevelopmentStorageProxyURI, Check: ValidURI(KeyDevelopmentStorageProxyURI)}
	defaultEndpointsProtocol = Requirement{Name: KeyDefaultEndpointsProtocol, Check: OneOf(KeyDefaultEndpointsProtocol, "http", "https")}
	accountName              = Requirement{Name: KeyAccountName, Check: ValidAccountName(KeyAccountName)}
	accountKey               = Requirement{Name: KeyAccountKey, Check: ValidAccountKey(KeyAccountKey)}
	sharedAccessSignature    = Requirement{Name: KeySharedAccessSignature, Check: Any()}
	blobEndpoint             = Requirement{Name: KeyBlobEndpoint, Check: ValidURI(KeyBlobEndpoint)}
	queueEndpoint            = Requirement{Name: KeyQueueEndpoint, Check: ValidURI(KeyQueueEndpoint)}
	tableEndpoint            = Requirement{Name: KeyTableEndpoint, Check: ValidURI(KeyTableEndpoint)}
	fileEndpoint             = Requirement{Name: KeyFileEndpoint, Check: ValidURI(KeyFileEndpoint)}
	endpointSuffix           = Requirement{Name: KeyEndpointSuffix, Check: ValidHostname(KeyEndpointSuffix)}
)

func defaultShapes() []Shape {
	return []Shape{
		{
			Name: FormatDevelopmentStorage,
			Groups: []Group{
				Require(useDevelopmentStorage),
				Allow(developmentStorageProxy),
			},
			build: buildDevelopmentStorage,
		},
		{
			Name: FormatAutomatic,
			Groups: []Group{
				Require(defaultEndpointsProtocol, accountName, accountKey),
				Allow(blobEndpoint, queueEndpoint, tableEndpoint, fileEndpoint, endpointSuffix),
			},
			build: buildAccount,
		},
		{
			Name: FormatAutomaticSAS,
			Groups: []Group{
				Require(defaultEndpointsProtocol, accountName, sharedAccessSignature),
				Allow(blobEndpoint, queueEndpoint, tableEndpoint, fileEndpoint, endpointSuffix),
			},
			build: buildAccount,
		},
		{
			Name: FormatExplicitEndpoints,
			Groups: []Group{
				OneOrMore(blobEndpoint, queueEndpoint, tableEndpoint, fileEndpoint),
				Require(accountName, accountKey),
				Allow(defaultEndpointsProtocol, endpointSuffix),
			},
			build: buildAccount,
		},
		{
			Name: FormatExplicitEndpointsWithSAS,
			Groups: []Group{
				OneOrMore(blobEndpoint, queueEndpoint, tableEndpoint, fileEndpoint),
				Require(sharedAccessSignature),
				Allow(accountName, defaultEndpointsProtocol, endpointSuffix),
			},
			build: buildAccount,
		},
	}
}

func buildDevelopmentStorage(values map[string]string) Settings {
	proxy := DevStoreURI
	if v, ok := values[strings.ToLower(KeyDevelopmentStorageProxyURI)]; ok {
		proxy = v
	}

	// Each service listens on its own port; only the scheme and host of the proxy are kept.
	scheme, host := "http", "127.0.0.1"
	if u, err := url.Parse(proxy); err == nil {
		scheme, host = u.Scheme, u.Hostname()
	}

	s := Settings{
		AccountName: DevStoreAccountName,
		AccountKey:  DevStoreAccountKey,
	}

	for svc, port := range devStorePorts {
		base := scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))
		e := Endpoint{
			Primary:   fmt.Sprintf("%s/%s/", base, DevStoreAccountName),
			Secondary: fmt.Sprintf("%s/%s%s/", base, DevStoreAccountName, secondarySuffix),
		}
		s.set(svc, e)
	}

	return s
}

func buildAccount(values map[string]string) Settings {
	get := func(key string) string { return values[strings.ToLower(key)] }

	s := Settings{
		AccountName: get(KeyAccountName),
		AccountKey:  get(KeyAccountKey),
		SASToken:    strings.TrimPrefix(get(KeySharedAccessSignature), "?"),
	}

	protocol := strings.ToLower(get(KeyDefaultEndpointsProtocol))
	if protocol == "" {
		protocol = defaultProtocol
	}

	suffix := get(KeyEndpointSuffix)
	if suffix == "" {
		suffix = DefaultEndpointSuffix
	}

	explicit := map[Service]string{
		Blob:  get(KeyBlobEndpoint),
		Queue: get(KeyQueueEndpoint),
		Table: get(KeyTableEndpoint),
		File:  get(KeyFileEndpoint),
	}

	for _, svc := range Services() {
		if uri := explicit[svc]; uri != "" {
			s.set(svc, Endpoint{Primary: uri})
			continue
		}

		if s.AccountName == "" {
			continue
		}

		s.set(svc, Endpoint{
			Primary:   serviceURI(protocol, s.AccountName, svc, suffix),
			Secondary: serviceURI(protocol, s.AccountName+secondarySuffix, svc, suffix),
		})
	}

	return s
}

func serviceURI(protocol, account string, svc Service, suffix string) string {
	return fmt.Sprintf("%s://%s.%s.%s/", protocol, account, svc, suffix)
}

func (s *Settings) set(svc Service, e Endpoint) {
	switch svc {
	case Blob:
		s.Blob = e
	case Queue:
		s.Queue = e
	case Table:
		s.Table = e
	case File:
		s.File = e
	}
}
