package azure

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var modified = time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

// fakeService serves a single account on two path prefixes, one per endpoint.
// Handlers registered in fail answer matching requests with a status until
// their budget is spent.
type fakeService struct {
	mu         sync.Mutex
	account    string
	containers map[string]bool
	blobs      map[string][]byte
	blocks     map[string][]byte
	pageSize   int
	fail       []failure
	requests   []string
}

type failure struct {
	method   string
	location string
	status   int
	times    int
}

func newFakeService(account string) *fakeService {
	return &fakeService{
		account:    account,
		containers: map[string]bool{},
		blobs:      map[string][]byte{},
		blocks:     map[string][]byte{},
		pageSize:   1000,
	}
}

func (f *fakeService) failNext(method, location string, status, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fail = append(f.fail, failure{method: method, location: location, status: status, times: times})
}

func (f *fakeService) createContainer(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.containers[name] = true
}

func (f *fakeService) setPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pageSize = n
}

func (f *fakeService) log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.requests...)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 3)

	location := "primary"
	if parts[0] == f.account+"-secondary" {
		location = "secondary"
	} else if parts[0] != f.account {
		writeError(w, http.StatusBadRequest, "InvalidUri")
		return
	}

	f.requests = append(f.requests, fmt.Sprintf("%s %s %s", location, r.Method, r.URL.Query().Get("comp")))

	for i := range f.fail {
		fl := &f.fail[i]
		if fl.times > 0 && fl.method == r.Method && (fl.location == "" || fl.location == location) {
			fl.times--
			writeError(w, fl.status, "ServerBusy")
			return
		}
	}

	if location == "secondary" && r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusForbidden, "WriteOperationNotSupportedOnSecondary")
		return
	}

	if len(parts) < 2 || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "InvalidUri")
		return
	}

	container := parts[1]
	q := r.URL.Query()

	if len(parts) == 2 {
		f.serveContainer(w, r, container, q.Get("comp"))
		return
	}

	if !f.containers[container] {
		writeError(w, http.StatusNotFound, "ContainerNotFound")
		return
	}

	f.serveBlob(w, r, container+"/"+parts[2])
}

func (f *fakeService) serveContainer(w http.ResponseWriter, r *http.Request, container, comp string) {
	switch {
	case r.Method == http.MethodPut && comp == "":
		if f.containers[container] {
			writeError(w, http.StatusConflict, "ContainerAlreadyExists")
			return
		}

		f.containers[container] = true
		w.Header().Set("ETag", `"0x1"`)
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodGet && comp == "list":
		if !f.containers[container] {
			writeError(w, http.StatusNotFound, "ContainerNotFound")
			return
		}

		f.list(w, r, container)
	default:
		writeError(w, http.StatusBadRequest, "UnsupportedHttpVerb")
	}
}

func (f *fakeService) serveBlob(w http.ResponseWriter, r *http.Request, key string) {
	q := r.URL.Query()

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidInput")
			return
		}

		switch q.Get("comp") {
		case "block":
			f.blocks[key+"#"+q.Get("blockid")] = body
		case "blocklist":
			var list struct {
				Latest []string `xml:"Latest"`
			}

			if err := xml.Unmarshal(body, &list); err != nil {
				writeError(w, http.StatusBadRequest, "InvalidXmlDocument")
				return
			}

			var content []byte
			for _, id := range list.Latest {
				content = append(content, f.blocks[key+"#"+id]...)
			}

			f.blobs[key] = content
		default:
			f.blobs[key] = body
		}

		w.Header().Set("ETag", `"0x2"`)
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet, http.MethodHead:
		content, ok := f.blobs[key]
		if !ok {
			writeError(w, http.StatusNotFound, "BlobNotFound")
			return
		}

		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("ETag", `"0x2"`)
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		w.Header().Set("x-ms-blob-type", "BlockBlob")
		w.WriteHeader(http.StatusOK)

		if r.Method == http.MethodGet {
			_, _ = w.Write(content)
		}
	case http.MethodDelete:
		if _, ok := f.blobs[key]; !ok {
			writeError(w, http.StatusNotFound, "BlobNotFound")
			return
		}

		delete(f.blobs, key)
		w.WriteHeader(http.StatusAccepted)
	default:
		writeError(w, http.StatusBadRequest, "UnsupportedHttpVerb")
	}
}

type blobXML struct {
	Name       string `xml:"Name"`
	Properties struct {
		LastModified  string `xml:"Last-Modified"`
		ContentLength int    `xml:"Content-Length"`
		BlobType      string `xml:"BlobType"`
	} `xml:"Properties"`
}

type listXML struct {
	XMLName       xml.Name  `xml:"EnumerationResults"`
	ContainerName string    `xml:"ContainerName,attr"`
	Prefix        string    `xml:"Prefix"`
	Marker        string    `xml:"Marker"`
	MaxResults    int       `xml:"MaxResults"`
	Blobs         []blobXML `xml:"Blobs>Blob"`
	NextMarker    string    `xml:"NextMarker"`
}

func (f *fakeService) list(w http.ResponseWriter, r *http.Request, container string) {
	q := r.URL.Query()

	prefix := container + "/" + q.Get("prefix")

	var names []string
	for k := range f.blobs {
		if strings.HasPrefix(k, prefix) {
			names = append(names, strings.TrimPrefix(k, container+"/"))
		}
	}

	sort.Strings(names)

	start := 0
	if m := q.Get("marker"); m != "" {
		start, _ = strconv.Atoi(m)
	}

	size := f.pageSize
	if n, err := strconv.Atoi(q.Get("maxresults")); err == nil && n < size {
		size = n
	}

	res := listXML{ContainerName: container, Prefix: q.Get("prefix"), Marker: q.Get("marker"), MaxResults: size}

	end := start + size
	if end < len(names) {
		res.NextMarker = strconv.Itoa(end)
	} else {
		end = len(names)
	}

	for _, name := range names[start:end] {
		b := blobXML{Name: name}
		b.Properties.LastModified = modified.Format(http.TimeFormat)
		b.Properties.ContentLength = len(f.blobs[container+"/"+name])
		b.Properties.BlobType = "BlockBlob"
		res.Blobs = append(res.Blobs, b)
	}

	out, err := xml.Marshal(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "InternalError")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("x-ms-error-code", code)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "%s<Error><Code>%s</Code><Message>%s</Message></Error>", xml.Header, code, code)
}
