// Package command implements the azstorage subcommands on top of a storage.Backend.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/meltwater/azstorage/internal"
	"github.com/meltwater/azstorage/settings"
	"github.com/meltwater/azstorage/storage"
)

// ErrNotFound is returned by Exists when the object is missing.
var ErrNotFound = errors.New("object not found")

// Stdio names standard input or output in place of a file.
const Stdio = "-"

// Resolve prints the endpoints of s. Credentials are never printed.
func Resolve(w io.Writer, s settings.Settings) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "format\t%s\n", s.Format)

	if s.AccountName != "" {
		fmt.Fprintf(tw, "account\t%s\n", s.AccountName)
	}

	switch {
	case s.AccountKey != "":
		fmt.Fprintln(tw, "credential\tshared key")
	case s.SASToken != "":
		fmt.Fprintln(tw, "credential\tshared access signature")
	}

	for _, svc := range settings.Services() {
		e := s.Endpoint(svc)
		if e.Primary == "" {
			continue
		}

		fmt.Fprintf(tw, "%s\t%s\n", svc, e.Primary)

		if e.Secondary != "" {
			fmt.Fprintf(tw, "%s (secondary)\t%s\n", svc, e.Secondary)
		}
	}

	return tw.Flush()
}

// List prints the objects under prefix with their size and age.
func List(ctx context.Context, b storage.Backend, w io.Writer, prefix string) error {
	entries, err := b.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list, %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	var total uint64

	for _, e := range entries {
		size := uint64(0)
		if e.Size > 0 {
			size = uint64(e.Size)
		}

		total += size

		fmt.Fprintf(tw, "%s\t%s\t%s\n", humanize.Bytes(size), humanize.Time(e.LastModified), e.Path)
	}

	fmt.Fprintf(tw, "%s objects\t%s\t\n", humanize.Comma(int64(len(entries))), humanize.Bytes(total))

	return tw.Flush()
}

// Get downloads blob into the file dst, or to stdout when dst is Stdio.
func Get(ctx context.Context, l log.Logger, b storage.Backend, blob, dst string, stdout io.Writer) (err error) {
	if dst == "" || dst == Stdio {
		return b.Get(ctx, blob, stdout)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination <%s>, %w", dst, err)
	}

	defer internal.CloseWithErrCapturef(&err, f, "close destination <%s>", dst)

	cw := &countingWriter{w: f}
	if err := b.Get(ctx, blob, cw); err != nil {
		return err
	}

	level.Info(l).Log("msg", "downloaded", "blob", blob, "file", dst, "size", humanize.Bytes(cw.n))

	return nil
}

// Put uploads the file src, or stdin when src is Stdio, to blob.
func Put(ctx context.Context, l log.Logger, b storage.Backend, src, blob string, stdin io.Reader) error {
	if src == Stdio {
		return b.Put(ctx, blob, stdin)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source <%s>, %w", src, err)
	}

	defer internal.CloseWithErrLogf(l, f, "close source <%s>", src)

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat source <%s>, %w", src, err)
	}

	if err := b.Put(ctx, blob, f); err != nil {
		return err
	}

	level.Info(l).Log("msg", "uploaded", "blob", blob, "file", src, "size", humanize.Bytes(uint64(fi.Size())))

	return nil
}

// Exists prints whether blob exists and returns ErrNotFound when it does not.
func Exists(ctx context.Context, b storage.Backend, w io.Writer, blob string) error {
	ok, err := b.Exists(ctx, blob)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, ok)

	if !ok {
		return ErrNotFound
	}

	return nil
}

// Remove deletes blob.
func Remove(ctx context.Context, l log.Logger, b storage.Backend, blob string) error {
	if err := b.Delete(ctx, blob); err != nil {
		return err
	}

	level.Debug(l).Log("msg", "removed", "blob", blob)

	return nil
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)

	return n, err
}
