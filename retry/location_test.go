package retry

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/meltwater/azstorage/test"
)

const (
	primaryBase   = "https://acct.blob.core.windows.net/"
	secondaryBase = "https://acct-secondary.blob.core.windows.net/"
)

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()

	u, err := url.Parse(s)
	test.Ok(t, err)

	return u
}

func TestLocationSwap(t *testing.T) {
	var (
		primary   = primaryBase + "container/dir/blob?comp=list&marker=abc"
		secondary = secondaryBase + "container/dir/blob?comp=list&marker=abc"
		other     = "https://elsewhere.example.com/container/blob"
	)

	for _, tc := range []struct {
		mode LocationMode
		in   string
		want string
	}{
		{mode: PrimaryOnly, in: primary, want: primary},
		{mode: SecondaryOnly, in: secondary, want: secondary},
		{mode: PrimaryThenSecondary, in: primary, want: secondary},
		{mode: PrimaryThenSecondary, in: secondary, want: primary},
		{mode: SecondaryThenPrimary, in: secondary, want: primary},
		{mode: SecondaryThenPrimary, in: primary, want: secondary},
		{mode: PrimaryThenSecondary, in: other, want: other},
	} {
		t.Run(tc.mode.String()+" "+tc.in, func(t *testing.T) {
			l := Location{Mode: tc.mode, Primary: primaryBase, Secondary: secondaryBase}
			test.Equals(t, tc.want, l.Swap(mustParse(t, tc.in)).String())
		})
	}
}

func TestLocationSwapWithoutSecondary(t *testing.T) {
	l := Location{Mode: PrimaryThenSecondary, Primary: primaryBase}
	u := mustParse(t, primaryBase+"c/b")

	test.Equals(t, u, l.Swap(u))
}

func TestLocationMatchesWholeHostAndPathSegments(t *testing.T) {
	for _, tc := range []struct {
		name      string
		primary   string
		secondary string
		in        string
		want      string
	}{
		{
			name:      "host suffix",
			primary:   "http://acct.blob.x",
			secondary: "http://acct-secondary.blob.x",
			in:        "http://acct.blob.x.evil/c",
			want:      "http://acct.blob.x.evil/c",
		},
		{
			name:      "host with port",
			primary:   "http://acct.blob.x",
			secondary: "http://acct-secondary.blob.x",
			in:        "http://acct.blob.x:8080/c",
			want:      "http://acct.blob.x:8080/c",
		},
		{
			name:      "no trailing slash",
			primary:   "http://acct.blob.x",
			secondary: "http://acct-secondary.blob.x",
			in:        "http://acct.blob.x/c/b?comp=list",
			want:      "http://acct-secondary.blob.x/c/b?comp=list",
		},
		{
			name:      "path segment",
			primary:   "http://127.0.0.1:10000/devstoreaccount1/",
			secondary: "http://127.0.0.1:10000/devstoreaccount1-secondary/",
			in:        "http://127.0.0.1:10000/devstoreaccount10/c",
			want:      "http://127.0.0.1:10000/devstoreaccount10/c",
		},
		{
			name:      "path based secondary",
			primary:   "http://127.0.0.1:10000/devstoreaccount1/",
			secondary: "http://127.0.0.1:10000/devstoreaccount1-secondary/",
			in:        "http://127.0.0.1:10000/devstoreaccount1-secondary/c/b",
			want:      "http://127.0.0.1:10000/devstoreaccount1/c/b",
		},
		{
			name:      "scheme",
			primary:   primaryBase,
			secondary: secondaryBase,
			in:        "http://acct.blob.core.windows.net/c",
			want:      "http://acct.blob.core.windows.net/c",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l := Location{Mode: PrimaryThenSecondary, Primary: tc.primary, Secondary: tc.secondary}
			test.Equals(t, tc.want, l.Swap(mustParse(t, tc.in)).String())

			l.Mode = SecondaryOnly
			test.Assert(t, !l.IsSecondary(mustParse(t, "http://acct-secondary.blob.x.evil/c")), "expected foreign host not to be secondary")
		})
	}

	l := Location{Mode: SecondaryOnly, Primary: "http://acct.blob.x", Secondary: "http://acct-secondary.blob.x"}
	test.Equals(t, "http://acct.blob.x.evil/c", l.Initial(mustParse(t, "http://acct.blob.x.evil/c")).String())
	test.Equals(t, "http://acct-secondary.blob.x/c", l.Initial(mustParse(t, "http://acct.blob.x/c")).String())
}

func TestLocationInitial(t *testing.T) {
	in := primaryBase + "c/b"

	for mode, want := range map[LocationMode]string{
		PrimaryOnly:          in,
		PrimaryThenSecondary: in,
		SecondaryOnly:        secondaryBase + "c/b",
		SecondaryThenPrimary: secondaryBase + "c/b",
	} {
		l := Location{Mode: mode, Primary: primaryBase, Secondary: secondaryBase}
		test.Equals(t, want, l.Initial(mustParse(t, in)).String())
	}
}

func TestLocationIsSecondary(t *testing.T) {
	l := Location{Primary: primaryBase, Secondary: secondaryBase}

	test.Assert(t, l.IsSecondary(mustParse(t, secondaryBase+"c")), "expected secondary")
	test.Assert(t, !l.IsSecondary(mustParse(t, primaryBase+"c")), "expected primary")
	test.Assert(t, !Location{Primary: primaryBase}.IsSecondary(mustParse(t, primaryBase)), "expected primary without secondary")
}

func TestLocationContext(t *testing.T) {
	_, ok := LocationFrom(context.Background())
	test.Assert(t, !ok, "expected no location")

	want := Location{Mode: SecondaryOnly, Primary: primaryBase, Secondary: secondaryBase}
	got, ok := LocationFrom(WithLocation(context.Background(), want))
	test.Assert(t, ok, "expected location")
	test.Equals(t, want, got)
}

func TestContinuationMode(t *testing.T) {
	resp := &http.Response{}

	annotate(resp, true)
	m, ok := ContinuationMode(resp)
	test.Assert(t, ok, "expected continuation mode")
	test.Equals(t, SecondaryOnly, m)

	annotate(resp, false)
	m, ok = ContinuationMode(resp)
	test.Assert(t, ok, "expected continuation mode")
	test.Equals(t, PrimaryOnly, m)

	_, ok = ContinuationMode(&http.Response{Header: http.Header{}})
	test.Assert(t, !ok, "expected no continuation mode")
}
