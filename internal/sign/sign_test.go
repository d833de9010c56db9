package sign

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/GentleMercenary/ofnotify/internal/rules"
)

func testRules() rules.Rules {
	return rules.Rules{
		AppToken:         "33d57ade8c02dbc5a333db99ff9ae26a",
		StaticParam:      "t0EFQmFOmtYSGRUj",
		Prefix:           "5a3c",
		Suffix:           "6b7d",
		ChecksumConstant: -1000,
		ChecksumIndexes:  []int{0, 5, 10, 20, 32, 39},
	}
}

func testIdentity() Identity {
	return Identity{
		SubjectID: "12345",
		ClientID:  "bc-token",
		UserAgent: "test-agent/1.0",
	}
}

func TestHeadersKnownVector(t *testing.T) {
	u, err := url.Parse("https://onlyfans.com/api2/v2/users/me")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	hs, err := Headers(testRules(), testIdentity(), u, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("headers: %v", err)
	}

	want := "5a3c:b12396d3fc06a6a86cc13da40eb7674a881eea63:282:6b7d"
	if hs.Sign != want {
		t.Fatalf("sign header mismatch:\n got %s\nwant %s", hs.Sign, want)
	}
	if hs.Time != "1700000000" {
		t.Fatalf("time header: got %s, want 1700000000", hs.Time)
	}
	if hs.AppToken != "33d57ade8c02dbc5a333db99ff9ae26a" {
		t.Fatalf("app-token header: got %s", hs.AppToken)
	}
	if hs.Accept != AcceptValue {
		t.Fatalf("accept header: got %s", hs.Accept)
	}
}

func TestHeadersKnownVectorWithQuery(t *testing.T) {
	u, err := url.Parse("https://onlyfans.com/api2/v2/users/list?limit=10&offset=0")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	hs, err := Headers(testRules(), testIdentity(), u, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	want := "5a3c:8df5ab3935b2db2e54aa54d196109024a5d5db90:226:6b7d"
	if hs.Sign != want {
		t.Fatalf("sign header mismatch:\n got %s\nwant %s", hs.Sign, want)
	}
}

func TestHeadersDeterministic(t *testing.T) {
	u, _ := url.Parse("https://onlyfans.com/api2/v2/subscriptions?limit=50")
	ts := time.Unix(1723480000, 0)

	first, err := Headers(testRules(), testIdentity(), u, ts)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := Headers(testRules(), testIdentity(), u, ts)
		if err != nil {
			t.Fatalf("headers: %v", err)
		}
		if next != first {
			t.Fatalf("non-deterministic header set: %+v vs %+v", next, first)
		}
	}
}

func TestHeadersChecksumIndexOutOfRange(t *testing.T) {
	r := testRules()
	r.ChecksumIndexes = []int{0, 40}

	u, _ := url.Parse("https://onlyfans.com/api2/v2/users/me")
	_, err := Headers(r, testIdentity(), u, time.Unix(1700000000, 0))
	if !errors.Is(err, ErrChecksumIndex) {
		t.Fatalf("expected ErrChecksumIndex, got %v", err)
	}
}

func TestHeadersSingleTimestamp(t *testing.T) {
	u, _ := url.Parse("https://onlyfans.com/api2/v2/users/me")
	hs, err := Headers(testRules(), testIdentity(), u, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("headers: %v", err)
	}

	h := http.Header{}
	hs.Apply(h)
	if got := h.Get("time"); got != hs.Time {
		t.Fatalf("applied time header %q differs from computed %q", got, hs.Time)
	}
	for _, name := range []string{"accept", "user-agent", "x-bc", "user-id", "time", "app-token", "sign"} {
		if h.Get(name) == "" {
			t.Fatalf("header %s not applied", name)
		}
	}
}
