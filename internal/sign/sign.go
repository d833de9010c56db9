// Package sign computes the per-request signature headers required by the
// remote API. The scheme is a reverse-engineered external contract; its
// byte-level behavior must not change.
package sign

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/GentleMercenary/ofnotify/internal/rules"
)

// AcceptValue is the fixed accept header the remote API expects.
const AcceptValue = "application/json, text/plain, */*"

// ErrChecksumIndex is returned when a rule document carries a checksum index
// outside the 40-character hex digest. The rules are malformed, not the
// request.
var ErrChecksumIndex = errors.New("sign: checksum index out of digest range")

// Identity is the stable caller identity embedded in every signed request.
type Identity struct {
	SubjectID string
	ClientID  string
	UserAgent string
}

// HeaderSet is the derived header set for exactly one request. It embeds the
// request timestamp and must never be reused or cached.
type HeaderSet struct {
	Accept    string
	UserAgent string
	ClientID  string
	SubjectID string
	Time      string
	AppToken  string
	Sign      string
}

// Apply writes the header set onto h.
func (s HeaderSet) Apply(h http.Header) {
	h.Set("accept", s.Accept)
	h.Set("user-agent", s.UserAgent)
	h.Set("x-bc", s.ClientID)
	h.Set("user-id", s.SubjectID)
	h.Set("time", s.Time)
	h.Set("app-token", s.AppToken)
	h.Set("sign", s.Sign)
}

// Headers computes the signed header set for u at the given timestamp.
//
// The signature string is the lowercase hex SHA-1 of
// static_param, unix-seconds, path[?query] and subject id joined by
// single newlines. The checksum sums the ASCII bytes of the digest at the
// rule-provided indexes, adds the rule constant, and renders the absolute
// value as lowercase hex. The sign header is
// prefix:digest:checksum:suffix.
func Headers(r rules.Rules, id Identity, u *url.URL, now time.Time) (HeaderSet, error) {
	ts := strconv.FormatInt(now.Unix(), 10)

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path = path + "?" + u.RawQuery
	}

	msg := r.StaticParam + "\n" + ts + "\n" + path + "\n" + id.SubjectID
	sum := sha1.Sum([]byte(msg))
	digest := hex.EncodeToString(sum[:])

	checksum := r.ChecksumConstant
	for _, idx := range r.ChecksumIndexes {
		if idx < 0 || idx >= len(digest) {
			return HeaderSet{}, fmt.Errorf("%w: index %d, digest length %d", ErrChecksumIndex, idx, len(digest))
		}
		checksum += int(digest[idx])
	}
	if checksum < 0 {
		checksum = -checksum
	}

	return HeaderSet{
		Accept:    AcceptValue,
		UserAgent: id.UserAgent,
		ClientID:  id.ClientID,
		SubjectID: id.SubjectID,
		Time:      ts,
		AppToken:  r.AppToken,
		Sign:      r.Prefix + ":" + digest + ":" + strconv.FormatInt(int64(checksum), 16) + ":" + r.Suffix,
	}, nil
}
