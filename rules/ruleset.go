package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultInvitePattern is the Discord invite link marker.
const DefaultInvitePattern = "discord.gg"

// InviteDuration is the fixed mute applied for invite links.
const InviteDuration = 24 * time.Hour

// Bucket is a list of banned terms sharing one mute duration.
type Bucket struct {
	Token    string
	Duration time.Duration
	Terms    []string // lower-cased, in configuration order
}

// RuleSet holds the banned terms by duration bucket in file order.
// A RuleSet is never mutated after construction.
type RuleSet struct {
	Buckets       []Bucket
	InvitePattern string
}

// Match is the result of scanning a text against a RuleSet.
type Match struct {
	Invite bool
	Token  string
	Term   string
}

// Hit reports whether anything matched.
func (m Match) Hit() bool {
	return m.Invite || m.Term != ""
}

// New builds a RuleSet from ordered buckets.
func New(invitePattern string, buckets ...Bucket) *RuleSet {
	if invitePattern == "" {
		invitePattern = DefaultInvitePattern
	}
	rs := &RuleSet{InvitePattern: strings.ToLower(invitePattern)}
	for _, b := range buckets {
		nb := Bucket{Token: b.Token, Duration: DurationOf(b.Token)}
		for _, t := range b.Terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				nb.Terms = append(nb.Terms, t)
			}
		}
		rs.Buckets = append(rs.Buckets, nb)
	}
	return rs
}

// Empty returns a RuleSet with no banned terms.
func Empty(invitePattern string) *RuleSet {
	return New(invitePattern)
}

// Load reads a rule set file. Array values are duration buckets, kept in
// document order; any other value (e.g. dm_messages) is skipped.
func Load(path, invitePattern string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule set %s: %w", path, err)
	}
	defer f.Close()

	buckets, err := decodeBuckets(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule set %s: %w", path, err)
	}
	return New(invitePattern, buckets...), nil
}

// decodeBuckets walks the top-level object token by token so the key
// order of the file is preserved.
func decodeBuckets(r io.Reader) ([]Bucket, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("rule set must be a JSON object")
	}

	var buckets []Bucket
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}

		var terms []string
		if err := json.Unmarshal(raw, &terms); err != nil {
			continue
		}
		buckets = append(buckets, Bucket{Token: key, Terms: terms})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return buckets, nil
}

// Match scans text. The invite marker takes priority; otherwise the first
// bucket containing a hit wins, and within it the first listed term.
func (rs *RuleSet) Match(text string) Match {
	content := strings.ToLower(text)
	if rs.InvitePattern != "" && strings.Contains(content, rs.InvitePattern) {
		return Match{Invite: true}
	}
	for _, b := range rs.Buckets {
		for _, term := range b.Terms {
			if strings.Contains(content, term) {
				return Match{Token: b.Token, Term: term}
			}
		}
	}
	return Match{}
}

// DurationFor returns the mute duration of the bucket named token.
func (rs *RuleSet) DurationFor(token string) time.Duration {
	for _, b := range rs.Buckets {
		if b.Token == token {
			return b.Duration
		}
	}
	return DurationOf(token)
}

// TermCount returns the total number of banned terms.
func (rs *RuleSet) TermCount() int {
	n := 0
	for _, b := range rs.Buckets {
		n += len(b.Terms)
	}
	return n
}
