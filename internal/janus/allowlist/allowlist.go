// Package allowlist holds the government-attested registry of legitimate
// access points and keeps it in sync with its publisher.
package allowlist

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

var (
	ErrChecksumMismatch = errors.New("allow-list checksum mismatch")
	ErrMissingVersion   = errors.New("allow-list version is required")
	ErrInvalidEntry     = errors.New("allow-list entry is invalid")
)

// Snapshot is an immutable, indexed view of one allow-list release.
type Snapshot struct {
	Version  string
	Checksum string
	SyncedAt time.Time

	entries []types.AllowListEntry
	byBSSID map[string]types.AllowListEntry
	bySSID  map[string][]types.AllowListEntry
}

var emptySnapshot = &Snapshot{
	byBSSID: map[string]types.AllowListEntry{},
	bySSID:  map[string][]types.AllowListEntry{},
}

// Lookup returns the entry for bssid if its attested SSID matches ssid.
func (s *Snapshot) Lookup(bssid, ssid string) (types.AllowListEntry, bool) {
	e, ok := s.byBSSID[bssid]
	if !ok || types.NormalizeSSID(e.SSID) != types.NormalizeSSID(ssid) {
		return types.AllowListEntry{}, false
	}
	return e, true
}

// EntriesForSSID returns every attested AP broadcasting ssid.
func (s *Snapshot) EntriesForSSID(ssid string) []types.AllowListEntry {
	return s.bySSID[types.NormalizeSSID(ssid)]
}

func (s *Snapshot) Len() int { return len(s.entries) }

func (s *Snapshot) Entries() []types.AllowListEntry {
	out := make([]types.AllowListEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Document re-renders the snapshot in wire form, e.g. for caching.
func (s *Snapshot) Document() types.AllowListDocument {
	return types.AllowListDocument{
		Version:  s.Version,
		Checksum: s.Checksum,
		Entries:  s.Entries(),
	}
}

// Checksum computes the canonical checksum of a set of entries: lower-hex
// SHA-256 over "BSSID\tSSID\tlat,lon,radius\n" lines sorted by BSSID then
// SSID. BSSIDs must already be canonical.
func Checksum(entries []types.AllowListEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		fence := ""
		if e.Geofence != nil {
			fence = strconv.FormatFloat(e.Geofence.Latitude, 'f', 6, 64) + "," +
				strconv.FormatFloat(e.Geofence.Longitude, 'f', 6, 64) + "," +
				strconv.FormatFloat(e.Geofence.RadiusMeters, 'f', 1, 64)
		}
		lines = append(lines, e.BSSID+"\t"+e.SSID+"\t"+fence+"\n")
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Build validates doc and returns an indexed snapshot. The document is
// rejected as a whole if any entry is malformed or the checksum does not
// match.
func Build(doc types.AllowListDocument, syncedAt time.Time) (*Snapshot, error) {
	version := strings.TrimSpace(doc.Version)
	if version == "" {
		return nil, ErrMissingVersion
	}

	entries := make([]types.AllowListEntry, 0, len(doc.Entries))
	for i, e := range doc.Entries {
		bssid, err := types.NormalizeBSSID(e.BSSID)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d bssid %q", ErrInvalidEntry, i, e.BSSID)
		}
		if strings.TrimSpace(e.SSID) == "" {
			return nil, fmt.Errorf("%w: entry %d has empty ssid", ErrInvalidEntry, i)
		}
		e.BSSID = bssid
		e.Version = version
		e.Checksum = doc.Checksum
		entries = append(entries, e)
	}

	if got := Checksum(entries); !strings.EqualFold(got, strings.TrimSpace(doc.Checksum)) {
		return nil, fmt.Errorf("%w: version %s", ErrChecksumMismatch, version)
	}

	s := &Snapshot{
		Version:  version,
		Checksum: strings.ToLower(strings.TrimSpace(doc.Checksum)),
		SyncedAt: syncedAt.UTC(),
		entries:  entries,
		byBSSID:  make(map[string]types.AllowListEntry, len(entries)),
		bySSID:   make(map[string][]types.AllowListEntry),
	}
	for _, e := range entries {
		s.byBSSID[e.BSSID] = e
		n := types.NormalizeSSID(e.SSID)
		s.bySSID[n] = append(s.bySSID[n], e)
	}
	return s, nil
}

// Status is the advisory view of the allow-list for operators.
type Status struct {
	Loaded   bool      `json:"loaded"`
	Version  string    `json:"version,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
	Entries  int       `json:"entries"`
	SyncedAt time.Time `json:"synced_at,omitempty"`
	Stale    bool      `json:"stale"`
}

// Store publishes allow-list snapshots. Readers always see a complete
// snapshot: either the previous one or the new one.
type Store struct {
	current atomic.Pointer[Snapshot]
	maxAge  time.Duration
}

// NewStore creates an empty store. maxAge <= 0 disables age-based staleness;
// an empty store is always stale.
func NewStore(maxAge time.Duration) *Store {
	return &Store{maxAge: maxAge}
}

// Current returns the active snapshot, or an empty one if nothing has been
// loaded yet. Never nil.
func (s *Store) Current() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// Apply verifies doc and swaps it in. On error the previous snapshot stays
// active.
func (s *Store) Apply(doc types.AllowListDocument, syncedAt time.Time) (*Snapshot, error) {
	snap, err := Build(doc, syncedAt)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}

// Touch records a successful sync that found the active release unchanged.
// The snapshot is replaced by a copy carrying the new sync time; if another
// release was applied concurrently, that one wins and Touch reports false.
func (s *Store) Touch(syncedAt time.Time) (*Snapshot, bool) {
	cur := s.current.Load()
	if cur == nil {
		return nil, false
	}
	next := *cur
	next.SyncedAt = syncedAt.UTC()
	if !s.current.CompareAndSwap(cur, &next) {
		return nil, false
	}
	return &next, true
}

func (s *Store) Loaded() bool { return s.current.Load() != nil }

func (s *Store) IsStale(now time.Time) bool {
	snap := s.current.Load()
	if snap == nil {
		return true
	}
	if s.maxAge <= 0 {
		return false
	}
	return now.Sub(snap.SyncedAt) > s.maxAge
}

func (s *Store) Status(now time.Time) Status {
	snap := s.current.Load()
	if snap == nil {
		return Status{Stale: true}
	}
	return Status{
		Loaded:   true,
		Version:  snap.Version,
		Checksum: snap.Checksum,
		Entries:  snap.Len(),
		SyncedAt: snap.SyncedAt,
		Stale:    s.IsStale(now),
	}
}
