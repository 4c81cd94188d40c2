package battle

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sort"
	"strconv"
)

// SnapshotVersion tags the canonical encoding hashed by Checksum. Any change
// to the field list or ordering must bump it.
const SnapshotVersion = "ascension.snapshot.v1"

// Snapshot is one entry of the replay ledger.
type Snapshot struct {
	Round    int    `json:"round"`
	Checksum string `json:"checksum"`
}

// TakeSnapshot records the state's round and checksum.
func TakeSnapshot(s *State) Snapshot {
	return Snapshot{Round: s.Round, Checksum: Checksum(s)}
}

// Checksum hashes the canonical encoding of s with SHA-256.
//
// The encoding is a sequence of NUL-terminated fields: the version tag, the
// round, the combo chain, then every fighter sorted by id. A fighter is its id,
// owner, character id, health, combo energy, omni gauge, team, its statuses in
// kind-name order as (kind, stacks, duration) and its cooldowns sorted by skill
// id. Lists are length-prefixed. Volatility, debt and lock are not encoded.
func Checksum(s *State) string {
	h := sha256.New()
	w := canonicalWriter{h: h}
	w.str(SnapshotVersion)
	w.num(s.Round)
	w.num(s.Chain.Value)
	w.num(s.Chain.DecayTimer)

	fighters := append([]*Fighter(nil), s.Fighters...)
	sort.Slice(fighters, func(i, j int) bool { return fighters[i].ID < fighters[j].ID })
	w.num(len(fighters))
	for _, f := range fighters {
		w.str(f.ID)
		w.str(f.UserID)
		w.str(f.Character.ID)
		w.num(f.Health)
		w.str(strconv.FormatFloat(f.Energy, 'g', -1, 64))
		w.num(f.Omni)
		w.num(f.Team)

		active := f.Statuses.Active()
		w.num(len(active))
		for _, e := range active {
			w.str(e.Kind.String())
			w.num(e.Stacks)
			w.num(e.Duration)
		}

		ids := make([]string, 0, len(f.Cooldowns))
		for id := range f.Cooldowns {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		w.num(len(ids))
		for _, id := range ids {
			w.str(id)
			w.num(f.Cooldowns[id])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

type canonicalWriter struct {
	h hash.Hash
}

func (w canonicalWriter) str(v string) {
	w.h.Write([]byte(v))
	w.h.Write([]byte{0})
}

func (w canonicalWriter) num(v int) { w.str(strconv.Itoa(v)) }
