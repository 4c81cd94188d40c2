// Package status implements the timed, stacking status effects carried by fighters.
package status

import "fmt"

// Kind identifies one status effect from the fixed catalog.
//
// Kinds are declared in ascending name order so that iterating by Kind and
// iterating by name visit effects identically.
type Kind uint8

const (
	Afterglow Kind = iota
	Bind
	Burn
	CEBurn
	Dodge
	Echo
	Haste
	Regen
	Shield
	Slow
	TimelineDisplace
	TimelineFreeze
	Vulnerable
	Weaken

	kindCount
)

var kindNames = [kindCount]string{
	Afterglow:        "afterglow",
	Bind:             "bind",
	Burn:             "burn",
	CEBurn:           "ce_burn",
	Dodge:            "dodge",
	Echo:             "echo",
	Haste:            "haste",
	Regen:            "regen",
	Shield:           "shield",
	Slow:             "slow",
	TimelineDisplace: "timeline_displace",
	TimelineFreeze:   "timeline_freeze",
	Vulnerable:       "vulnerable",
	Weaken:           "weaken",
}

// String returns the wire name of the kind, e.g. "ce_burn".
func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("status(%d)", uint8(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the catalog kinds.
func (k Kind) Valid() bool { return k < kindCount }

// ParseKind resolves a wire name to its Kind.
//
// Postcondition: Returns the Kind and nil, or an error naming the unknown kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown status kind %q", name)
}

// Kinds returns every catalog kind in name order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}
