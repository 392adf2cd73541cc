package chat

import (
	"encoding/json"
	"fmt"
)

// ReactionKind is the closed set of reactions a user can put on a message.
// Adding a kind means adding a constant here and a name in reactionNames.
type ReactionKind uint8

// Reaction kinds
const (
	ReactionHelpful ReactionKind = iota + 1
	ReactionNotHelpful
	ReactionStar
	ReactionBookmark

	reactionKindEnd
)

var reactionNames = [reactionKindEnd]string{
	ReactionHelpful:    "helpful",
	ReactionNotHelpful: "not_helpful",
	ReactionStar:       "star",
	ReactionBookmark:   "bookmark",
}

// AllReactionKinds lists every kind in declaration order
func AllReactionKinds() []ReactionKind {
	kinds := make([]ReactionKind, 0, reactionKindEnd-1)
	for k := ReactionHelpful; k < reactionKindEnd; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k is a declared kind
func (k ReactionKind) Valid() bool {
	return k >= ReactionHelpful && k < reactionKindEnd
}

func (k ReactionKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ReactionKind(%d)", uint8(k))
	}
	return reactionNames[k]
}

// ParseReactionKind maps a wire name to its kind
func ParseReactionKind(s string) (ReactionKind, error) {
	for k := ReactionHelpful; k < reactionKindEnd; k++ {
		if reactionNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown reaction %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (k ReactionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid reaction kind %d", uint8(k))
	}
	return []byte(reactionNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *ReactionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseReactionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// opposite returns the kind that cannot coexist with k
func (k ReactionKind) opposite() (ReactionKind, bool) {
	switch k {
	case ReactionHelpful:
		return ReactionNotHelpful, true
	case ReactionNotHelpful:
		return ReactionHelpful, true
	}
	return 0, false
}

// ReactionSet is a bit set of reaction kinds. Stored as a small integer,
// serialized as a list of names.
type ReactionSet uint8

func reactionBit(k ReactionKind) ReactionSet { return 1 << (k - 1) }

// Has reports whether k is in the set
func (s ReactionSet) Has(k ReactionKind) bool {
	return k.Valid() && s&reactionBit(k) != 0
}

// With returns the set with k added. Helpful and not-helpful are exclusive.
func (s ReactionSet) With(k ReactionKind) ReactionSet {
	if !k.Valid() {
		return s
	}
	if opp, ok := k.opposite(); ok {
		s = s.Without(opp)
	}
	return s | reactionBit(k)
}

// Without returns the set with k removed
func (s ReactionSet) Without(k ReactionKind) ReactionSet {
	if !k.Valid() {
		return s
	}
	return s &^ reactionBit(k)
}

// Kinds lists the kinds in the set in declaration order
func (s ReactionSet) Kinds() []ReactionKind {
	kinds := []ReactionKind{}
	for _, k := range AllReactionKinds() {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// MarshalJSON renders the set as ["helpful","star"]
func (s ReactionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Kinds())
}

// UnmarshalJSON accepts a list of reaction names
func (s *ReactionSet) UnmarshalJSON(data []byte) error {
	var kinds []ReactionKind
	if err := json.Unmarshal(data, &kinds); err != nil {
		return err
	}
	var out ReactionSet
	for _, k := range kinds {
		out = out.With(k)
	}
	*s = out
	return nil
}
