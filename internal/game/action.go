package game

import "fmt"

// Kind is the basic move type at a decision node.
type Kind uint8

const (
	Fold Kind = iota
	Check
	Call
	Bet
)

// BetSize is the discrete sizing tag of a bet or raise.
type BetSize uint8

const (
	// SizeMin is roughly a third of the pot, rounded up.
	SizeMin BetSize = iota
	// SizeMid is a full pot-sized bet.
	SizeMid
	// SizeMax is the remaining stack.
	SizeMax
)

// Action is one discrete move. For a bet, Amount is the number of chips the
// actor puts in beyond matching the outstanding bet; for a call it is the
// chips paid to call. It is filled in when legal actions are enumerated so
// traversal and replay agree on sizes.
type Action struct {
	Kind   Kind
	Size   BetSize
	Amount int
}

// Tag returns the canonical text form used in histories and info-set keys:
// f, k, c, bMIN, bMID, bMAX.
func (a Action) Tag() string {
	switch a.Kind {
	case Fold:
		return "f"
	case Check:
		return "k"
	case Call:
		return "c"
	case Bet:
		switch a.Size {
		case SizeMin:
			return "bMIN"
		case SizeMid:
			return "bMID"
		default:
			return "bMAX"
		}
	default:
		return "?"
	}
}

func (a Action) String() string { return a.Tag() }

// ParseAction decodes a canonical action tag.
func ParseAction(s string) (Action, error) {
	switch s {
	case "f":
		return Action{Kind: Fold}, nil
	case "k":
		return Action{Kind: Check}, nil
	case "c":
		return Action{Kind: Call}, nil
	case "bMIN":
		return Action{Kind: Bet, Size: SizeMin}, nil
	case "bMID":
		return Action{Kind: Bet, Size: SizeMid}, nil
	case "bMAX":
		return Action{Kind: Bet, Size: SizeMax}, nil
	default:
		return Action{}, fmt.Errorf("parse action %q: unknown tag", s)
	}
}

// Tags renders an action list as canonical tags, in order.
func Tags(actions []Action) []string {
	tags := make([]string, len(actions))
	for i, a := range actions {
		tags[i] = a.Tag()
	}
	return tags
}
