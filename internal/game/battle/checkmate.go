package battle

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/ascension/internal/game/dice"
)

const checkmateSeed = "checkmate"

// ErrNoAscended is returned by Checkmate when the roster has no ascended character.
var ErrNoAscended = errors.New("roster has no ascended character")

// Checkmate is the scripted instant win: two copies of the ascended character
// face off and team 1 is struck down before anyone acts. Access control is the
// caller's concern.
//
// Postcondition: Winner is 0, Rounds is 1, the team 1 fighter has 0 health,
// and the result carries exactly one event and one snapshot.
func (e *Engine) Checkmate() (*Result, error) {
	ascended := -1
	roster := e.catalog.Roster()
	for i, c := range roster {
		if c.Ascended {
			ascended = i
			break
		}
	}
	if ascended < 0 {
		return nil, ErrNoAscended
	}
	c := roster[ascended]
	state := NewState(dice.NewSequence(checkmateSeed), roster[ascended:ascended+1], roster[ascended:ascended+1])
	state.Round = 1
	state.Fighters[1].Health = 0

	winner := 0
	return &Result{
		Seed: checkmateSeed,
		Events: []Event{{
			Kind:   EventSkill,
			Detail: fmt.Sprintf("%s invokes Checkmate, annihilating PvE foes", c.Name),
		}},
		Winner:    &winner,
		Outcome:   OutcomeWin,
		Rounds:    1,
		Final:     state,
		Snapshots: []Snapshot{TakeSnapshot(state)},
	}, nil
}
