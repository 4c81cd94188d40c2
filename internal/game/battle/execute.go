package battle

import (
	"fmt"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/status"
)

// maxEchoDepth bounds a single echo cascade.
const maxEchoDepth = 16

// Execute resolves skillID for actor.
//
// An id the actor does not own is logged and ignored. A non-tap skill the actor
// cannot afford is logged as insufficient energy and leaves state untouched.
// Otherwise energy is spent, a single enemy is drawn for targeted skills, the
// effect runs and the skill goes on cooldown. An ascended actor's overcharged
// skill comes straight back off cooldown.
//
// Postcondition: Returns an error wrapping ErrDebtCapExceeded or
// ErrUnboundSkill when the battle must abort; nil otherwise.
func Execute(state *State, actor *Fighter, skillID string, sink Sink) error {
	skill, ok := actor.Character.Skill(skillID)
	if !ok {
		sink(Event{Kind: EventSkill, Detail: fmt.Sprintf("%s has no skill %q", actor.Name(), skillID)})
		return nil
	}
	effect, ok := effects[skill.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnboundSkill, skill.ID)
	}
	if actor.Energy < float64(skill.Cost) && skill.ChargeLevel != catalog.Tap {
		sink(Event{Kind: EventSkill, Detail: fmt.Sprintf("%s lacks CE for %s", actor.Name(), skill.Name)})
		return nil
	}
	if err := actor.SpendEnergy(float64(skill.Cost)); err != nil {
		return fmt.Errorf("executing %s: %w", skill.ID, err)
	}
	ctx := &effectContext{state: state, actor: actor, sink: sink}
	if skill.Targeting == catalog.SingleEnemy {
		ctx.target = state.pickEnemy(actor)
	}
	effect(ctx)
	actor.putOnCooldown(skill)
	if skill.ChargeLevel == catalog.Overcharged && actor.Character.Ascended {
		actor.Cooldowns[skill.ID] = 0
		sink(Event{Kind: EventPassive, Detail: fmt.Sprintf("%s gains an extra action from overcharge", actor.Name())})
	}
	return nil
}

// ResolveEcho re-resolves skillID once per echo stack the actor holds,
// consuming a stack each time. Echo granted by a re-resolution keeps the
// cascade going, up to maxEchoDepth repeats.
func ResolveEcho(state *State, actor *Fighter, skillID string, sink Sink) error {
	for range maxEchoDepth {
		echo, ok := actor.Statuses.Get(status.Echo)
		if !ok || echo.Stacks <= 0 {
			return nil
		}
		echo.Stacks--
		if echo.Stacks <= 0 {
			actor.Statuses.Remove(status.Echo)
		}
		sink(Event{Kind: EventEcho, Detail: fmt.Sprintf("%s echoes %s", actor.Name(), skillID)})
		if err := Execute(state, actor, skillID, sink); err != nil {
			return err
		}
	}
	return nil
}
