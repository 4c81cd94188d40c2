package gameserver

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/modes"
	"github.com/cory-johannsen/ascension/internal/storage/postgres"
)

// errBadRequest marks a malformed request message.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// request reads typed fields out of a structpb request.
type request struct{ fields map[string]*structpb.Value }

func newRequest(in *structpb.Struct) request { return request{fields: in.GetFields()} }

func (r request) str(key string) (string, error) {
	v, ok := r.fields[key]
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", badRequest("%s must be a string", key)
	}
	return s.StringValue, nil
}

func (r request) requiredStr(key string) (string, error) {
	s, err := r.str(key)
	if err == nil && s == "" {
		err = badRequest("%s is required", key)
	}
	return s, err
}

func (r request) integer(key string, fallback int) (int, error) {
	v, ok := r.fields[key]
	if !ok {
		return fallback, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, badRequest("%s must be an integer", key)
	}
	return int(n.NumberValue), nil
}

func (r request) flag(key string) (bool, error) {
	v, ok := r.fields[key]
	if !ok {
		return false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, badRequest("%s must be a bool", key)
	}
	return b.BoolValue, nil
}

func (r request) strs(key string) ([]string, error) {
	v, ok := r.fields[key]
	if !ok {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, badRequest("%s must be a list of strings", key)
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, badRequest("%s must be a list of strings", key)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func (r request) matchID(key string) (uuid.UUID, error) {
	s, err := r.requiredStr(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, badRequest("%s: %v", key, err)
	}
	return id, nil
}

func (r request) list(key string) ([]request, error) {
	v, ok := r.fields[key]
	if !ok {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, badRequest("%s must be a list of objects", key)
	}
	var out []request
	for _, item := range list.ListValue.GetValues() {
		obj, ok := item.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, badRequest("%s must be a list of objects", key)
		}
		out = append(out, newRequest(obj.StructValue))
	}
	return out, nil
}

func anyStrings(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func skillMessage(s catalog.Skill) map[string]any {
	return map[string]any{
		"id":           s.ID,
		"name":         s.Name,
		"description":  s.Description,
		"charge_level": string(s.ChargeLevel),
		"cost":         s.Cost,
		"cooldown":     s.Cooldown,
		"targeting":    string(s.Targeting),
	}
}

func characterMessage(c *catalog.Character) map[string]any {
	skills := make([]any, 0, len(c.Skills))
	for _, s := range c.Skills {
		skills = append(skills, skillMessage(s))
	}
	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"element":     c.Element,
		"role":        c.Role,
		"ascended":    c.Ascended,
		"max_health":  c.MaxHealth,
		"base_damage": c.BaseDamage,
		"passive":     c.Passive,
		"skills":      skills,
		"burst":       skillMessage(c.Burst),
	}
}

func charactersMessage(cs []*catalog.Character) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = characterMessage(c)
	}
	return out
}

func eventsMessage(events []battle.Event) []any {
	out := make([]any, len(events))
	for i, e := range events {
		m := map[string]any{"type": string(e.Kind), "detail": e.Detail}
		if len(e.Data) > 0 {
			m["data"] = e.Data
		}
		out[i] = m
	}
	return out
}

func resultMessage(res *battle.Result) map[string]any {
	var winner any
	if res.Winner != nil {
		winner = *res.Winner
	}
	fighters := make([]any, 0, len(res.Final.Fighters))
	for _, f := range res.Final.Fighters {
		fighters = append(fighters, map[string]any{
			"id":        f.ID,
			"user_id":   f.UserID,
			"character": f.Character.ID,
			"team":      f.Team,
			"health":    f.Health,
			"energy":    f.Energy,
			"omni":      f.Omni,
		})
	}
	return map[string]any{
		"seed":      res.Seed,
		"outcome":   string(res.Outcome),
		"winner":    winner,
		"rounds":    res.Rounds,
		"events":    eventsMessage(res.Events),
		"checksums": anyStrings(res.Checksums()),
		"fighters":  fighters,
	}
}

// runMessage omits per-wave events; the run's merged narrative carries them.
func runMessage(run *modes.Run) map[string]any {
	waves := make([]any, 0, len(run.Waves))
	for _, w := range run.Waves {
		res := resultMessage(w.Result)
		delete(res, "events")
		res["number"] = w.Number
		waves = append(waves, res)
	}
	return map[string]any{
		"match_id":   run.MatchID.String(),
		"mode":       string(run.Mode),
		"user_id":    run.UserID,
		"success":    run.Success,
		"cleared":    run.Cleared,
		"modifier":   string(run.Modifier),
		"difficulty": run.Difficulty,
		"waves":      waves,
		"events":     eventsMessage(run.Events),
	}
}

func auditMessage(a *Audit) map[string]any {
	waves := make([]any, 0, len(a.Waves))
	for _, w := range a.Waves {
		waves = append(waves, map[string]any{
			"number":     w.Number,
			"seed":       w.Seed,
			"consistent": w.Verification.Consistent,
			"baseline":   w.Verification.Baseline,
			"mismatches": w.Verification.Mismatches,
		})
	}
	return map[string]any{
		"match_id":   a.MatchID.String(),
		"consistent": a.Consistent(),
		"waves":      waves,
	}
}

func historyMessage(list []postgres.MatchSummary) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = map[string]any{
			"match_id":   s.ID.String(),
			"mode":       s.Mode,
			"success":    s.Success,
			"cleared":    s.Cleared,
			"created_at": s.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	return out
}
