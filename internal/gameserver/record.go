package gameserver

import (
	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/modes"
	"github.com/cory-johannsen/ascension/internal/storage/postgres"
)

func recordFromRun(run *modes.Run) *postgres.MatchRecord {
	rec := &postgres.MatchRecord{
		ID:         run.MatchID,
		Mode:       string(run.Mode),
		UserID:     run.UserID,
		Success:    run.Success,
		Cleared:    run.Cleared,
		Modifier:   string(run.Modifier),
		Difficulty: run.Difficulty,
	}
	for _, w := range run.Waves {
		rec.Waves = append(rec.Waves, postgres.WaveRecord{
			Number:     w.Number,
			Seed:       w.Spec.Seed,
			TeamA:      w.Spec.TeamA,
			TeamB:      w.Spec.TeamB,
			Modifier:   string(w.Spec.Modifier),
			Difficulty: w.Spec.Difficulty,
			OwnerA:     w.Spec.OwnerA,
			OwnerB:     w.Spec.OwnerB,
			Outcome:    string(w.Result.Outcome),
			Winner:     w.Result.Winner,
			Rounds:     w.Result.Rounds,
			Checksums:  w.Result.Checksums(),
		})
	}
	for _, e := range run.Events {
		rec.Events = append(rec.Events, postgres.EventRecord{
			Type:   string(e.Kind),
			Detail: e.Detail,
			Data:   e.Data,
		})
	}
	return rec
}

func specFromWave(w postgres.WaveRecord) modes.Spec {
	return modes.Spec{
		TeamA:      w.TeamA,
		TeamB:      w.TeamB,
		Modifier:   modes.BossModifier(w.Modifier),
		Difficulty: w.Difficulty,
		Seed:       w.Seed,
		OwnerA:     w.OwnerA,
		OwnerB:     w.OwnerB,
	}
}

// storedLedger rebuilds the snapshot ledger; round numbers follow position.
func storedLedger(w postgres.WaveRecord) []battle.Snapshot {
	out := make([]battle.Snapshot, len(w.Checksums))
	for i, sum := range w.Checksums {
		out[i] = battle.Snapshot{Round: i + 1, Checksum: sum}
	}
	return out
}
