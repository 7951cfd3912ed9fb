package analytics

// FlowEntry is one ledger amount in the energy-flow window.
type FlowEntry struct {
	Amount int64
	Daily  bool // nightly credit: base plus streak bonus
}

// EnergyFlow breaks a window of ledger activity into where energy came from
// and where it went.
type EnergyFlow struct {
	BaseDaily     int64 `json:"base_daily"`
	StreakBonus   int64 `json:"streak_bonus"`
	ActivityBonus int64 `json:"activity_bonus"`
	Losses        int64 `json:"losses"`
	Net           int64 `json:"net"`
	CurrentEnergy int64 `json:"current_energy"`
}

// Flow splits nightly credits into their base and streak-bonus parts, counts
// every other gain as activity bonus and every negative amount as a loss.
// An empty window reports one night's base credit and nothing else.
func Flow(entries []FlowEntry, base, current int64) EnergyFlow {
	f := EnergyFlow{CurrentEnergy: current}
	if len(entries) == 0 {
		f.BaseDaily = base
		return f
	}
	for _, e := range entries {
		switch {
		case e.Amount < 0:
			f.Losses -= e.Amount
		case e.Daily:
			b := min(e.Amount, base)
			f.BaseDaily += b
			f.StreakBonus += e.Amount - b
		default:
			f.ActivityBonus += e.Amount
		}
	}
	f.Net = f.BaseDaily + f.StreakBonus + f.ActivityBonus - f.Losses
	return f
}
