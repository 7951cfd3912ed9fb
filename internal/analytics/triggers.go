package analytics

import "sort"

// TriggerSlot counts streak-breaking events in one (hour, weekday) slot.
type TriggerSlot struct {
	Hour           int      `json:"hour"`
	Weekday        int      `json:"day_of_week"`
	TriggerCount   int      `json:"trigger_count"`
	CommonTriggers []string `json:"common_triggers"`
}

// UrgeSlot is the mean urge and stress reported in one (hour, weekday) slot.
type UrgeSlot struct {
	Hour      int      `json:"hour"`
	Weekday   int      `json:"day_of_week"`
	AvgUrges  float64  `json:"avg_urges"`
	AvgStress *float64 `json:"avg_stress"`
}

// TriggerEvent is the part of a streak-breaking event the heatmap needs.
type TriggerEvent struct {
	Hour     int
	Weekday  int
	Triggers []string
}

// TriggerSummary highlights the riskiest slot. Nil fields mean no events.
type TriggerSummary struct {
	TotalTriggers   int  `json:"total_triggers"`
	HighestRiskHour *int `json:"highest_risk_hour"`
	HighestRiskDay  *int `json:"highest_risk_day"`
}

// TriggerAnalysis is the hour-by-weekday view of when streaks break.
type TriggerAnalysis struct {
	TriggerEvents []TriggerSlot  `json:"trigger_events"`
	UrgePatterns  []UrgeSlot     `json:"urge_patterns"`
	Summary       TriggerSummary `json:"summary"`
}

// AnalyzeTriggers buckets events by (hour, weekday), ordered by weekday then
// hour, and names the slot with the most events (earliest slot on ties).
func AnalyzeTriggers(events []TriggerEvent, urges []UrgeSlot) TriggerAnalysis {
	type key struct{ hour, weekday int }
	slots := make(map[key]*TriggerSlot)
	seen := make(map[key]map[string]bool)

	for _, e := range events {
		k := key{e.Hour, e.Weekday}
		s, ok := slots[k]
		if !ok {
			s = &TriggerSlot{Hour: e.Hour, Weekday: e.Weekday, CommonTriggers: []string{}}
			slots[k] = s
			seen[k] = make(map[string]bool)
		}
		s.TriggerCount++
		for _, t := range e.Triggers {
			if t == "" || seen[k][t] {
				continue
			}
			seen[k][t] = true
			s.CommonTriggers = append(s.CommonTriggers, t)
		}
	}

	out := TriggerAnalysis{
		TriggerEvents: make([]TriggerSlot, 0, len(slots)),
		UrgePatterns:  urges,
	}
	if out.UrgePatterns == nil {
		out.UrgePatterns = []UrgeSlot{}
	}
	for _, s := range slots {
		sort.Strings(s.CommonTriggers)
		out.TriggerEvents = append(out.TriggerEvents, *s)
	}
	sort.Slice(out.TriggerEvents, func(i, j int) bool {
		a, b := out.TriggerEvents[i], out.TriggerEvents[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		return a.Hour < b.Hour
	})

	var best *TriggerSlot
	for i := range out.TriggerEvents {
		s := &out.TriggerEvents[i]
		out.Summary.TotalTriggers += s.TriggerCount
		if best == nil || s.TriggerCount > best.TriggerCount {
			best = s
		}
	}
	if best != nil {
		hour, day := best.Hour, best.Weekday
		out.Summary.HighestRiskHour = &hour
		out.Summary.HighestRiskDay = &day
	}
	return out
}
