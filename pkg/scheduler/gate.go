package scheduler

// hysteresisTicks is N from spec §4.6: "once gated off, a category
// requires the condition to hold for N consecutive ticks (default 3)
// before re-admission to avoid flapping."
const hysteresisTicks = 3

// Gate applies the admission matrix with hysteresis: once a job kind is
// blocked, it stays blocked until the underlying condition has allowed
// admission for hysteresisTicks consecutive ticks.
type Gate struct {
	cpuSoft, cpuHard float64
	admitted         map[JobKind]bool
	streak           map[JobKind]int
}

// NewGate builds a Gate starting with every kind blocked, which matches
// a freshly started service conservatively waiting out the hysteresis
// window before admitting anything but CriticalUpdate.
func NewGate(cpuSoft, cpuHard float64) *Gate {
	return &Gate{
		cpuSoft: cpuSoft,
		cpuHard: cpuHard,
		admitted: map[JobKind]bool{
			CriticalUpdate: true,
		},
		streak: make(map[JobKind]int),
	}
}

// Tick evaluates the raw admission rule for every kind against the
// sampled idle state and load, updates each kind's hysteresis streak,
// and returns whether the kind is currently admitted.
//
// Hysteresis only delays re-admission (false -> true): gating off
// (true -> false) takes effect on the very next tick, since the
// hysteresis window exists to avoid flapping on admission, not to keep
// admitting work once conditions turn unfavorable (spec §4.6).
func (g *Gate) Tick(idle IdleState, load SystemLoad) map[JobKind]bool {
	kinds := []JobKind{CriticalUpdate, MetadataRebuild, ContentBatch}
	result := make(map[JobKind]bool, len(kinds))

	for _, kind := range kinds {
		raw := admit(kind, idle, load, g.cpuSoft, g.cpuHard)
		wasAdmitted := g.admitted[kind]

		if raw == wasAdmitted {
			g.streak[kind] = 0
			result[kind] = wasAdmitted
			continue
		}

		if !raw {
			g.admitted[kind] = false
			g.streak[kind] = 0
			result[kind] = false
			continue
		}

		g.streak[kind]++
		if g.streak[kind] >= hysteresisTicks {
			g.admitted[kind] = true
			g.streak[kind] = 0
		}
		result[kind] = g.admitted[kind]
	}

	return result
}
