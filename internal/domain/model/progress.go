package model

// Progress is the cached "steps completed / steps total" aggregate.
// Values built through NewProgress or Apply always satisfy
// 0 <= Done <= Total and Percent == round(100*Done/Total) (0 when Total is 0).
type Progress struct {
	Done    int `json:"stepsDone"`
	Total   int `json:"stepsTotal"`
	Percent int `json:"progressPercent"`
}

// NewProgress clamps the counters into range and derives the percentage.
func NewProgress(done, total int) Progress {
	if total < 0 {
		total = 0
	}
	if done < 0 {
		done = 0
	}
	if done > total {
		done = total
	}
	return Progress{Done: done, Total: total, Percent: percentOf(done, total)}
}

// Apply returns the counters after a relative change. Out-of-range results are clamped.
func (p Progress) Apply(doneDelta, totalDelta int) Progress {
	return NewProgress(p.Done+doneDelta, p.Total+totalDelta)
}

// Valid reports whether p satisfies the counter invariant.
func (p Progress) Valid() bool {
	return p.Done >= 0 && p.Done <= p.Total && p.Percent == percentOf(p.Done, p.Total)
}

// percentOf rounds half up.
func percentOf(done, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}

// ProgressOf counts steps from the source of truth.
func ProgressOf(steps []*Step) Progress {
	done := 0
	for _, s := range steps {
		if s.IsDone {
			done++
		}
	}
	return NewProgress(done, len(steps))
}
