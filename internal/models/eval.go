package models

// TestCase is a single labeled case for prompt evaluation.
type TestCase struct {
	Name     string            `yaml:"name" json:"name"`
	Input    map[string]string `yaml:"input" json:"input"`
	Expected string            `yaml:"expected" json:"expected"`
	Weight   float64           `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// CaseResult captures the outcome of one test case. A failed execution or
// scoring records Score 0 and the failure in Error; it never aborts the run.
type CaseResult struct {
	Name     string            `json:"name"`
	Input    map[string]string `json:"input,omitempty"`
	Expected string            `json:"expected"`
	Output   string            `json:"output"`
	Score    float64           `json:"score"`
	Weight   float64           `json:"weight"`
	Error    string            `json:"error,omitempty"`
}

// EvalResult aggregates case scores for one (prompt, version) pair.
type EvalResult struct {
	RunID      string       `json:"run_id"`
	PromptName string       `json:"prompt"`
	Version    int          `json:"version"`
	Cases      []CaseResult `json:"cases"`
}

// MeanScore is the arithmetic mean over all case scores.
func (r *EvalResult) MeanScore() float64 {
	if len(r.Cases) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.Cases {
		sum += c.Score
	}
	return sum / float64(len(r.Cases))
}

// WeightedScore is the weight-normalized mean. Cases without an explicit
// weight count as 1.0.
func (r *EvalResult) WeightedScore() float64 {
	var total, weighted float64
	for _, c := range r.Cases {
		w := c.Weight
		if w == 0 {
			w = 1.0
		}
		total += w
		weighted += c.Score * w
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Passed reports whether every case scored at least 0.5.
func (r *EvalResult) Passed() bool {
	if len(r.Cases) == 0 {
		return false
	}
	for _, c := range r.Cases {
		if c.Score < 0.5 {
			return false
		}
	}
	return true
}
