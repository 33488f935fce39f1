package pmi

import "math"

// Calculator computes pointwise mutual information from document counts.
type Calculator struct {
	epsilon float64 // smoothing constant
}

// NewCalculator creates a calculator. A non-positive epsilon disables
// smoothing.
func NewCalculator(epsilon float64) *Calculator {
	if epsilon < 0 {
		epsilon = 0
	}
	return &Calculator{epsilon: epsilon}
}

// PMI calculates the pointwise mutual information of two words
//
// PMI(a,b) = log((N_ab + ε) * N / ((N_a + ε)(N_b + ε)))
//
// Where:
//   - N_ab = number of documents containing both a and b
//   - N_a, N_b = number of documents containing each word
//   - N = total number of documents
func (c *Calculator) PMI(nAB, nA, nB, n int64) float64 {
	if n == 0 {
		return 0
	}
	num := (float64(nAB) + c.epsilon) * float64(n)
	den := (float64(nA) + c.epsilon) * (float64(nB) + c.epsilon)
	if num == 0 || den == 0 {
		return math.Inf(-1)
	}
	return math.Log(num / den)
}

// NPMI normalizes PMI into [-1, 1]: 1 for words that always co-occur, 0 for
// independent words and -1 for words that never do.
func (c *Calculator) NPMI(nAB, nA, nB, n int64) float64 {
	if n == 0 {
		return 0
	}
	if nAB == 0 {
		return -1
	}

	pAB := (float64(nAB) + c.epsilon) / (float64(n) + c.epsilon)
	logPAB := -math.Log(pAB)
	if logPAB == 0 {
		return 1
	}
	v := c.PMI(nAB, nA, nB, n) / logPAB
	return math.Max(-1, math.Min(1, v))
}

// Coherence is the mean NPMI over all pairs of a topic's words. Topics with
// fewer than two words score 0.
func (c *Calculator) Coherence(counts *Counter, words []string) float64 {
	var (
		sum   float64
		pairs int
	)
	for i := 0; i < len(words); i++ {
		for j := i + 1; j < len(words); j++ {
			a, b := words[i], words[j]
			sum += c.NPMI(counts.PairCount(a, b), counts.Count(a), counts.Count(b), counts.Docs())
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}
