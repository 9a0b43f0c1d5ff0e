package analysis

import "math"

// Percentages derives each status's share of the record set as a percentage
// rounded to two decimal places. The shares sum to 100 within rounding
// tolerance. An empty record set yields zero for every status present in
// counts, never a division by zero.
func Percentages(total int, counts map[string]int) map[string]float64 {
	shares := make(map[string]float64, len(counts))
	if total <= 0 {
		for status := range counts {
			shares[status] = 0
		}
		return shares
	}
	for status, n := range counts {
		shares[status] = round2(float64(n) / float64(total) * 100)
	}
	return shares
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
