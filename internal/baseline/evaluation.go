package baseline

// BPR holds boundary precision, recall and F-score.
type BPR struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F         float64 `json:"f"`
}

func boundarySet(segments []Construction) map[int]struct{} {
	set := make(map[int]struct{}, len(segments))
	for _, loc := range splitLocsOf(segments) {
		set[loc] = struct{}{}
	}
	return set
}

// boundaryRecall sums, over compounds, the best recall any predicted
// alternative achieves against any reference alternative.
func boundaryRecall(prediction, reference [][][]Construction) (float64, int) {
	var sum float64
	var total int
	for i := 0; i < len(prediction) && i < len(reference); i++ {
		best := -1.0
		for _, ref := range reference[i] {
			refB := boundarySet(ref)
			if len(refB) == 0 {
				best = 1.0
				break
			}
			for _, pre := range prediction[i] {
				preB := boundarySet(pre)
				hit := 0
				for b := range refB {
					if _, ok := preB[b]; ok {
						hit++
					}
				}
				if r := float64(hit) / float64(len(refB)); r > best {
					best = r
				}
			}
		}
		if best >= 0 {
			sum += best
			total++
		}
	}
	return sum, total
}

// EvaluateBoundaries compares predicted segmentations against references.
// Both are indexed by compound and hold one or more alternatives each.
func EvaluateBoundaries(prediction, reference [][][]Construction) BPR {
	recSum, recTotal := boundaryRecall(prediction, reference)
	preSum, preTotal := boundaryRecall(reference, prediction)
	var bpr BPR
	if recTotal > 0 {
		bpr.Recall = recSum / float64(recTotal)
	}
	if preTotal > 0 {
		bpr.Precision = preSum / float64(preTotal)
	}
	if bpr.Precision+bpr.Recall > 0 {
		bpr.F = 2 * bpr.Precision * bpr.Recall / (bpr.Precision + bpr.Recall)
	}
	return bpr
}

// segmentationDirection returns 1 when the sample is over-segmented
// (recall above precision), -1 when under-segmented and 0 when the two are
// within threshold.
func segmentationDirection(bpr BPR, threshold float64) int {
	diff := bpr.Precision - bpr.Recall
	switch {
	case diff < threshold && diff > -threshold:
		return 0
	case bpr.Recall > bpr.Precision:
		return 1
	default:
		return -1
	}
}
