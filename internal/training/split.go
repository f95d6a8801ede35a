package training

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions examples into train and test sets holding each
// label in (close to) its overall proportion. The test set gets
// ceil(testSize*n) examples and every label appears in both sets. Both
// partitions keep the input order. The same seed always yields the same split.
func StratifiedSplit(examples []Example, testSize float64, seed int64) (train, test []Example, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	n := len(examples)
	if n == 0 {
		return nil, nil, &InsufficientDataError{Reason: "dataset is empty"}
	}

	byLabel := make(map[int][]int)
	for i, ex := range examples {
		byLabel[ex.Label] = append(byLabel[ex.Label], i)
	}
	counts := make(map[int]int, len(byLabel))
	for l, idx := range byLabel {
		counts[l] = len(idx)
	}
	labels := sortedLabels(counts)

	for _, l := range labels {
		if counts[l] < 2 {
			return nil, nil, &InsufficientDataError{
				Reason: fmt.Sprintf("label %d has %d example, every label needs at least 2", l, counts[l]),
			}
		}
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < len(labels) {
		return nil, nil, &InsufficientDataError{
			Reason: fmt.Sprintf("test set of %d cannot hold all %d labels", nTest, len(labels)),
		}
	}
	if nTrain < len(labels) {
		return nil, nil, &InsufficientDataError{
			Reason: fmt.Sprintf("train set of %d cannot hold all %d labels", nTrain, len(labels)),
		}
	}

	alloc := allocateTest(labels, counts, n, nTest)

	rng := rand.New(rand.NewSource(seed))
	inTest := make([]bool, n)
	for _, l := range labels {
		idx := append([]int(nil), byLabel[l]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for _, i := range idx[:alloc[l]] {
			inTest[i] = true
		}
	}

	train = make([]Example, 0, nTrain)
	test = make([]Example, 0, nTest)
	for i, ex := range examples {
		if inTest[i] {
			test = append(test, ex)
		} else {
			train = append(train, ex)
		}
	}
	return train, test, nil
}

// allocateTest decides how many examples of each label go to the test set.
// Each label gets its proportional share rounded down, kept within
// [1, count-1], and the total is then corrected to nTest by largest remainder.
// Callers guarantee len(labels) <= nTest <= n-len(labels).
func allocateTest(labels []int, counts map[int]int, n, nTest int) map[int]int {
	alloc := make(map[int]int, len(labels))
	remainder := make(map[int]float64, len(labels))
	total := 0
	for _, l := range labels {
		ideal := float64(counts[l]) * float64(nTest) / float64(n)
		k := int(math.Floor(ideal))
		remainder[l] = ideal - float64(k)
		if k < 1 {
			k = 1
		}
		if k > counts[l]-1 {
			k = counts[l] - 1
		}
		alloc[l] = k
		total += k
	}

	order := append([]int(nil), labels...)
	if total < nTest {
		// largest remainder first, ties to the smaller label
		sort.SliceStable(order, func(i, j int) bool { return remainder[order[i]] > remainder[order[j]] })
		for total < nTest {
			for _, l := range order {
				if total == nTest {
					break
				}
				if alloc[l] < counts[l]-1 {
					alloc[l]++
					total++
				}
			}
		}
	}
	if total > nTest {
		sort.SliceStable(order, func(i, j int) bool { return remainder[order[i]] < remainder[order[j]] })
		for total > nTest {
			for _, l := range order {
				if total == nTest {
					break
				}
				if alloc[l] > 1 {
					alloc[l]--
					total--
				}
			}
		}
	}
	return alloc
}
