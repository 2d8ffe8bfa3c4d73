package wave

// Score 计算波次的物品总数，违反上下界或容量约束时返回 0
func Score(demand, supply []int, lowerBound, upperBound int) int {
	total, feasible := Check(demand, supply, lowerBound, upperBound)
	if !feasible {
		return 0
	}
	return total
}

// Check 与 Score 判定相同，但显式返回可行性
// 下界为 0 时空波次也可行，总数 0 不再兼作不可行标记
func Check(demand, supply []int, lowerBound, upperBound int) (int, bool) {
	total := 0
	for _, d := range demand {
		total += d
	}
	if total < lowerBound || total > upperBound {
		return total, false
	}
	for k, d := range demand {
		if d > supply[k] {
			return total, false
		}
	}
	return total, true
}

// Ratio 比值目标：物品数 / 通道数，通道数为 0 时为 0
func Ratio(score, aisleTotal int) float64 {
	if aisleTotal == 0 {
		return 0
	}
	return float64(score) / float64(aisleTotal)
}
