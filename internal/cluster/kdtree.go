package cluster

// kdIndex is a static 2D KD-tree over a flat coordinate array. It is built
// once per zoom level and never mutated.
type kdIndex struct {
	ids      []int
	coords   []float64
	nodeSize int
}

func newKDIndex(xs, ys []float64, nodeSize int) *kdIndex {
	if nodeSize < 1 {
		nodeSize = 64
	}
	n := len(xs)
	idx := &kdIndex{
		ids:      make([]int, n),
		coords:   make([]float64, 2*n),
		nodeSize: nodeSize,
	}
	for i := 0; i < n; i++ {
		idx.ids[i] = i
		idx.coords[2*i] = xs[i]
		idx.coords[2*i+1] = ys[i]
	}
	idx.sort(0, n-1, 0)
	return idx
}

func (k *kdIndex) sort(left, right, axis int) {
	if right-left <= k.nodeSize {
		return
	}
	m := (left + right) >> 1
	k.selectK(m, left, right, axis)
	k.sort(left, m-1, 1-axis)
	k.sort(m+1, right, 1-axis)
}

// selectK partially sorts [left,right] so the k-th element is in place along
// axis (Hoare quickselect)
func (k *kdIndex) selectK(kth, left, right, axis int) {
	for right > left {
		t := k.coords[2*kth+axis]
		i, j := left, right

		k.swap(left, kth)
		if k.coords[2*right+axis] > t {
			k.swap(left, right)
		}

		for i < j {
			k.swap(i, j)
			i++
			j--
			for k.coords[2*i+axis] < t {
				i++
			}
			for k.coords[2*j+axis] > t {
				j--
			}
		}

		if k.coords[2*left+axis] == t {
			k.swap(left, j)
		} else {
			j++
			k.swap(j, right)
		}

		if j <= kth {
			left = j + 1
		}
		if kth <= j {
			right = j - 1
		}
	}
}

func (k *kdIndex) swap(i, j int) {
	k.ids[i], k.ids[j] = k.ids[j], k.ids[i]
	k.coords[2*i], k.coords[2*j] = k.coords[2*j], k.coords[2*i]
	k.coords[2*i+1], k.coords[2*j+1] = k.coords[2*j+1], k.coords[2*i+1]
}

// rangeQuery returns ids of all points inside the box
func (k *kdIndex) rangeQuery(minX, minY, maxX, maxY float64) []int {
	var result []int
	stack := []int{0, len(k.ids) - 1, 0}

	for len(stack) > 0 {
		axis := stack[len(stack)-1]
		right := stack[len(stack)-2]
		left := stack[len(stack)-3]
		stack = stack[:len(stack)-3]

		if right-left <= k.nodeSize {
			for i := left; i <= right; i++ {
				x, y := k.coords[2*i], k.coords[2*i+1]
				if x >= minX && x <= maxX && y >= minY && y <= maxY {
					result = append(result, k.ids[i])
				}
			}
			continue
		}

		m := (left + right) >> 1
		x, y := k.coords[2*m], k.coords[2*m+1]
		if x >= minX && x <= maxX && y >= minY && y <= maxY {
			result = append(result, k.ids[m])
		}

		if (axis == 0 && minX <= x) || (axis == 1 && minY <= y) {
			stack = append(stack, left, m-1, 1-axis)
		}
		if (axis == 0 && maxX >= x) || (axis == 1 && maxY >= y) {
			stack = append(stack, m+1, right, 1-axis)
		}
	}

	return result
}

// within returns ids of all points within radius r of (qx, qy)
func (k *kdIndex) within(qx, qy, r float64) []int {
	var result []int
	stack := []int{0, len(k.ids) - 1, 0}
	r2 := r * r

	for len(stack) > 0 {
		axis := stack[len(stack)-1]
		right := stack[len(stack)-2]
		left := stack[len(stack)-3]
		stack = stack[:len(stack)-3]

		if right-left <= k.nodeSize {
			for i := left; i <= right; i++ {
				if sqDist(k.coords[2*i], k.coords[2*i+1], qx, qy) <= r2 {
					result = append(result, k.ids[i])
				}
			}
			continue
		}

		m := (left + right) >> 1
		x, y := k.coords[2*m], k.coords[2*m+1]
		if sqDist(x, y, qx, qy) <= r2 {
			result = append(result, k.ids[m])
		}

		if (axis == 0 && qx-r <= x) || (axis == 1 && qy-r <= y) {
			stack = append(stack, left, m-1, 1-axis)
		}
		if (axis == 0 && qx+r >= x) || (axis == 1 && qy+r >= y) {
			stack = append(stack, m+1, right, 1-axis)
		}
	}

	return result
}

func sqDist(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}
