package service

import "sort"

// markerHash mixes a seed and a marker ID into a well-distributed 64-bit
// value (splitmix64 finalizer).
func markerHash(seed, id int64) uint64 {
	z := uint64(seed)*0x9E3779B97F4A7C15 + uint64(id)
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// deterministicSample picks k markers with the smallest hashes. The same
// input, k and seed always yield the same sample in the same order.
func deterministicSample(items []MarkerInfo, k int, seed int64) []MarkerInfo {
	if k <= 0 {
		return []MarkerInfo{}
	}
	if k >= len(items) {
		out := make([]MarkerInfo, len(items))
		copy(out, items)
		return out
	}

	type keyed struct {
		hash uint64
		idx  int
	}
	keys := make([]keyed, len(items))
	for i, m := range items {
		keys[i] = keyed{hash: markerHash(seed, m.ID), idx: i}
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].hash != keys[b].hash {
			return keys[a].hash < keys[b].hash
		}
		return items[keys[a].idx].ID < items[keys[b].idx].ID
	})

	out := make([]MarkerInfo, k)
	for i := 0; i < k; i++ {
		out[i] = items[keys[i].idx]
	}
	return out
}
