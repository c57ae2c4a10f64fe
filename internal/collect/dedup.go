package collect

import "go.uber.org/zap"

// seenSet is a set of identity keys.
type seenSet[K comparable] map[K]struct{}

// add inserts k and reports whether it was new.
func (s seenSet[K]) add(k K) bool {
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}

// state is the per-run collection state.
type state[R any, K comparable] struct {
	records     []R
	seen        seenSet[K]
	step        int
	attempts    int
	skipped     int
	lastFailure string
}

func newState[R any, K comparable]() *state[R, K] {
	return &state[R, K]{seen: seenSet[K]{}}
}

// accept appends the unseen candidates and returns how many were added.
func (st *state[R, K]) accept(candidates []R, key KeyFunc[R, K]) int {
	var added int
	for _, r := range candidates {
		k, err := key(r)
		if err != nil {
			st.skipped++
			zap.L().Debug("skipping record without identity", zap.Error(err))
			continue
		}
		if !st.seen.add(k) {
			continue
		}
		st.records = append(st.records, r)
		added++
	}
	return added
}
