package analysis

// seqRand replays fixed draws; panics when a draw is out of range or exhausted.
type seqRand struct {
	draws []int
	calls []int
}

func (s *seqRand) IntN(n int) int {
	if len(s.draws) == 0 {
		panic("seqRand exhausted")
	}
	v := s.draws[0]
	s.draws = s.draws[1:]
	if v < 0 || v >= n {
		panic("seqRand draw out of range")
	}
	s.calls = append(s.calls, n)
	return v
}
