package dedupe

// Set remembers every key it has seen. Unlike a bounded cache it never
// evicts, so a corpus pass keeps exactly the first occurrence of every key.
type Set struct {
	items map[string]struct{}
}

// NewSet creates a set sized for roughly capacity keys.
func NewSet(capacity int) *Set {
	if capacity < 0 {
		capacity = 0
	}
	return &Set{items: make(map[string]struct{}, capacity)}
}

// MarkSeen records the key. It returns false if the key was already present.
func (s *Set) MarkSeen(key string) bool {
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = struct{}{}
	return true
}

// Len is the number of distinct keys recorded.
func (s *Set) Len() int {
	return len(s.items)
}
