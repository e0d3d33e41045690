package monitor

// contextBuffer keeps the most recent lines of one session, bounded by the
// configured context window. Access is serialized by the service mutex.
type contextBuffer struct {
	capacity int
	lines    []string
	start    int
	count    int
}

func newContextBuffer(capacity int) *contextBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &contextBuffer{capacity: capacity, lines: make([]string, capacity)}
}

func (b *contextBuffer) append(line string) {
	if b.count < b.capacity {
		b.lines[(b.start+b.count)%b.capacity] = line
		b.count++
		return
	}
	b.lines[b.start] = line
	b.start = (b.start + 1) % b.capacity
}

// snapshot returns the buffered lines oldest first.
func (b *contextBuffer) snapshot() []string {
	out := make([]string, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.lines[(b.start+i)%b.capacity])
	}
	return out
}
