package dispatch

// Buffer is a destination port's per-cycle event buffer.
// Every method is called from the process callback and must not block or allocate.
type Buffer interface {
	// Begin clears the buffer for a cycle of frames frames.
	Begin(frames uint32)
	// Space returns an upper bound on the bytes Write can still take this cycle.
	Space() int
	// Write copies one message into the buffer. It returns false, and keeps
	// nothing, when the destination has no room for it.
	Write(msg []byte) bool
	// End closes the cycle and hands the bytes to the destination.
	End()
}

// SliceBuffer is a fixed-capacity in-memory Buffer.
// The backing array is allocated once by NewSliceBuffer.
type SliceBuffer struct {
	buf    []byte
	frames uint32
}

// NewSliceBuffer returns a buffer that holds up to size bytes per cycle.
func NewSliceBuffer(size int) *SliceBuffer {
	return &SliceBuffer{buf: make([]byte, 0, size)}
}

func (b *SliceBuffer) Begin(frames uint32) {
	b.buf = b.buf[:0]
	b.frames = frames
}

func (b *SliceBuffer) Space() int { return cap(b.buf) - len(b.buf) }

func (b *SliceBuffer) Write(msg []byte) bool {
	if len(msg) > b.Space() {
		return false
	}
	b.buf = append(b.buf, msg...)
	return true
}

func (b *SliceBuffer) End() {}

// Bytes returns the bytes written this cycle. Valid until the next Begin.
func (b *SliceBuffer) Bytes() []byte { return b.buf }

// Frames returns the frame count passed to the last Begin.
func (b *SliceBuffer) Frames() uint32 { return b.frames }
