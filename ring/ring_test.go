package ring

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"
)

func TestRingCapacityEight(t *testing.T) {
	r := New(8)
	msg := []byte{0x90, 60, 127}

	if !r.Write(msg) {
		t.Fatal("first write failed")
	}
	if !r.Write(msg) {
		t.Fatal("second write failed")
	}
	if got := r.WriteAvailable(); got != 1 {
		t.Fatalf("WriteAvailable = %d, want 1", got)
	}
	if r.Write(msg) {
		t.Fatal("third write succeeded with 1 byte free")
	}
	if got := r.ReadAvailable(); got != 6 {
		t.Fatalf("failed write changed contents: ReadAvailable = %d, want 6", got)
	}

	dst := make([]byte, 2)
	if n := r.Read(dst); n != 2 {
		t.Fatalf("Read = %d, want 2", n)
	}
	if !r.Write(msg) {
		t.Fatal("write after read failed")
	}

	rest := make([]byte, 16)
	n := r.Read(rest)
	want := []byte{127, 0x90, 60, 127, 0x90, 60, 127}
	if !bytes.Equal(rest[:n], want) {
		t.Fatalf("read % x, want % x", rest[:n], want)
	}
	if r.ReadAvailable() != 0 || r.WriteAvailable() != 7 {
		t.Fatalf("not empty: read=%d write=%d", r.ReadAvailable(), r.WriteAvailable())
	}
}

func TestRingEmpty(t *testing.T) {
	r := New(4)
	if n := r.Read(make([]byte, 4)); n != 0 {
		t.Fatalf("Read on empty ring = %d", n)
	}
	if !r.Write(nil) {
		t.Fatal("empty write failed")
	}
	if r.ReadAvailable() != 0 {
		t.Fatal("empty write stored bytes")
	}
	if r.Size() != 4 || r.WriteAvailable() != 3 {
		t.Fatalf("Size=%d WriteAvailable=%d", r.Size(), r.WriteAvailable())
	}
}

func TestRingOversizedWrite(t *testing.T) {
	r := New(4)
	if r.Write([]byte{1, 2, 3, 4}) {
		t.Fatal("write of size bytes succeeded; only size-1 are usable")
	}
	if !r.Write([]byte{1, 2, 3}) {
		t.Fatal("write of size-1 bytes failed")
	}
}

func TestRingWrapAround(t *testing.T) {
	r := New(5)
	dst := make([]byte, 8)

	for i := 0; i < 20; i++ {
		msg := []byte{byte(i), byte(i + 1), byte(i + 2)}
		if !r.Write(msg) {
			t.Fatalf("write %d failed", i)
		}
		n := r.Read(dst)
		if !bytes.Equal(dst[:n], msg) {
			t.Fatalf("round %d: read % x, want % x", i, dst[:n], msg)
		}
	}
}

func TestRingPeekDiscard(t *testing.T) {
	r := New(8)
	r.Write([]byte{1, 2, 3, 4, 5})
	r.Read(make([]byte, 4))
	r.Write([]byte{6, 7, 8, 9}) // wraps

	dst := make([]byte, 3)
	if n := r.Peek(dst); n != 3 || !bytes.Equal(dst, []byte{5, 6, 7}) {
		t.Fatalf("Peek = %d % x", n, dst)
	}
	if got := r.ReadAvailable(); got != 5 {
		t.Fatalf("Peek consumed bytes: ReadAvailable = %d", got)
	}
	if n := r.Discard(3); n != 3 {
		t.Fatalf("Discard = %d, want 3", n)
	}
	if n := r.Peek(dst); n != 2 || !bytes.Equal(dst[:n], []byte{8, 9}) {
		t.Fatalf("Peek after Discard = %d % x", n, dst[:n])
	}
	if n := r.Discard(10); n != 2 {
		t.Fatalf("Discard past the end = %d, want 2", n)
	}
	if n := r.Discard(-1); n != 0 {
		t.Fatalf("Discard(-1) = %d", n)
	}
}

func TestRingPanicsOnTinySize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(1) did not panic")
		}
	}()
	New(1)
}

// TestRingModel replays random writes and reads against a plain slice.
func TestRingModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, size := range []int{2, 3, 8, 17, 64} {
		r := New(size)
		var model []byte
		var next byte

		for op := 0; op < 5000; op++ {
			if rng.Intn(2) == 0 {
				msg := make([]byte, rng.Intn(size+1))
				for i := range msg {
					msg[i] = next
					next++
				}
				free := size - 1 - len(model)
				ok := r.Write(msg)
				if ok != (len(msg) <= free) {
					t.Fatalf("size %d: Write(%d) = %v with %d free", size, len(msg), ok, free)
				}
				if ok {
					model = append(model, msg...)
				} else {
					next -= byte(len(msg))
				}
			} else {
				dst := make([]byte, rng.Intn(size+1))
				n := r.Read(dst)
				want := min(len(dst), len(model))
				if n != want {
					t.Fatalf("size %d: Read = %d, want %d", size, n, want)
				}
				if !bytes.Equal(dst[:n], model[:n]) {
					t.Fatalf("size %d: read % x, want % x", size, dst[:n], model[:n])
				}
				model = model[n:]
			}
			if r.ReadAvailable() != len(model) {
				t.Fatalf("size %d: ReadAvailable = %d, model %d", size, r.ReadAvailable(), len(model))
			}
		}
	}
}

// TestRingConcurrent runs one producer and one consumer; run with -race.
func TestRingConcurrent(t *testing.T) {
	const messages = 100000
	r := New(64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < messages; i++ {
			msg := []byte{byte(i), byte(i >> 8), byte(i >> 16)}
			for !r.Write(msg) {
				// spin until the consumer frees space
			}
		}
	}()

	got := make([]byte, 0, messages*3)
	buf := make([]byte, 7) // odd size so reads split messages
	for len(got) < messages*3 {
		n := r.Read(buf)
		got = append(got, buf[:n]...)
	}
	wg.Wait()

	for i := 0; i < messages; i++ {
		m := got[i*3 : i*3+3]
		if m[0] != byte(i) || m[1] != byte(i>>8) || m[2] != byte(i>>16) {
			t.Fatalf("message %d corrupted: % x", i, m)
		}
	}
}

func TestRingNoAllocs(t *testing.T) {
	r := New(16)
	msg := []byte{0x90, 60, 127}
	dst := make([]byte, 16)

	allocs := testing.AllocsPerRun(1000, func() {
		r.Write(msg)
		r.Write(msg)
		r.ReadAvailable()
		r.WriteAvailable()
		r.Read(dst)
	})
	if allocs != 0 {
		t.Fatalf("ring operations allocate: %v allocs/run", allocs)
	}
}

func BenchmarkRingWriteRead(b *testing.B) {
	r := New(16384)
	msg := []byte{0x90, 60, 127}
	dst := make([]byte, 3)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Write(msg)
		r.Read(dst)
	}
}
