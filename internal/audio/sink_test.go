package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/autopiano/autopiano-go/internal/synth"
)

func TestBlockReaderDuplicatesMonoToStereo(t *testing.T) {
	r := NewBlockReader([]float32{0.25, -0.5, 1})
	buf := make([]byte, 16)
	n, err := r.Read(buf)
	if err != nil || n != 16 {
		t.Fatalf("first read = %d, %v", n, err)
	}
	want := []float32{0.25, 0.25, -0.5, -0.5}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if got != w {
			t.Fatalf("sample %d = %f, want %f", i, got, w)
		}
	}
	n, err = r.Read(buf)
	if err != nil || n != 8 {
		t.Fatalf("second read = %d, %v", n, err)
	}
	if n, err = r.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("expected EOF, got %d, %v", n, err)
	}
}

func TestNullSinkPacesInRealTime(t *testing.T) {
	now := time.Unix(1000, 0)
	n := NewNull()
	n.now = func() time.Time { return now }
	if n.Busy() {
		t.Fatalf("new sink should be idle")
	}
	if err := n.Write(make([]float32, synth.Samples(500))); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !n.Busy() {
		t.Fatalf("sink should be busy right after a write")
	}
	now = now.Add(499 * time.Millisecond)
	if !n.Busy() {
		t.Fatalf("sink should still be busy at 499ms")
	}
	now = now.Add(2 * time.Millisecond)
	if n.Busy() {
		t.Fatalf("sink should be idle after the block duration")
	}
	n.Write(make([]float32, synth.SampleRate))
	n.Stop()
	if n.Busy() {
		t.Fatalf("stopped sink should be idle")
	}
}

func TestOpenBackends(t *testing.T) {
	f, err := Open("NULL")
	if err != nil {
		t.Fatalf("open null: %v", err)
	}
	s, err := f()
	if err != nil {
		t.Fatalf("null factory: %v", err)
	}
	if _, ok := s.(*Null); !ok {
		t.Fatalf("expected *Null, got %T", s)
	}
	if _, err := Open("alsa-direct"); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	names := Backends()
	found := 0
	for _, n := range names {
		if n == "ebiten" || n == "oto" || n == "null" {
			found++
		}
	}
	if found != 3 {
		t.Fatalf("backends = %v", names)
	}
}
