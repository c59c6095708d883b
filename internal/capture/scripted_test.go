package capture

import (
	"testing"
	"time"
)

func TestScriptedSource_EmitAndReceive(t *testing.T) {
	src := NewScriptedSource()
	ts := time.Now()

	if !src.Emit([]byte("a"), ts) {
		t.Fatal("Emit should succeed on an open source")
	}

	chunk := <-src.Chunks()
	if string(chunk.Data) != "a" || !chunk.Timestamp.Equal(ts) {
		t.Errorf("chunk = %q@%v, want a@%v", chunk.Data, chunk.Timestamp, ts)
	}
}

func TestScriptedSource_PauseDropsAtSource(t *testing.T) {
	src := NewScriptedSource()

	src.Pause()
	if src.Emit([]byte("dropped"), time.Now()) {
		t.Error("Emit while paused should be dropped")
	}
	if !src.Paused() {
		t.Error("Paused() should report true")
	}

	src.Resume()
	if !src.Emit([]byte("kept"), time.Now()) {
		t.Error("Emit after resume should succeed")
	}

	chunk := <-src.Chunks()
	if string(chunk.Data) != "kept" {
		t.Errorf("received %q, want only the post-resume chunk", chunk.Data)
	}
}

func TestScriptedSource_EndExternally(t *testing.T) {
	src := NewScriptedSource()
	src.Emit([]byte("a"), time.Now())
	src.EndExternally()

	// Buffered chunk still drains, then the channel closes.
	if _, ok := <-src.Chunks(); !ok {
		t.Fatal("buffered chunk should drain before close")
	}
	if _, ok := <-src.Chunks(); ok {
		t.Fatal("chunk channel should be closed after external end")
	}

	if err := <-src.Done(); err != nil {
		t.Errorf("external end should deliver nil on Done, got %v", err)
	}

	if src.Emit([]byte("late"), time.Now()) {
		t.Error("Emit after termination should be dropped")
	}
}

func TestScriptedSource_FailDeliversError(t *testing.T) {
	src := NewScriptedSource()
	src.Fail(errFake)

	if err := <-src.Done(); err != errFake {
		t.Errorf("Done delivered %v, want errFake", err)
	}
}

func TestScriptedSource_CloseIsQuiet(t *testing.T) {
	src := NewScriptedSource()
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	select {
	case err := <-src.Done():
		t.Errorf("Done fired on user close: %v", err)
	default:
	}
}

var errFake = &fakeError{}

type fakeError struct{}

func (*fakeError) Error() string { return "fake source failure" }
