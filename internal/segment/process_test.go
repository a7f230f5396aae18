package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const helperEnv = "PRESENTER_SEGMENT_HELPER"

// TestHelperProcess is not a real test. It stands in for the segmentation
// service when started by the process engine tests.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}

	in := os.Stdin
	out := os.Stdout
	for {
		length := make([]byte, 4)
		if _, err := io.ReadFull(in, length); err != nil {
			os.Exit(0)
		}
		if _, err := io.CopyN(io.Discard, in, int64(binary.BigEndian.Uint32(length))); err != nil {
			os.Exit(1)
		}

		if mode == "bad" {
			out.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
			continue
		}

		header := make([]byte, 8)
		binary.BigEndian.PutUint32(header[0:4], 4)
		binary.BigEndian.PutUint32(header[4:8], 3)
		out.Write(header)
		out.Write(bytes.Repeat([]byte{128}, 12))
	}
}

func helperConfig() Config {
	cfg := DefaultConfig()
	cfg.Engine = EngineProcess
	cfg.Command = []string{os.Args[0], "-test.run=^TestHelperProcess$", "--"}
	cfg.IdleTimeout = time.Minute
	return cfg
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestProcessEngine_Segment(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	t.Setenv(helperEnv, "ok")

	eng, err := NewProcessEngine(helperConfig(), quietLogger())
	if err != nil {
		t.Fatalf("NewProcessEngine() error = %v", err)
	}
	defer eng.Close()

	if eng.Running() {
		t.Error("service should start lazily")
	}

	for seq := uint64(1); seq <= 3; seq++ {
		frame := newFrame(t, 30, 40, gocv.MatTypeCV8UC3, seq)

		mask, err := eng.Segment(frame)
		if err != nil {
			t.Fatalf("Segment() error = %v", err)
		}
		if mask.Width() != 4 || mask.Height() != 3 {
			t.Errorf("mask size = %dx%d, want 4x3", mask.Width(), mask.Height())
		}
		if mask.Seq != seq {
			t.Errorf("mask Seq = %d, want %d", mask.Seq, seq)
		}
		if got := mask.Mat.GetUCharAt(1, 1); got != 128 {
			t.Errorf("mask value = %d, want 128", got)
		}
		mask.Close()
	}

	if !eng.Running() {
		t.Error("service should be running after a frame")
	}
	if err := eng.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if eng.Running() {
		t.Error("service should be stopped after Close()")
	}
}

func TestProcessEngine_BadReply(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	t.Setenv(helperEnv, "bad")

	eng, err := NewProcessEngine(helperConfig(), quietLogger())
	if err != nil {
		t.Fatalf("NewProcessEngine() error = %v", err)
	}
	defer eng.Close()

	frame := newFrame(t, 30, 40, gocv.MatTypeCV8UC3, 9)
	_, err = eng.Segment(frame)

	var segErr *Error
	if !errors.As(err, &segErr) || segErr.Seq != 9 || segErr.Engine != EngineProcess {
		t.Fatalf("Segment() error = %v, want process *Error for seq 9", err)
	}
	if eng.Running() {
		t.Error("a service that broke the protocol should be stopped")
	}
}

func TestProcessEngine_IdleShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	t.Setenv(helperEnv, "ok")

	cfg := helperConfig()
	cfg.IdleTimeout = 50 * time.Millisecond

	eng, err := NewProcessEngine(cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewProcessEngine() error = %v", err)
	}
	defer eng.Close()

	mask, err := eng.Segment(newFrame(t, 30, 40, gocv.MatTypeCV8UC3, 1))
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	mask.Close()

	deadline := time.Now().Add(2 * time.Second)
	for eng.Running() {
		if time.Now().After(deadline) {
			t.Fatal("service still running after idle timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReadMask(t *testing.T) {
	reply := func(w, h uint32, data []byte) []byte {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint32(buf[0:4], w)
		binary.BigEndian.PutUint32(buf[4:8], h)
		return append(buf, data...)
	}

	tests := []struct {
		name    string
		input   []byte
		wantW   int
		wantH   int
		wantErr bool
	}{
		{name: "valid", input: reply(2, 2, []byte{0, 64, 128, 255}), wantW: 2, wantH: 2},
		{name: "zero size", input: reply(0, 2, nil), wantErr: true},
		{name: "truncated data", input: reply(2, 2, []byte{1, 2}), wantErr: true},
		{name: "short header", input: []byte{0, 0, 0}, wantErr: true},
		{name: "too large", input: reply(1<<16, 1<<16, nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, data, err := readMask(bytes.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readMask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if w != tt.wantW || h != tt.wantH || len(data) != w*h {
				t.Errorf("readMask() = %dx%d with %d bytes", w, h, len(data))
			}
		})
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte("jpeg")); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	got := buf.Bytes()
	if n := binary.BigEndian.Uint32(got[:4]); n != 4 {
		t.Errorf("length prefix = %d, want 4", n)
	}
	if string(got[4:]) != "jpeg" {
		t.Errorf("payload = %q, want %q", got[4:], "jpeg")
	}
}
