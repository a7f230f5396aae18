package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/presenter/internal/capture"
)

const serviceScript = "segmentation_service.py"

// maxMaskBytes bounds the mask size accepted from the service.
const maxMaskBytes = 4096 * 4096

// ProcessEngine implements Engine using an external segmentation service.
//
// Each frame is written to the service's stdin as a 4-byte big-endian length
// followed by a JPEG. The reply on stdout is the mask width and height as
// 4-byte big-endian integers followed by width*height mask bytes.
// The service is started lazily and stopped after it sits idle.
type ProcessEngine struct {
	config    Config
	log       logrus.FieldLogger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewProcessEngine creates a new process engine.
// The service is started lazily on first segmentation.
func NewProcessEngine(config Config, log logrus.FieldLogger) (*ProcessEngine, error) {
	if len(config.Command) == 0 {
		scriptPath := findServiceScript()
		if scriptPath == "" {
			return nil, fmt.Errorf("%s not found", serviceScript)
		}
		config.Command = []string{findPython(), scriptPath}
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &ProcessEngine{
		config: config,
		log:    log.WithField("engine", EngineProcess),
	}, nil
}

// Segment sends frame to the service and returns its mask.
func (e *ProcessEngine) Segment(frame *capture.Frame) (*Mask, error) {
	if err := checkFrame(frame); err != nil {
		return nil, e.fail(frame, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureStarted(); err != nil {
		return nil, e.fail(frame, err)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame.Mat)
	if err != nil {
		return nil, e.fail(frame, fmt.Errorf("encode frame: %w", err))
	}
	defer buf.Close()

	if err := writeFrame(e.stdin, buf.GetBytes()); err != nil {
		e.kill()
		return nil, e.fail(frame, err)
	}

	width, height, data, err := readMask(e.stdout)
	if err != nil {
		e.kill()
		return nil, e.fail(frame, err)
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return nil, e.fail(frame, fmt.Errorf("build mask: %w", err))
	}

	e.resetIdleTimer()

	return NewMask(mat, frame), nil
}

// Close shuts down the service.
func (e *ProcessEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown()
}

// Running reports whether the service process is up.
func (e *ProcessEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *ProcessEngine) fail(frame *capture.Frame, err error) error {
	return &Error{Seq: seqOf(frame), Engine: EngineProcess, Err: err}
}

func (e *ProcessEngine) ensureStarted() error {
	if e.started {
		return nil
	}

	e.cmd = exec.Command(e.config.Command[0], e.config.Command[1:]...)

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	e.cmd.Stderr = os.Stderr

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start segmentation service: %w", err)
	}

	e.stdin = stdin
	e.stdout = bufio.NewReader(stdout)
	e.started = true

	e.log.WithField("command", e.config.Command[0]).Info("segmentation service started")
	return nil
}

func (e *ProcessEngine) shutdown() error {
	if !e.started {
		return nil
	}

	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}

	if e.stdin != nil {
		e.stdin.Close()
	}

	err := e.cmd.Wait()
	e.started = false
	e.cmd = nil
	e.stdin = nil
	e.stdout = nil

	e.log.Debug("segmentation service stopped")
	return err
}

// kill tears down a service that broke the protocol. The next frame starts
// a fresh one.
func (e *ProcessEngine) kill() {
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	if err := e.shutdown(); err != nil {
		e.log.WithError(err).Debug("segmentation service exited")
	}
}

func (e *ProcessEngine) resetIdleTimer() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(e.config.IdleTimeout, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.log.Debug("segmentation service idle")
		e.shutdown()
	})
}

// writeFrame writes one length-prefixed frame.
func writeFrame(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// readMask reads one mask reply.
func readMask(r io.Reader) (width, height int, data []byte, err error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, 0, nil, fmt.Errorf("read mask header: %w", err)
	}

	width = int(binary.BigEndian.Uint32(header[0:4]))
	height = int(binary.BigEndian.Uint32(header[4:8]))
	if width <= 0 || height <= 0 || width*height > maxMaskBytes {
		return 0, 0, nil, fmt.Errorf("invalid mask size %dx%d", width, height)
	}

	data = make([]byte, width*height)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, nil, fmt.Errorf("read mask data: truncated reply")
		}
		return 0, 0, nil, fmt.Errorf("read mask data: %w", err)
	}

	return width, height, data, nil
}

func findServiceScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".presenter", "scripts", serviceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// findPython prefers a virtual environment interpreter over python3.
func findPython() string {
	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(os.Getenv("HOME"), ".presenter", "venv", "bin", "python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return "python3"
}
