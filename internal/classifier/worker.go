package classifier

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"syscall"

	"github.com/justestif/moodify/internal/emotion"
	"github.com/justestif/moodify/internal/vision"
)

// maxFrameSize bounds a response frame. Valid frames are 4*NumLabels bytes or
// a short JSON error.
const maxFrameSize = 64 << 10

var (
	// ErrWorkerClosed is returned by Classify after Close.
	ErrWorkerClosed = errors.New("classifier worker closed")
	// ErrWorkerCrashed is returned when the process died or broke the
	// protocol during a call. The next call starts a fresh process.
	ErrWorkerCrashed = errors.New("classifier worker crashed")
	errFrameTooLarge = errors.New("response frame too large")
)

// Worker drives a long-lived model process (typically a Python script holding
// the trained network) over a framed binary protocol:
//
//	request:  [uint32 BE length][TensorSize*TensorSize float32 LE]
//	response: [uint32 BE length][NumLabels float32 LE, label order]
//
// Responses are read from file descriptor 3 of the child so that anything the
// model prints to stdout cannot corrupt the stream. A response that is not
// exactly NumLabels floats is treated as a JSON error object {"error": "..."}.
//
// Calls are serialized. A call that is abandoned mid-exchange, or that finds
// the stream broken, kills the process; the next call starts a new one.
type Worker struct {
	sem     chan struct{} // holds one token while a call owns the process
	spawn   func() (*process, error)
	proc    *process // nil until started or after a kill
	stopped bool
}

// process is one running instance of the model.
type process struct {
	cmd      *exec.Cmd
	stderr   *bytes.Buffer
	stdin    io.WriteCloser
	dataPipe io.ReadCloser
}

// compile-time interface assertion
var _ emotion.Classifier = (*Worker)(nil)

// StartWorker launches the model process. The same command is used to
// restart it after a crash.
func StartWorker(name string, args ...string) (*Worker, error) {
	w := newWorker(func() (*process, error) { return startProcess(name, args...) })
	p, err := w.spawn()
	if err != nil {
		return nil, err
	}
	w.proc = p
	return w, nil
}

func newWorker(spawn func() (*process, error)) *Worker {
	return &Worker{
		sem:   make(chan struct{}, 1),
		spawn: spawn,
	}
}

func startProcess(name string, args ...string) (*process, error) {
	cmd := exec.Command(name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating data pipe: %w", err)
	}
	// The write end appears as FD 3 in the child.
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("starting worker: %w", err)
	}

	// Only the child holds the write end from here on.
	w.Close()

	return &process{
		cmd:      cmd,
		stderr:   stderr,
		stdin:    stdin,
		dataPipe: r,
	}, nil
}

// Classify sends one tensor to the worker and waits for its scores. Waiting
// for an earlier call to finish counts against ctx but leaves the process
// alone.
func (w *Worker) Classify(ctx context.Context, t vision.Tensor) (emotion.Scores, error) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for worker: %w", ctx.Err())
	}
	defer func() { <-w.sem }()

	if w.stopped {
		return nil, ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.proc == nil {
		p, err := w.spawn()
		if err != nil {
			return nil, fmt.Errorf("%w: restarting: %w", ErrWorkerCrashed, err)
		}
		w.proc = p
	}
	p := w.proc

	type result struct {
		scores emotion.Scores
		err    error
	}
	done := make(chan result, 1)
	go func() {
		s, err := p.communicate(t)
		done <- result{scores: s, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && isBrokenStream(r.err) {
			w.kill()
			return nil, fmt.Errorf("%w: %w%s", ErrWorkerCrashed, r.err, p.crashLog())
		}
		return r.scores, r.err
	case <-ctx.Done():
		w.kill()
		<-done
		return nil, fmt.Errorf("worker call abandoned: %w", ctx.Err())
	}
}

// Close stops the worker process. Later calls fail with ErrWorkerClosed.
func (w *Worker) Close() error {
	w.sem <- struct{}{}
	defer func() { <-w.sem }()

	if w.stopped {
		return nil
	}
	w.stopped = true
	if w.proc == nil {
		return nil
	}
	p := w.proc
	w.proc = nil
	p.stdin.Close()
	err := p.wait()
	p.dataPipe.Close()
	return err
}

// kill ends the current process, unblocking any pending read or write.
// Callers hold the semaphore.
func (w *Worker) kill() {
	p := w.proc
	if p == nil {
		return
	}
	w.proc = nil
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.stdin.Close()
	p.dataPipe.Close()
	_ = p.wait()
}

// communicate performs one framed round trip.
func (p *process) communicate(t vision.Tensor) (emotion.Scores, error) {
	payload := make([]byte, 4*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(v))
	}

	if err := binary.Write(p.stdin, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if _, err := p.stdin.Write(payload); err != nil {
		return nil, fmt.Errorf("writing tensor: %w", err)
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(p.dataPipe, header); err != nil {
		return nil, fmt.Errorf("reading response header: %w", err)
	}
	size := binary.BigEndian.Uint32(header)
	if size > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", errFrameTooLarge, size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(p.dataPipe, body); err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return decodeScores(body)
}

// decodeScores parses a response body into scores.
func decodeScores(body []byte) (emotion.Scores, error) {
	if len(body) != 4*emotion.NumLabels {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("model error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("unexpected response length %d", len(body))
	}

	v := make([]float64, emotion.NumLabels)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:])))
	}
	return emotion.FromVector(v)
}

func (p *process) wait() error {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Wait()
}

// crashLog returns captured stderr of the process, if any.
func (p *process) crashLog() string {
	if p.stderr == nil || p.stderr.Len() == 0 {
		return ""
	}
	return "\nworker stderr:\n" + p.stderr.String()
}

func isBrokenStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, errFrameTooLarge)
}
