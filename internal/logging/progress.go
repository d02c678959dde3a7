package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// TransferMeter counts bytes moving through a stream and, on a terminal,
// renders a one-line rate display. It is an io.Writer so it can sit on one
// side of an io.TeeReader or io.MultiWriter.
type TransferMeter struct {
	label string

	mu sync.Mutex

	start        time.Time
	written      int64
	lastRender   time.Time
	nextLog      time.Time
	spinnerFrame int
	finished     bool

	interactive bool
	out         io.Writer
}

// NewTransferMeter renders to stderr when stderr is a terminal. Otherwise it
// logs a line every ten seconds.
func NewTransferMeter(label string) *TransferMeter {
	return newTransferMeter(label, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func newTransferMeter(label string, out io.Writer, interactive bool) *TransferMeter {
	now := time.Now()
	return &TransferMeter{
		label:       label,
		start:       now,
		nextLog:     now.Add(10 * time.Second),
		interactive: interactive,
		out:         out,
	}
}

func (m *TransferMeter) Write(b []byte) (int, error) {
	n := len(b)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return n, nil
	}

	m.written += int64(n)
	m.maybeRenderLocked(false)
	m.maybeLogLocked()
	return n, nil
}

// Written returns the number of bytes counted so far.
func (m *TransferMeter) Written() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// Finish ends the display. err is logged when non-nil. Calls after the
// first are ignored.
func (m *TransferMeter) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return
	}
	m.finished = true
	m.maybeRenderLocked(true)

	elapsed := time.Since(m.start).Round(time.Millisecond).String()
	if err != nil {
		L().Error("transfer failed", "task", m.label, "bytes", HumanBytes(m.written), "elapsed", elapsed, "err", err)
		return
	}
	L().Info("transfer complete", "task", m.label, "bytes", HumanBytes(m.written), "elapsed", elapsed)
}

func (m *TransferMeter) maybeRenderLocked(force bool) {
	if !m.interactive {
		return
	}
	if !force && time.Since(m.lastRender) < 150*time.Millisecond {
		return
	}

	frame := spinnerFrames[m.spinnerFrame%len(spinnerFrames)]
	m.spinnerFrame++
	fmt.Fprintf(m.out, "\r%s %s %s %s/s", frame, m.label, HumanBytes(m.written), HumanBytes(m.rateLocked()))
	if force {
		fmt.Fprint(m.out, "\n")
	}
	m.lastRender = time.Now()
}

func (m *TransferMeter) maybeLogLocked() {
	if m.interactive || time.Now().Before(m.nextLog) {
		return
	}
	L().Info("progress", "task", m.label, "bytes", HumanBytes(m.written), "rate", HumanBytes(m.rateLocked())+"/s")
	m.nextLog = time.Now().Add(10 * time.Second)
}

func (m *TransferMeter) rateLocked() int64 {
	elapsed := time.Since(m.start)
	if elapsed <= 0 {
		return 0
	}
	return int64(float64(m.written) / elapsed.Seconds())
}

// WaitProgress shows a waiting operation against a timeout budget, such as
// waiting for the daemon to release its control socket.
type WaitProgress struct {
	label   string
	timeout time.Duration
	start   time.Time

	mu     sync.Mutex
	status string
	done   chan struct{}
	once   sync.Once

	interactive bool
	out         io.Writer
}

func NewWaitProgress(label string, timeout time.Duration) *WaitProgress {
	w := &WaitProgress{
		label:       label,
		timeout:     timeout,
		start:       time.Now(),
		done:        make(chan struct{}),
		interactive: term.IsTerminal(int(os.Stderr.Fd())),
		out:         os.Stderr,
	}
	go w.loop()
	return w
}

func (w *WaitProgress) loop() {
	ticker := time.NewTicker(700 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.render(false)
		}
	}
}

func (w *WaitProgress) SetStatus(status string) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}

func (w *WaitProgress) Finish() {
	w.stop()
	L().Debug("wait complete", "task", w.label, "elapsed", time.Since(w.start).Round(time.Millisecond).String())
}

func (w *WaitProgress) Fail(err error) {
	w.stop()
	L().Error("wait failed", "task", w.label, "elapsed", time.Since(w.start).Round(time.Millisecond).String(), "err", err)
}

func (w *WaitProgress) stop() {
	w.once.Do(func() { close(w.done) })
	w.render(true)
	if w.interactive {
		fmt.Fprint(w.out, "\n")
	}
}

func (w *WaitProgress) render(force bool) {
	if !w.interactive {
		return
	}

	w.mu.Lock()
	status := strings.TrimSpace(w.status)
	w.mu.Unlock()
	if status == "" {
		status = "waiting"
	}

	elapsed := time.Since(w.start)
	if w.timeout <= 0 {
		fmt.Fprintf(w.out, "\r%s %s %s", spinnerFrames[int(elapsed/time.Second)%len(spinnerFrames)], w.label, status)
		return
	}
	fraction := float64(elapsed) / float64(w.timeout)
	fmt.Fprintf(w.out, "\r%s %s %s/%s %s", w.label, renderBar(fraction, 24), elapsed.Round(time.Second), w.timeout.Round(time.Second), status)
}

func renderBar(fraction float64, width int) string {
	if width < 10 {
		width = 10
	}
	fraction = max(0, min(fraction, 1))

	full := min(int(fraction*float64(width)), width)
	empty := width - full
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", full), strings.Repeat("-", empty), fraction*100)
}

// HumanBytes formats a byte count with binary units.
func HumanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%dB", v)
	}

	div, exp := int64(unit), 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(v)/float64(div), "KMGTPE"[exp])
}
