package speculos

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// readyMarker is printed on stderr once the emulator has finished its
// default-configuration setup and the API is accepting requests.
const readyMarker = "launcher: using default app name & version"

// emulatorArgs builds the fixed Speculos argument vector. Extra args are
// inserted before the positional app path.
func emulatorArgs(port int, model DeviceModel, app string, extra []string) []string {
	args := []string{
		"--api-port", strconv.Itoa(port),
		"--apdu-port", "0",
		"-m", model.Slug(),
		"--display", "headless",
	}
	args = append(args, extra...)
	args = append(args, app)
	return args
}

// emuProcess owns one running emulator subprocess, from spawn to kill.
type emuProcess struct {
	cmd    *exec.Cmd
	stderr io.ReadCloser
}

// startEmulator spawns the emulator with stderr captured so the readiness
// marker can be scanned without polluting the caller's output.
func startEmulator(bin string, args ...string) (*emuProcess, error) {
	log.Debug().Str("cmd", fmt.Sprintf("[startEmulator] run cmd: %s %s", bin, strings.Join(args, " "))).Msg("")

	cmd := exec.Command(bin, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %w", ErrProcess, err)
	}
	if err := cmd.Start(); err != nil {
		log.Error().Err(err).Msg("[startEmulator] spawn failed")
		return nil, fmt.Errorf("%w: spawn %s: %w", ErrProcess, bin, err)
	}
	return &emuProcess{cmd: cmd, stderr: stderr}, nil
}

// waitReady blocks until a stderr line containing marker appears. It fails if
// the stream ends first (the process exited before signaling readiness) or if
// timeout elapses. After the marker is seen the rest of the stream is drained
// in the background and discarded so the emulator never blocks on a full pipe.
func (p *emuProcess) waitReady(marker string, timeout time.Duration) error {
	ready := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(p.stderr)
		for scanner.Scan() {
			line := scanner.Text()
			log.Debug().Str("line", line).Msg("[waitReady] emulator stderr")
			if strings.Contains(line, marker) {
				ready <- nil
				_, _ = io.Copy(io.Discard, p.stderr)
				return
			}
		}
		ready <- fmt.Errorf("%w: emulator exited before signaling readiness", ErrProcess)
	}()

	select {
	case err := <-ready:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("%w: no readiness marker after %s", ErrProcess, timeout)
	}
}

// kill terminates the subprocess and reaps it. Best effort: the process may
// already have exited, the outcome is deliberately ignored.
func (p *emuProcess) kill() {
	if p == nil || p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
}
