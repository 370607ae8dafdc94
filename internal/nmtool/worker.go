package nmtool

import (
	"bufio"
	"encoding/json"
	"io"
	"os/exec"
)

// RunWorker is the entry point for the hidden "__nm_worker" subcommand:
// it reads WorkerRequest frames from in until EOF, answers each with a
// WorkerResponse frame on out, and returns when the master closes its
// side of the pipe.
func RunWorker(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		payload, err := ReadFrame(reader)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req WorkerRequest
		resp := WorkerResponse{}
		if err := json.Unmarshal(payload, &req); err != nil {
			resp.Err = err.Error()
		} else {
			names, runErr := BatchCollectNames(ExecRunner{}, req.ToolPrefix, req.Paths)
			if runErr != nil {
				resp.Err = runErr.Error()
			} else {
				resp.Names = names
			}
		}

		encoded, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if err := WriteFrame(out, encoded); err != nil {
			return err
		}
	}
}

// MasterConn drives a spawned "__nm_worker" helper process over its
// stdin/stdout pipes using the same length-prefixed frame protocol.
type MasterConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// StartWorker re-invokes binaryPath with the __nm_worker hidden
// subcommand and wires up its pipes.
func StartWorker(binaryPath string) (*MasterConn, error) {
	cmd := exec.Command(binaryPath, "__nm_worker")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &MasterConn{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}, nil
}

// Collect sends one WorkerRequest and waits for its WorkerResponse.
func (m *MasterConn) Collect(toolPrefix string, paths []string) (map[string][]string, error) {
	payload, err := json.Marshal(WorkerRequest{ToolPrefix: toolPrefix, Paths: paths})
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(m.stdin, payload); err != nil {
		return nil, err
	}

	respPayload, err := ReadFrame(m.stdout)
	if err != nil {
		return nil, err
	}
	var resp WorkerResponse
	if err := json.Unmarshal(respPayload, &resp); err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, &workerError{resp.Err}
	}
	return resp.Names, nil
}

// Close stops the worker process.
func (m *MasterConn) Close() error {
	m.stdin.Close()
	return m.cmd.Wait()
}

type workerError struct{ msg string }

func (e *workerError) Error() string { return "nm worker: " + e.msg }
