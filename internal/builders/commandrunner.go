package builders

import (
	"bytes"
	"context"
	"os/exec"
)

// ExecRunner runs commands with os/exec, merging stdout and stderr the way
// the original implementation shells out and scrapes combined output.
type ExecRunner struct {
	Dir string
	Env []string
}

func (r ExecRunner) Run(ctx context.Context, cmd []string) (string, error) {
	if len(cmd) == 0 {
		return "", nil
	}
	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	c.Dir = r.Dir
	if r.Env != nil {
		c.Env = r.Env
	}
	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf
	err := c.Run()
	return buf.String(), err
}
