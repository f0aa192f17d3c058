package executor

import (
	"os/exec"
)

type Executor interface {
	Command(name string, args ...string) Command
	LookPath(file string) (string, error)
}

type Command interface {
	SetDir(dir string)
	CombinedOutput() ([]byte, error)
}

var _ Executor = BinaryFileExecutor{}

// BinaryFileExecutor runs real binaries on the host.
type BinaryFileExecutor struct{}

func (BinaryFileExecutor) Command(name string, args ...string) Command {
	return &binaryCommand{cmd: exec.Command(name, args...)}
}

func (BinaryFileExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

type binaryCommand struct {
	cmd *exec.Cmd
}

func (b *binaryCommand) SetDir(dir string) {
	b.cmd.Dir = dir
}

func (b *binaryCommand) CombinedOutput() ([]byte, error) {
	return b.cmd.CombinedOutput()
}
