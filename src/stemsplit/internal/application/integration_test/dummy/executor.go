package dummy

import (
	"path/filepath"
	"sync"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/executor"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

var _ executor.Executor = &Executor{}

type Handler func(args []string) ([]byte, error)

type Call struct {
	Name string
	Args []string
	Dir  string
}

func NewDummyExecutor() *Executor {
	return &Executor{
		Handlers: map[string]Handler{},
		Missing:  map[string]bool{},
	}
}

// Executor dispatches commands by binary base name to in-process handlers
// and records every call.
type Executor struct {
	Handlers map[string]Handler
	Missing  map[string]bool

	mutex sync.Mutex
	calls []Call
}

func (e *Executor) Command(name string, args ...string) executor.Command {
	return &command{
		executor: e,
		name:     name,
		args:     args,
	}
}

func (e *Executor) LookPath(file string) (string, error) {
	if e.Missing[filepath.Base(file)] {
		return "", cerr.Field("file", file).Error("executable file not found in $PATH")
	}

	if filepath.IsAbs(file) {
		return file, nil
	}

	return filepath.Join("/somewhere/bin", file), nil
}

func (e *Executor) Calls() []Call {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return append([]Call(nil), e.calls...)
}

func (e *Executor) CallsTo(name string) []Call {
	var matching []Call
	for _, call := range e.Calls() {
		if filepath.Base(call.Name) == name {
			matching = append(matching, call)
		}
	}

	return matching
}

func (e *Executor) run(c *command) ([]byte, error) {
	e.mutex.Lock()
	e.calls = append(e.calls, Call{Name: c.name, Args: c.args, Dir: c.dir})
	handler, ok := e.Handlers[filepath.Base(c.name)]
	e.mutex.Unlock()

	if !ok {
		return []byte("command not found"), cerr.Field("name", c.name).Error("exit status 127")
	}

	return handler(c.args)
}

type command struct {
	executor *Executor
	name     string
	args     []string
	dir      string
}

func (c *command) SetDir(dir string) {
	c.dir = dir
}

func (c *command) CombinedOutput() ([]byte, error) {
	return c.executor.run(c)
}
