package procly

import (
	"github.com/unterumarmung/procly/internal/iodrain"
)

// SpawnOptions adjust how a child is created.
type SpawnOptions struct {
	// NewProcessGroup places the child in a fresh process group, making it
	// the group leader. Signals sent through the handle then target the
	// whole group.
	NewProcessGroup bool
	// MergeStderrIntoStdout duplicates the resolved stdout onto stderr, so
	// both streams interleave into a single capture. Any stderr selection
	// is ignored.
	MergeStderrIntoStdout bool
}

// Output is the captured completion record of a child.
type Output struct {
	Status ExitStatus
	Stdout []byte
	Stderr []byte
}

// Command builds a single child process invocation. Methods return the
// receiver for chaining; the builder performs no system calls until Spawn,
// Status or Output is invoked. By default the child inherits the parent
// environment and all three standard streams.
type Command struct {
	argv       []string
	cwd        string
	inheritEnv bool
	envDelta   map[string]*string

	stdin  *Stdio
	stdout *Stdio
	stderr *Stdio

	opts SpawnOptions
}

// NewCommand builds a command for the given program and initial arguments.
// The program is argv[0]; no shell is involved at any point.
func NewCommand(program string, args ...string) *Command {
	argv := make([]string, 0, 1+len(args))
	argv = append(argv, program)
	argv = append(argv, args...)
	return &Command{argv: argv, inheritEnv: true}
}

// Arg appends a single argument.
func (c *Command) Arg(value string) *Command {
	c.argv = append(c.argv, value)
	return c
}

// Args appends several arguments.
func (c *Command) Args(values ...string) *Command {
	c.argv = append(c.argv, values...)
	return c
}

// Dir sets the child working directory.
func (c *Command) Dir(path string) *Command {
	c.cwd = path
	return c
}

// Env sets an environment variable for the child, overriding any inherited
// value of the same key.
func (c *Command) Env(key, value string) *Command {
	if c.envDelta == nil {
		c.envDelta = make(map[string]*string)
	}
	v := value
	c.envDelta[key] = &v
	return c
}

// EnvRemove removes an environment variable from the child environment.
func (c *Command) EnvRemove(key string) *Command {
	if c.envDelta == nil {
		c.envDelta = make(map[string]*string)
	}
	c.envDelta[key] = nil
	return c
}

// EnvClear stops the child from inheriting the parent environment. Only
// variables set through Env remain.
func (c *Command) EnvClear() *Command {
	c.inheritEnv = false
	return c
}

// Stdin selects the child's standard input.
func (c *Command) Stdin(value Stdio) *Command {
	v := value
	c.stdin = &v
	return c
}

// Stdout selects the child's standard output.
func (c *Command) Stdout(value Stdio) *Command {
	v := value
	c.stdout = &v
	return c
}

// Stderr selects the child's standard error.
func (c *Command) Stderr(value Stdio) *Command {
	v := value
	c.stderr = &v
	return c
}

// Options sets the spawn options.
func (c *Command) Options(opts SpawnOptions) *Command {
	c.opts = opts
	return c
}

// Spawn launches the child and returns its handle. Unselected streams are
// inherited from the parent.
func (c *Command) Spawn() (*Child, error) {
	spec, err := lowerCommand(c, modeSpawn, nil)
	if err != nil {
		return nil, err
	}
	sp, err := currentBackend().spawn(&spec)
	if err != nil {
		return nil, err
	}
	return newChild(sp), nil
}

// Status runs the child to completion and returns its exit status. Piped
// streams the caller selected are drained and discarded so the child cannot
// wedge on pipe back-pressure.
func (c *Command) Status() (ExitStatus, error) {
	child, err := c.Spawn()
	if err != nil {
		return ExitStatus{}, err
	}

	if stdin := child.TakeStdin(); stdin != nil {
		_ = stdin.Close()
	}

	stdout := child.TakeStdout()
	stderr := child.TakeStderr()
	if stdout != nil || stderr != nil {
		if _, err := drainPipes(stdout, stderr); err != nil {
			return ExitStatus{}, err
		}
		closeReaders(stdout, stderr)
	}

	return child.Wait()
}

// Output runs the child to completion, capturing stdout and stderr. Stdout
// and stderr with no explicit selection default to piped capture, while an
// unselected stdin is inherited; the child's stdin writer, if piped, is
// closed immediately so the child observes end of input.
func (c *Command) Output() (Output, error) {
	spec, err := lowerCommand(c, modeOutput, nil)
	if err != nil {
		return Output{}, err
	}
	sp, err := currentBackend().spawn(&spec)
	if err != nil {
		return Output{}, err
	}
	child := newChild(sp)

	if stdin := child.TakeStdin(); stdin != nil {
		_ = stdin.Close()
	}

	stdout := child.TakeStdout()
	stderr := child.TakeStderr()
	drained, err := drainPipes(stdout, stderr)
	if err != nil {
		return Output{}, err
	}
	closeReaders(stdout, stderr)

	status, err := child.Wait()
	if err != nil {
		return Output{}, err
	}

	return Output{Status: status, Stdout: drained.Stdout, Stderr: drained.Stderr}, nil
}

func drainPipes(stdout, stderr *PipeReader) (iodrain.Result, error) {
	result, err := iodrain.Drain(stdout.Fd(), stderr.Fd())
	if err != nil {
		return result, errnoError(CodeReadFailed, errnoOf(err), "drain")
	}
	return result, nil
}

func closeReaders(readers ...*PipeReader) {
	for _, r := range readers {
		if r != nil {
			_ = r.Close()
		}
	}
}
