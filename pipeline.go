package procly

// Pipeline chains commands stdout-to-stdin without a shell. Stages spawn in
// index order; the head's stdin and the tail's stdout and stderr accept
// pipeline-level selections, and every inter-stage pipe is allocated by the
// pipeline itself.
type Pipeline struct {
	stages   []*Command
	pipefail bool
	newPgrp  bool

	stdin  *Stdio
	stdout *Stdio
	stderr *Stdio
}

// Pipe chains the given commands into a pipeline, the Go spelling of
// cmd1 | cmd2 | ....
func Pipe(first *Command, rest ...*Command) *Pipeline {
	stages := make([]*Command, 0, 1+len(rest))
	stages = append(stages, first)
	stages = append(stages, rest...)
	return &Pipeline{stages: stages}
}

// Then appends a further stage, the Go spelling of pipeline | cmd.
func (p *Pipeline) Then(cmd *Command) *Pipeline {
	p.stages = append(p.stages, cmd)
	return p
}

// Pipefail selects the aggregation rule: when enabled, the first
// non-success stage decides the aggregate status; otherwise the tail stage
// does.
func (p *Pipeline) Pipefail(enabled bool) *Pipeline {
	p.pipefail = enabled
	return p
}

// NewProcessGroup places the whole pipeline into one fresh process group
// led by the first stage, so signals reach every member.
func (p *Pipeline) NewProcessGroup(enabled bool) *Pipeline {
	p.newPgrp = enabled
	return p
}

// Stdin selects the head stage's standard input.
func (p *Pipeline) Stdin(value Stdio) *Pipeline {
	v := value
	p.stdin = &v
	return p
}

// Stdout selects the tail stage's standard output.
func (p *Pipeline) Stdout(value Stdio) *Pipeline {
	v := value
	p.stdout = &v
	return p
}

// Stderr selects the tail stage's standard error.
func (p *Pipeline) Stderr(value Stdio) *Pipeline {
	v := value
	p.stderr = &v
	return p
}

// PipelineStatus carries the per-stage exit statuses, aligned with stage
// positions, and the aggregate computed under the pipefail rule.
type PipelineStatus struct {
	Stages    []ExitStatus
	Aggregate ExitStatus
}

// PipelineChild is the handle to a running pipeline. It owns the head's
// stdin writer and the tail's stdout and stderr readers until taken.
type PipelineChild struct {
	spawned         []spawned
	pipefail        bool
	newProcessGroup bool
	pgid            int

	stdin  *PipeWriter
	stdout *PipeReader
	stderr *PipeReader
}

// Spawn launches every stage and returns the pipeline handle.
func (p *Pipeline) Spawn() (*PipelineChild, error) {
	return spawnPipeline(p, modeSpawn)
}

// Status runs the pipeline to completion and returns the aggregate status.
func (p *Pipeline) Status() (ExitStatus, error) {
	child, err := p.Spawn()
	if err != nil {
		return ExitStatus{}, err
	}
	status, err := child.Wait()
	if err != nil {
		return ExitStatus{}, err
	}
	return status.Aggregate, nil
}

// Output runs the pipeline to completion, capturing the tail's stdout and
// stderr, and returns the aggregate status with the captured bytes.
func (p *Pipeline) Output() (Output, error) {
	child, err := spawnPipeline(p, modeOutput)
	if err != nil {
		return Output{}, err
	}

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

	return Output{Status: status.Aggregate, Stdout: drained.Stdout, Stderr: drained.Stderr}, nil
}

func spawnPipeline(p *Pipeline, mode spawnMode) (*PipelineChild, error) {
	spec, err := lowerPipeline(p, mode)
	if err != nil {
		return nil, err
	}

	stageCount := len(spec.stages)

	// Partial failures must not leave survivors reading stdin forever:
	// every stage already started is killed and reaped before the error
	// returns.
	var started []spawned
	var guard fdGuard
	fail := func(err error) (*PipelineChild, error) {
		for i := range started {
			sp := &started[i]
			_ = currentBackend().kill(sp)
			_, _ = currentBackend().wait(sp, nil, 0)
			closeSpawnedFDs(sp)
		}
		guard.closeAll()
		return nil, err
	}

	type pipePair struct {
		readFD, writeFD int
	}
	pipes := make([]pipePair, 0, stageCount-1)
	for i := 0; i+1 < stageCount; i++ {
		readFD, writeFD, err := newPipe()
		if err != nil {
			return fail(err)
		}
		guard.add(readFD)
		guard.add(writeFD)
		pipes = append(pipes, pipePair{readFD: readFD, writeFD: writeFD})
	}

	pgid := 0
	for i := range spec.stages {
		stage := &spec.stages[i]

		overrides := stage.overrides
		if stage.stdinFromPrev {
			s := StdioFD(pipes[i-1].readFD)
			overrides.stdin = &s
		}
		if stage.stdoutToNext {
			s := StdioFD(pipes[i].writeFD)
			overrides.stdout = &s
		}

		stageSpec, err := lowerCommand(stage.command, stage.mode, &overrides)
		if err != nil {
			return fail(err)
		}
		if spec.newProcessGroup {
			if pgid == 0 {
				stageSpec.opts.NewProcessGroup = true
			} else {
				stageSpec.processGroup = pgid
			}
		}

		sp, err := currentBackend().spawn(&stageSpec)
		if err != nil {
			return fail(err)
		}
		if spec.newProcessGroup && pgid == 0 {
			pgid = sp.pgid
		}
		started = append(started, sp)
	}

	// The children own their dup'd ends now; the parent copies of the
	// inter-stage pipes must close or downstream stages never see EOF.
	guard.closeAll()

	child := &PipelineChild{
		spawned:         started,
		pipefail:        spec.pipefail,
		newProcessGroup: spec.newProcessGroup,
		pgid:            pgid,
	}
	first := &child.spawned[0]
	last := &child.spawned[stageCount-1]
	if first.stdinFD >= 0 {
		child.stdin = newPipeWriter(first.stdinFD)
	}
	if last.stdoutFD >= 0 {
		child.stdout = newPipeReader(last.stdoutFD)
	}
	if last.stderrFD >= 0 {
		child.stderr = newPipeReader(last.stderrFD)
	}
	return child, nil
}

func closeSpawnedFDs(sp *spawned) {
	for _, fd := range []int{sp.stdinFD, sp.stdoutFD, sp.stderrFD} {
		if fd >= 0 {
			_ = unixClose(fd)
		}
	}
	sp.stdinFD, sp.stdoutFD, sp.stderrFD = -1, -1, -1
}

// TakeStdin moves the head stage's stdin writer out of the handle.
func (pc *PipelineChild) TakeStdin() *PipeWriter {
	w := pc.stdin
	pc.stdin = nil
	return w
}

// TakeStdout moves the tail stage's stdout reader out of the handle.
func (pc *PipelineChild) TakeStdout() *PipeReader {
	r := pc.stdout
	pc.stdout = nil
	return r
}

// TakeStderr moves the tail stage's stderr reader out of the handle.
func (pc *PipelineChild) TakeStderr() *PipeReader {
	r := pc.stderr
	pc.stderr = nil
	return r
}

// Wait reaps every stage in index order and computes the aggregate status
// under the pipefail rule.
func (pc *PipelineChild) Wait() (PipelineStatus, error) {
	if len(pc.spawned) == 0 {
		return PipelineStatus{}, newError(CodeWaitFailed, "wait")
	}

	stages := make([]ExitStatus, 0, len(pc.spawned))
	for i := range pc.spawned {
		status, err := currentBackend().wait(&pc.spawned[i], nil, 0)
		if err != nil {
			return PipelineStatus{}, err
		}
		stages = append(stages, status)
	}

	result := PipelineStatus{Stages: stages}
	if !pc.pipefail {
		result.Aggregate = stages[len(stages)-1]
		return result, nil
	}
	for _, status := range stages {
		if !status.Success() {
			result.Aggregate = status
			return result, nil
		}
	}
	result.Aggregate = stages[len(stages)-1]
	return result, nil
}

// Terminate sends the soft termination signal to the pipeline: to the group
// leader when the pipeline owns a process group, otherwise to every stage.
func (pc *PipelineChild) Terminate() error {
	return pc.signalAll(func(sp *spawned) error {
		return currentBackend().terminate(sp)
	})
}

// Kill sends the hard termination signal with the same targeting rule as
// Terminate.
func (pc *PipelineChild) Kill() error {
	return pc.signalAll(func(sp *spawned) error {
		return currentBackend().kill(sp)
	})
}

func (pc *PipelineChild) signalAll(send func(*spawned) error) error {
	if len(pc.spawned) == 0 {
		return newError(CodeKillFailed, "signal")
	}
	if pc.newProcessGroup {
		return send(&pc.spawned[0])
	}
	for i := range pc.spawned {
		if err := send(&pc.spawned[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close releases any pipe ends still owned by the handle.
func (pc *PipelineChild) Close() error {
	var first error
	if pc.stdin != nil {
		if err := pc.stdin.Close(); err != nil && first == nil {
			first = err
		}
		pc.stdin = nil
	}
	for _, r := range []**PipeReader{&pc.stdout, &pc.stderr} {
		if *r != nil {
			if err := (*r).Close(); err != nil && first == nil {
				first = err
			}
			*r = nil
		}
	}
	return first
}
