package procly

import (
	"os"
	"sort"
	"strings"
)

// Lowering translates the user-facing builders into fully resolved spawn
// specifications. It performs no system calls beyond reading the process
// environment, so every validation error is reported before a child can
// exist.

type spawnMode uint8

const (
	modeSpawn spawnMode = iota
	modeOutput
)

type stdioSpecKind uint8

const (
	specInherit stdioSpecKind = iota
	specNull
	specPiped
	specFD
	specFile
	// specDupStdout duplicates the resolved stdout onto stderr. It is only
	// ever produced by lowering and only in the stderr slot.
	specDupStdout
)

type stdioSpec struct {
	kind     stdioSpecKind
	fd       int
	path     string
	mode     OpenMode
	perms    os.FileMode
	permsSet bool
}

// spawnSpec is the resolved form a backend consumes: explicit argv, working
// directory, a deterministic envp, one stdio spec per stream, and process
// group placement (0 means none requested).
type spawnSpec struct {
	argv []string
	cwd  string
	envp []string

	stdin  stdioSpec
	stdout stdioSpec
	stderr stdioSpec

	opts         SpawnOptions
	processGroup int
}

// stdioOverride lets the pipeline inject inter-stage descriptors and end
// caps without mutating the user's commands.
type stdioOverride struct {
	stdin  *Stdio
	stdout *Stdio
	stderr *Stdio
}

type stdioTarget uint8

const (
	targetStdin stdioTarget = iota
	targetStdout
	targetStderr
)

func defaultOpenMode(target stdioTarget) OpenMode {
	if target == targetStdin {
		return OpenRead
	}
	return OpenWriteTruncate
}

func resolveStdio(value *Stdio, pipedDefault bool, target stdioTarget) (stdioSpec, error) {
	if value == nil {
		if pipedDefault {
			return stdioSpec{kind: specPiped}, nil
		}
		return stdioSpec{kind: specInherit}, nil
	}

	switch value.kind {
	case stdioInherit:
		return stdioSpec{kind: specInherit}, nil
	case stdioNull:
		return stdioSpec{kind: specNull}, nil
	case stdioPiped:
		return stdioSpec{kind: specPiped}, nil
	case stdioFD:
		if value.fd < 0 {
			return stdioSpec{}, newError(CodeInvalidStdio, "fd")
		}
		return stdioSpec{kind: specFD, fd: value.fd}, nil
	case stdioFile:
		mode := value.mode
		if !value.modeSet {
			mode = defaultOpenMode(target)
		}
		if target == targetStdin {
			if !mode.readable() {
				return stdioSpec{}, newError(CodeInvalidStdio, "file mode")
			}
		} else if !mode.writable() {
			return stdioSpec{}, newError(CodeInvalidStdio, "file mode")
		}
		return stdioSpec{
			kind:     specFile,
			path:     value.path,
			mode:     mode,
			perms:    value.perms,
			permsSet: value.permsSet,
		}, nil
	}
	return stdioSpec{}, newError(CodeInvalidStdio, "stdio")
}

// lowerCommand resolves cmd into a spawnSpec. In output mode unset stdout
// and stderr default to piped. The resulting envp depends only on the
// command's current state and the process environment.
func lowerCommand(cmd *Command, mode spawnMode, override *stdioOverride) (spawnSpec, error) {
	if len(cmd.argv) == 0 {
		return spawnSpec{}, newError(CodeEmptyArgv, "argv")
	}

	spec := spawnSpec{
		argv: append([]string(nil), cmd.argv...),
		cwd:  cmd.cwd,
		opts: cmd.opts,
	}

	envMap := make(map[string]string)
	if cmd.inheritEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			envMap[key] = value
		}
	}
	for key, value := range cmd.envDelta {
		if value == nil {
			delete(envMap, key)
			continue
		}
		envMap[key] = *value
	}

	keys := make([]string, 0, len(envMap))
	for key := range envMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	spec.envp = make([]string, 0, len(keys))
	for _, key := range keys {
		spec.envp = append(spec.envp, key+"="+envMap[key])
	}

	stdinValue := cmd.stdin
	stdoutValue := cmd.stdout
	stderrValue := cmd.stderr
	if override != nil {
		if override.stdin != nil {
			stdinValue = override.stdin
		}
		if override.stdout != nil {
			stdoutValue = override.stdout
		}
		if override.stderr != nil {
			stderrValue = override.stderr
		}
	}

	outputMode := mode == modeOutput

	var err error
	if spec.stdin, err = resolveStdio(stdinValue, false, targetStdin); err != nil {
		return spawnSpec{}, err
	}
	if spec.stdout, err = resolveStdio(stdoutValue, outputMode, targetStdout); err != nil {
		return spawnSpec{}, err
	}
	if spec.stderr, err = resolveStdio(stderrValue, outputMode, targetStderr); err != nil {
		return spawnSpec{}, err
	}

	if spec.opts.MergeStderrIntoStdout {
		spec.stderr = stdioSpec{kind: specDupStdout}
	}

	return spec, nil
}

type pipelineStageSpec struct {
	command       *Command
	mode          spawnMode
	overrides     stdioOverride
	stdinFromPrev bool
	stdoutToNext  bool
}

type pipelineSpec struct {
	stages          []pipelineStageSpec
	pipefail        bool
	newProcessGroup bool
}

// lowerPipeline resolves the pipeline's stage layout: every stage spawns in
// plain mode except the last, which inherits the caller's requested mode,
// and the head and tail accept the pipeline-level stdio caps.
func lowerPipeline(p *Pipeline, mode spawnMode) (pipelineSpec, error) {
	if len(p.stages) == 0 {
		return pipelineSpec{}, newError(CodeInvalidPipeline, "pipeline")
	}

	spec := pipelineSpec{
		pipefail:        p.pipefail,
		newProcessGroup: p.newPgrp,
		stages:          make([]pipelineStageSpec, 0, len(p.stages)),
	}

	last := len(p.stages) - 1
	for index, command := range p.stages {
		stage := pipelineStageSpec{
			command:       command,
			mode:          modeSpawn,
			stdinFromPrev: index > 0,
			stdoutToNext:  index < last,
		}
		if index == last {
			stage.mode = mode
		}
		if index == 0 && p.stdin != nil {
			stage.overrides.stdin = p.stdin
		}
		if index == last {
			if p.stdout != nil {
				stage.overrides.stdout = p.stdout
			}
			if p.stderr != nil {
				stage.overrides.stderr = p.stderr
			}
		}
		spec.stages = append(spec.stages, stage)
	}

	return spec, nil
}
