package procly

import (
	"reflect"
	"testing"
)

func envContains(envp []string, entry string) bool {
	for _, e := range envp {
		if e == entry {
			return true
		}
	}
	return false
}

func TestLowerCommandEmptyArgv(t *testing.T) {
	cmd := &Command{inheritEnv: true}
	_, err := lowerCommand(cmd, modeSpawn, nil)
	if err == nil {
		t.Fatal("expected error for empty argv")
	}
	pe, ok := err.(*Error)
	if !ok || pe.Code != CodeEmptyArgv {
		t.Fatalf("expected CodeEmptyArgv, got %v", err)
	}
}

func TestLowerCommandOutputModeDefaultsToPiped(t *testing.T) {
	spec, err := lowerCommand(NewCommand("echo"), modeOutput, nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if spec.stdout.kind != specPiped {
		t.Fatalf("stdout kind = %d, want piped", spec.stdout.kind)
	}
	if spec.stderr.kind != specPiped {
		t.Fatalf("stderr kind = %d, want piped", spec.stderr.kind)
	}
	if spec.stdin.kind != specInherit {
		t.Fatalf("stdin kind = %d, want inherit", spec.stdin.kind)
	}
}

func TestLowerCommandSpawnModeDefaultsToInherit(t *testing.T) {
	spec, err := lowerCommand(NewCommand("echo"), modeSpawn, nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if spec.stdout.kind != specInherit || spec.stderr.kind != specInherit {
		t.Fatal("spawn mode must inherit unset streams")
	}
}

func TestLowerCommandMergeStderrDuplicatesStdout(t *testing.T) {
	cmd := NewCommand("echo").
		Stderr(StdioFile("/tmp/ignored")).
		Options(SpawnOptions{MergeStderrIntoStdout: true})
	spec, err := lowerCommand(cmd, modeOutput, nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if spec.stderr.kind != specDupStdout {
		t.Fatalf("stderr kind = %d, want dup_stdout", spec.stderr.kind)
	}
}

func TestLowerCommandStdioValidation(t *testing.T) {
	cases := []struct {
		name string
		cmd  *Command
	}{
		{"negative fd", NewCommand("echo").Stdin(StdioFD(-1))},
		{"stdin write-only file", NewCommand("echo").Stdin(StdioFileMode("/tmp/f", OpenWriteTruncate))},
		{"stdout read-only file", NewCommand("echo").Stdout(StdioFileMode("/tmp/f", OpenRead))},
		{"stderr read-only file", NewCommand("echo").Stderr(StdioFileMode("/tmp/f", OpenRead))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := lowerCommand(tc.cmd, modeSpawn, nil)
			pe, ok := err.(*Error)
			if !ok || pe.Code != CodeInvalidStdio {
				t.Fatalf("expected CodeInvalidStdio, got %v", err)
			}
		})
	}
}

func TestLowerCommandFileModeDefaultsByDirection(t *testing.T) {
	cmd := NewCommand("echo").
		Stdin(StdioFile("/tmp/in")).
		Stdout(StdioFile("/tmp/out"))
	spec, err := lowerCommand(cmd, modeSpawn, nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if spec.stdin.mode != OpenRead {
		t.Fatalf("stdin mode = %d, want OpenRead", spec.stdin.mode)
	}
	if spec.stdout.mode != OpenWriteTruncate {
		t.Fatalf("stdout mode = %d, want OpenWriteTruncate", spec.stdout.mode)
	}
}

func TestLowerCommandReadWriteFileAcceptedBothDirections(t *testing.T) {
	cmd := NewCommand("echo").
		Stdin(StdioFileMode("/tmp/f", OpenReadWrite)).
		Stdout(StdioFileMode("/tmp/f", OpenReadWrite))
	if _, err := lowerCommand(cmd, modeSpawn, nil); err != nil {
		t.Fatalf("read_write must satisfy both directions: %v", err)
	}
}

func TestLowerCommandEnvClearAndSet(t *testing.T) {
	t.Setenv("PROCLY_TEST_ENV", "one")
	cmd := NewCommand("echo").EnvClear().Env("PROCLY_TEST_ENV", "two")
	spec, err := lowerCommand(cmd, modeSpawn, nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if !envContains(spec.envp, "PROCLY_TEST_ENV=two") {
		t.Fatalf("envp %v missing override", spec.envp)
	}
	if envContains(spec.envp, "PROCLY_TEST_ENV=one") {
		t.Fatalf("envp %v kept inherited value after EnvClear", spec.envp)
	}
}

func TestLowerCommandEnvRemove(t *testing.T) {
	t.Setenv("PROCLY_TEST_ENV_REMOVE", "one")
	cmd := NewCommand("echo").EnvRemove("PROCLY_TEST_ENV_REMOVE")
	spec, err := lowerCommand(cmd, modeSpawn, nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if envContains(spec.envp, "PROCLY_TEST_ENV_REMOVE=one") {
		t.Fatalf("envp %v kept removed variable", spec.envp)
	}
}

func TestLowerCommandEnvpIsSortedAndDeterministic(t *testing.T) {
	cmd := NewCommand("echo").EnvClear().
		Env("B", "2").
		Env("A", "1").
		Env("C", "3")
	first, err := lowerCommand(cmd, modeSpawn, nil)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	want := []string{"A=1", "B=2", "C=3"}
	if !reflect.DeepEqual(first.envp, want) {
		t.Fatalf("envp = %v, want %v", first.envp, want)
	}
	second, err := lowerCommand(cmd, modeSpawn, nil)
	if err != nil {
		t.Fatalf("relower: %v", err)
	}
	if !reflect.DeepEqual(first.envp, second.envp) {
		t.Fatalf("relowering changed envp: %v vs %v", first.envp, second.envp)
	}
}

func TestLowerCommandOverridesWinOverSelections(t *testing.T) {
	cmd := NewCommand("echo").Stdin(StdioNull())
	in := StdioFD(7)
	spec, err := lowerCommand(cmd, modeSpawn, &stdioOverride{stdin: &in})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if spec.stdin.kind != specFD || spec.stdin.fd != 7 {
		t.Fatalf("override lost: %+v", spec.stdin)
	}
}

func TestLowerPipelineEmpty(t *testing.T) {
	_, err := lowerPipeline(&Pipeline{}, modeSpawn)
	pe, ok := err.(*Error)
	if !ok || pe.Code != CodeInvalidPipeline {
		t.Fatalf("expected CodeInvalidPipeline, got %v", err)
	}
}

func TestLowerPipelineStageLayout(t *testing.T) {
	head := StdioNull()
	tail := StdioPiped()
	p := Pipe(NewCommand("a"), NewCommand("b"), NewCommand("c"))
	p.stdin = &head
	p.stdout = &tail
	spec, err := lowerPipeline(p, modeOutput)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if len(spec.stages) != 3 {
		t.Fatalf("stage count = %d", len(spec.stages))
	}
	for i, stage := range spec.stages {
		wantPrev := i > 0
		wantNext := i < 2
		if stage.stdinFromPrev != wantPrev || stage.stdoutToNext != wantNext {
			t.Fatalf("stage %d wiring flags: prev=%v next=%v", i, stage.stdinFromPrev, stage.stdoutToNext)
		}
		wantMode := modeSpawn
		if i == 2 {
			wantMode = modeOutput
		}
		if stage.mode != wantMode {
			t.Fatalf("stage %d mode = %d, want %d", i, stage.mode, wantMode)
		}
	}
	if spec.stages[0].overrides.stdin == nil {
		t.Fatal("head stage lost pipeline stdin override")
	}
	if spec.stages[2].overrides.stdout == nil {
		t.Fatal("tail stage lost pipeline stdout override")
	}
	if spec.stages[1].overrides.stdin != nil || spec.stages[1].overrides.stdout != nil {
		t.Fatal("middle stage must carry no user overrides")
	}
}
