//go:build !windows

package procly_test

import (
	"fmt"

	"github.com/unterumarmung/procly"
)

func ExampleCommand_Output() {
	out, err := procly.NewCommand("/bin/sh", "-c", "printf hello").Output()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(string(out.Stdout))
	// Output: hello
}

func ExamplePipe() {
	status, err := procly.Pipe(
		procly.NewCommand("/bin/sh", "-c", "exit 3"),
		procly.NewCommand("cat"),
	).Pipefail(true).Status()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	code, _ := status.Code()
	fmt.Println(code)
	// Output: 3
}
