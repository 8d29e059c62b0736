package preflight

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// lookPath is a variable to allow mocking in tests
var lookPath = exec.LookPath

// CheckCommand verifies that a host command resolves in PATH.
func CheckCommand(command string) Result {
	name := "Command " + command
	path, err := lookPath(command)
	if err != nil {
		return Result{Name: name, Path: command, Detail: "not found in PATH"}
	}
	return Result{Name: name, Path: path, Passed: true, Detail: path}
}

// CheckSourceRoot verifies that a source root exists, is a directory and
// can be listed.
func CheckSourceRoot(path string) Result {
	const name = "Source root"

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Path: path, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckTargetDir creates the target directory when missing and verifies
// that links can be created in it.
func CheckTargetDir(path string) Result {
	const name = "Target directory"

	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: cannot create: %v)", path, err)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Path: path, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
