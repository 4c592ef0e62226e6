// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"strings"

	"github.com/graviton-app/graviton/internal/platform"
)

// ErrJavaNotFound is returned when no java binary can be located.
var ErrJavaNotFound = errors.New("java not found")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// Tests inject a helper process through it.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// JVM runs applications with a local java binary.
	JVM struct {
		javaHome    string
		jvmArgs     []string
		execCommand ExecCommandFunc
		lookPath    func(string) (string, error)
		logger      *slog.Logger
		spawn       []string
	}

	// JVMOption configures a JVM runtime.
	JVMOption func(*JVM)
)

// WithJavaHome selects the JDK or JRE at home instead of JAVA_HOME or PATH.
func WithJavaHome(home string) JVMOption {
	return func(j *JVM) {
		j.javaHome = home
	}
}

// WithJVMArgs passes extra options to java before the class path.
func WithJVMArgs(args ...string) JVMOption {
	return func(j *JVM) {
		j.jvmArgs = append(j.jvmArgs, args...)
	}
}

// WithHostSpawn runs java through a sandbox escape such as
// "flatpak-spawn --host". Without a configured java home the host's PATH
// resolves java.
func WithHostSpawn(command string, args ...string) JVMOption {
	return func(j *JVM) {
		if command != "" {
			j.spawn = append([]string{command}, args...)
		}
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) JVMOption {
	return func(j *JVM) {
		j.execCommand = fn
	}
}

// WithJVMLogger sets the runtime's logger.
func WithJVMLogger(l *slog.Logger) JVMOption {
	return func(j *JVM) {
		j.logger = l
	}
}

// NewJVM creates a jvm runtime.
func NewJVM(opts ...JVMOption) *JVM {
	j := &JVM{
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name implements Runtime.
func (j *JVM) Name() string { return string(KindJVM) }

// JavaBinary locates java: the configured home, then JAVA_HOME, then PATH.
func (j *JVM) JavaBinary() (string, error) {
	exe := "java"
	if goruntime.GOOS == platform.Windows {
		exe = "java.exe"
	}
	if len(j.spawn) > 0 {
		if j.javaHome == "" {
			return exe, nil
		}
		return filepath.Join(j.javaHome, "bin", exe), nil
	}

	for _, home := range []string{j.javaHome, os.Getenv("JAVA_HOME")} {
		if home == "" {
			continue
		}
		candidate := filepath.Join(home, "bin", exe)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		if home == j.javaHome {
			return "", fmt.Errorf("%w in %s", ErrJavaNotFound, home)
		}
	}

	path, err := j.lookPath("java")
	if err != nil {
		return "", fmt.Errorf("%w: set JAVA_HOME or runtime.java_home: %w", ErrJavaNotFound, err)
	}
	return path, nil
}

// Args returns the java arguments for req.
func (j *JVM) Args(req Request, entry string) []string {
	args := append([]string(nil), j.jvmArgs...)
	args = append(args, "-cp", strings.Join(req.LocalPaths, string(os.PathListSeparator)), entry)
	return append(args, req.Args...)
}

// Start implements Runtime.
func (j *JVM) Start(ctx context.Context, req Request) (Process, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	java, err := j.JavaBinary()
	if err != nil {
		return nil, err
	}
	entry, err := entryPoint(req)
	if err != nil {
		return nil, err
	}

	name, args := java, j.Args(req, entry)
	if len(j.spawn) > 0 {
		name, args = j.spawn[0], slices.Concat(j.spawn[1:], []string{java}, args)
	}
	cmd := j.execCommand(ctx, name, args...)
	cmd.Env = append(applicationEnv(os.Environ()), cmd.Env...)
	cmd.Stdin = req.Stdin
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr

	j.logger.Debug("starting application", "launch", req.ID, "java", java, "main", entry, "classpath", len(req.LocalPaths))
	return startCmd(cmd)
}
