// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"runtime"
	"strings"

	"github.com/graviton-app/graviton/internal/platform"
)

// scrubbedVariables never reach the application: the class path is decided
// by the launch alone.
var scrubbedVariables = []string{"CLASSPATH"}

// applicationEnv returns environ without the scrubbed variables and without
// graviton's own GRAVITON_* settings.
func applicationEnv(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if isScrubbed(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func isScrubbed(name string) bool {
	if runtime.GOOS == platform.Windows {
		name = strings.ToUpper(name)
	}
	if strings.HasPrefix(name, "GRAVITON_") {
		return true
	}
	for _, s := range scrubbedVariables {
		if name == s {
			return true
		}
	}
	return false
}
