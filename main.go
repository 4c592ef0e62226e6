// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/graviton-app/graviton/cmd/graviton"

func main() {
	cmd.Execute()
}
