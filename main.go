// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/varibuild/varibuild/cmd/varibuild"

func main() {
	cmd.Execute()
}
