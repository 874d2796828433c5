// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/clawdis/webchat/cmd/webchat"

func main() {
	cmd.Execute()
}
