package main

import (
	"github.com/vmware-archive/salt-ci/server/cmd/saltci-tools/commands"
	_ "github.com/vmware-archive/salt-ci/server/cmd/saltci-tools/commands/migrate"
)

func main() {
	commands.Execute()
}
