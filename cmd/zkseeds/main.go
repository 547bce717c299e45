package main

import (
    "log"

    "github.com/spf13/cobra"

    zkcli "github.com/amirimatin/zkseeds/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "zkseeds",
        Short:         "ZooKeeper seed discovery CLI",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    zkcli.AddAll(root)
    return root
}
