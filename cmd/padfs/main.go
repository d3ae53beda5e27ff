// Command padfs inspects and builds padfs images: read-only,
// hash-indexed filesystem blobs intended for embedding in firmware or
// asset bundles.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/padfs/pkg/padfs"
)

func main() {
	root := &cobra.Command{
		Use:   "padfs",
		Short: "Inspect and build padfs read-only filesystem images",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newLsCmd())
	root.AddCommand(newStatCmd())
	root.AddCommand(newCatCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newPackCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "padfs 0.1.0-dev")
		},
	}
}

// mountImageFile mounts an image from disk for the read-side commands.
func mountImageFile(path string) (*padfs.FS, error) {
	src, err := padfs.FileSource(path)
	if err != nil {
		return nil, err
	}
	return padfs.Mount(src)
}
