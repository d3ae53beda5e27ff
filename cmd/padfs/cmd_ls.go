package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/padfs/pkg/image"
)

func newLsCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls IMAGE [PATH]",
		Short: "List a directory in an image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := mountImageFile(args[0])
			if err != nil {
				return err
			}
			defer fs.Close()

			dir := "/"
			if len(args) == 2 {
				dir = args[1]
			}
			out := cmd.OutOrStdout()

			if recursive {
				for i := 0; i < fs.NumObjects(); i++ {
					p, err := fs.PathByIndex(uint16(i))
					if err != nil {
						return err
					}
					st, err := fs.Stat(p)
					if err != nil {
						return err
					}
					if p == "" {
						p = "/"
					}
					if st.Type == image.TypeDir {
						fmt.Fprintf(out, "%-10s %8s  %s\n", st.Type, "", p)
					} else {
						fmt.Fprintf(out, "%-10s %8d  %s\n", st.Compression, st.Size, p)
					}
				}
				return nil
			}

			entries, err := fs.ReadDir(dir)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Type == image.TypeDir {
					fmt.Fprintf(out, "%s/\n", e.Name)
				} else {
					fmt.Fprintf(out, "%s\n", e.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "list every object in the image")
	return cmd
}
