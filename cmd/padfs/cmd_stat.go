package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/padfs/pkg/image"
)

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat IMAGE PATH",
		Short: "Show object metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := mountImageFile(args[0])
			if err != nil {
				return err
			}
			defer fs.Close()

			st, err := fs.Stat(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:        /%s\n", st.Path)
			fmt.Fprintf(out, "type:        %s\n", st.Type)
			fmt.Fprintf(out, "index:       %d\n", st.Index)
			if st.Type != image.TypeFile {
				return nil
			}
			fmt.Fprintf(out, "compression: %s\n", st.Compression)
			fmt.Fprintf(out, "size:        %d\n", st.Size)
			fmt.Fprintf(out, "stored:      %d\n", st.StoredSize)
			fmt.Fprintf(out, "flags:       %s\n", flagString(st.Flags))
			return nil
		},
	}
}

func flagString(f image.Flags) string {
	var parts []string
	if f&image.FlagGzip != 0 {
		parts = append(parts, "gzip")
	}
	if f&image.FlagCache != 0 {
		parts = append(parts, "cache")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
