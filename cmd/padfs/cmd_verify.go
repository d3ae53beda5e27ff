package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify IMAGE",
		Short: "Check the image header and checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := mountImageFile(args[0])
			if err != nil {
				return err
			}
			defer fs.Close()

			if err := fs.Verify(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d objects\n", fs.NumObjects())
			return nil
		},
	}
}
