package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/strandcli/strand/internal/prompt"
)

func welcomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "welcome",
		Short: "View or customize the welcome text",
	}
	cmd.AddCommand(welcomeShowCmd())
	cmd.AddCommand(welcomeSetCmd())
	cmd.AddCommand(welcomeResetCmd())
	return cmd
}

func welcomeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current welcome text",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(prompt.Welcome())
		},
	}
}

func welcomeSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [text]",
		Short: "Set custom welcome text (reads stdin without arguments)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
					os.Exit(1)
				}
				text = string(data)
			}
			if err := prompt.SetWelcome(text); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Welcome text written to %s\n", prompt.WelcomePath())
		},
	}
}

func welcomeResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default welcome text",
		Run: func(cmd *cobra.Command, args []string) {
			if err := prompt.ResetWelcome(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Welcome text reset to default.")
		},
	}
}
