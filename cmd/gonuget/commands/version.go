package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-pm/cmd/gonuget/cli"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/output"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/version"
)

// VersionOutput is the result of the version command.
type VersionOutput struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

// WriteText prints the multi-line version banner.
func (v *VersionOutput) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, cli.GetFullVersion()+"\n")
	return err
}

// NewVersionCommand creates the version command
func NewVersionCommand(console *output.Console) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  `Display detailed version information including commit, build date and Go version.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.LoadSettings()
			if err != nil {
				return &UsageError{Err: err}
			}
			return output.Write(console.Out(), s.Output, &VersionOutput{
				Version:   version.Version,
				Commit:    version.Commit,
				Date:      version.Date,
				GoVersion: version.GoVersion,
			})
		},
	}
}
