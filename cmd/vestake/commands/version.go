package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:   GetVersion(),
		Commit:    GetCommit(),
		BuildDate: BuildDate,
		GoVersion: GetGoVersion(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the vestake version and build information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion()
			if jsonOutput() {
				return json.NewEncoder(os.Stdout).Encode(v)
			}
			fmt.Println(StatusBox("vestake "+v.Version, [][2]string{
				{"Commit", v.Commit},
				{"Build Date", v.BuildDate},
				{"Go Version", v.GoVersion},
				{"OS/Arch", v.Platform},
			}))
			return nil
		},
	}
}
