package version

import (
	"fmt"

	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String describes the build and the SDK API it implements.
func String() string {
	return fmt.Sprintf("%s (sdk %s, api %d, commit %s, built %s)",
		Version, sdk.Version, sdk.APIVersion, GitSHA, BuildTime)
}
