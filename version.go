package tlcache

// Name and Version identify the module and the tlcache command.
const (
	Name    = "tlcache"
	Version = "0.1.0"
)

// Build metadata, set with:
//
//	go build -ldflags "-X github.com/ZaguanLabs/tlcache.GitCommit=$(git rev-parse HEAD) -X github.com/ZaguanLabs/tlcache.BuildDate=$(date -u +%FT%TZ)"
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// FullVersion returns Version with the short commit appended when known,
// e.g. "0.1.0+3f2a9c1".
func FullVersion() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return Version
	}
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return Version + "+" + commit
}
