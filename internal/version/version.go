package version

// Tag and Commit are stamped at build time, e.g.
//
//	go build -ldflags "-X github.com/Shrey-sa/tree-tracker/internal/version.Tag=v1.2.3 -X github.com/Shrey-sa/tree-tracker/internal/version.Commit=abc1234"
var (
	Tag    = "dev"
	Commit = ""
)

// String reports the build as "tag" or "tag+commit"; "dev" when unstamped.
func String() string {
	tag := Tag
	if tag == "" {
		tag = "dev"
	}
	if Commit == "" {
		return tag
	}
	if len(Commit) > 7 {
		return tag + "+" + Commit[:7]
	}
	return tag + "+" + Commit
}
