package discovery

// CommonFiles are fetched for every target before anything is discovered
var CommonFiles = []string{
	"COMMIT_EDITMSG",
	"HEAD",
	"config",
	"description",
	"index",
	"info/exclude",
	"logs/HEAD",
	"objects/info/packs",
	"packed-refs",
}

// RefPaths returns the four ref locations checked for a branch name
func RefPaths(branch string) []string {
	return []string{
		"refs/heads/" + branch,
		"refs/remotes/origin/" + branch,
		"logs/refs/heads/" + branch,
		"logs/refs/remotes/origin/" + branch,
	}
}

// Seeds returns the initial relative paths for one target
func Seeds(branches []string) []string {
	seeds := make([]string, 0, len(CommonFiles)+4*len(branches))
	seeds = append(seeds, CommonFiles...)
	for _, b := range branches {
		seeds = append(seeds, RefPaths(b)...)
	}
	return seeds
}
