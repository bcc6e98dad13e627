package crawler

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// fixtureRepo is an exposed .git directory keyed by path relative to .git/
type fixtureRepo struct {
	files  map[string][]byte
	commit plumbing.Hash
	tree   plumbing.Hash
	blobs  []plumbing.Hash
}

func storeObject(t *testing.T, files map[string][]byte, obj *plumbing.MemoryObject) plumbing.Hash {
	t.Helper()
	r, err := obj.Reader()
	require.NoError(t, err)
	var content bytes.Buffer
	_, err = content.ReadFrom(r)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err = fmt.Fprintf(w, "%s %d\x00", obj.Type(), content.Len())
	require.NoError(t, err)
	_, err = w.Write(content.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	h := obj.Hash()
	files["objects/"+h.String()[:2]+"/"+h.String()[2:]] = buf.Bytes()
	return h
}

func blobObject(t *testing.T, files map[string][]byte, content string) plumbing.Hash {
	obj := &plumbing.MemoryObject{}
	obj.SetType(plumbing.BlobObject)
	_, err := obj.Write([]byte(content))
	require.NoError(t, err)
	return storeObject(t, files, obj)
}

// newFixtureRepo builds a one-commit repository with a tree of two blobs and
// every seed file for the "main" branch
func newFixtureRepo(t *testing.T) *fixtureRepo {
	t.Helper()
	files := map[string][]byte{}

	readme := blobObject(t, files, "# demo\n")
	mainGo := blobObject(t, files, "package main\n")

	tree := &object.Tree{Entries: []object.TreeEntry{
		{Name: "README.md", Mode: filemode.Regular, Hash: readme},
		{Name: "main.go", Mode: filemode.Regular, Hash: mainGo},
	}}
	treeObj := &plumbing.MemoryObject{}
	require.NoError(t, tree.Encode(treeObj))
	treeHash := storeObject(t, files, treeObj)

	commitText := "tree " + treeHash.String() + "\n" +
		"author Dev <dev@example.org> 1700000000 +0000\n" +
		"committer Dev <dev@example.org> 1700000000 +0000\n\ninitial\n"
	commitObj := &plumbing.MemoryObject{}
	commitObj.SetType(plumbing.CommitObject)
	_, err := commitObj.Write([]byte(commitText))
	require.NoError(t, err)
	commitHash := storeObject(t, files, commitObj)

	idx := &index.Index{Version: 2, Entries: []*index.Entry{
		{Hash: readme, Name: "README.md", Mode: filemode.Regular, Size: 7},
		{Hash: mainGo, Name: "main.go", Mode: filemode.Regular, Size: 13},
	}}
	var idxBuf bytes.Buffer
	require.NoError(t, index.NewEncoder(&idxBuf).Encode(idx))

	c := commitHash.String()
	zero := strings.Repeat("0", 40)
	reflog := zero + " " + c + " Dev <dev@example.org> 1700000000 +0000\tcommit (initial): initial\n"

	files["COMMIT_EDITMSG"] = []byte("initial\n")
	files["HEAD"] = []byte("ref: refs/heads/main\n")
	files["config"] = []byte("[core]\n\tbare = false\n[branch \"main\"]\n\tremote = origin\n\tmerge = refs/heads/main\n")
	files["description"] = []byte("Unnamed repository\n")
	files["index"] = idxBuf.Bytes()
	files["info/exclude"] = []byte("# git ls-files --others --exclude-from=.git/info/exclude\n")
	files["logs/HEAD"] = []byte(reflog)
	files["objects/info/packs"] = []byte("\n")
	files["packed-refs"] = []byte("# pack-refs with: peeled fully-peeled sorted\n" + c + " refs/remotes/origin/main\n")
	files["refs/heads/main"] = []byte(c + "\n")
	files["refs/remotes/origin/main"] = []byte(c + "\n")
	files["logs/refs/heads/main"] = []byte(reflog)
	files["logs/refs/remotes/origin/main"] = []byte(reflog)

	return &fixtureRepo{
		files:  files,
		commit: commitHash,
		tree:   treeHash,
		blobs:  []plumbing.Hash{readme, mainGo},
	}
}

func objectRel(h plumbing.Hash) string {
	s := h.String()
	return "objects/" + s[:2] + "/" + s[2:]
}
