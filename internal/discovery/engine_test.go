package discovery

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/gitindex"
	"github.com/quantmind-br/gitripper/internal/inflate"
)

const (
	testBase = "http://example.org/app/.git/"
	hashA    = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	hashB    = "ce013625030ba8dba906f756967f9e9ca394464a"
	hashC    = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	zeroHash = "0000000000000000000000000000000000000000"
)

type recorder struct {
	urls []string
}

func (r *recorder) Enqueue(url string) {
	r.urls = append(r.urls, url)
}

func newEngine() *Engine {
	return NewEngine(inflate.NewPool(2, 1<<20), nil)
}

// stage writes data where the artifact for rel would live
func stage(t *testing.T, rel string, data []byte) domain.Artifact {
	t.Helper()
	a, err := NewArtifact(testBase+rel, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(a.LocalPath), 0755))
	require.NoError(t, os.WriteFile(a.LocalPath, data, 0644))
	return a
}

func looseObject(t *testing.T, kind string, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(kind + " " + strconv.Itoa(len(payload)) + "\x00"))
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func objectURL(hash string) string {
	return testBase + "objects/" + hash[:2] + "/" + hash[2:]
}

func TestClassify(t *testing.T) {
	e := newEngine()
	tests := []struct {
		rel  string
		want string
	}{
		{"config", HandlerConfig},
		{"index", HandlerIndex},
		{"objects/info/packs", HandlerPacks},
		{"objects/pack/pack-" + hashA + ".idx", HandlerPackIndex},
		{"objects/pack/pack-" + hashA + ".pack", HandlerPackData},
		{"objects/e6/9de29bb2d1d6434b8b29ae775ad8c2e48c5391", HandlerObject},
		{"HEAD", HandlerText},
		{"packed-refs", HandlerText},
		{"logs/HEAD", HandlerText},
		{"refs/heads/config", HandlerText},
		{"objects/e6/short", HandlerText},
		{"config.bak", HandlerText},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Classify(tt.rel).Name)
		})
	}
}

func TestProcess_Config(t *testing.T) {
	cfg := "[core]\n\trepositoryformatversion = 0\n" +
		"[remote \"origin\"]\n\turl = https://example.org/app.git\n" +
		"[branch \"main\"]\n\tremote = origin\n\tmerge = refs/heads/main\n" +
		"[branch \"feature/login\"]\n\tremote = origin\n"
	a := stage(t, "config", []byte(cfg))

	rec := &recorder{}
	res, err := newEngine().Process(context.Background(), a, rec)
	require.NoError(t, err)
	assert.Equal(t, HandlerConfig, res.Handler)
	assert.Equal(t, 8, res.Enqueued)
	assert.Contains(t, rec.urls, testBase+"refs/heads/main")
	assert.Contains(t, rec.urls, testBase+"refs/remotes/origin/main")
	assert.Contains(t, rec.urls, testBase+"logs/refs/heads/feature/login")
	assert.Contains(t, rec.urls, testBase+"logs/refs/remotes/origin/feature/login")
}

func TestConfigBranches(t *testing.T) {
	assert.Equal(t, []string{"dev"}, configBranches([]byte("[branch \"dev\"]\n\tremote = origin\n")))
	assert.Equal(t, []string{"dev"}, configBranches([]byte("orphan = 1\n[branch \"dev\"]\n")))
	assert.Empty(t, configBranches([]byte("[core]\n\tbare = false\n")))
}

func TestProcess_Index(t *testing.T) {
	src := &index.Index{
		Version: 2,
		Entries: []*index.Entry{
			{Hash: plumbing.NewHash(hashA), Name: "a.txt", Mode: filemode.Regular},
			{Hash: plumbing.NewHash(hashB), Name: "b.txt", Mode: filemode.Regular},
			{Hash: plumbing.NewHash(hashA), Name: "c.txt", Mode: filemode.Regular},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, index.NewEncoder(&buf).Encode(src))
	a := stage(t, "index", buf.Bytes())

	rec := &recorder{}
	res, err := newEngine().Process(context.Background(), a, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Enqueued)
	assert.ElementsMatch(t, []string{objectURL(hashA), objectURL(hashB)}, rec.urls)
}

func TestProcess_CorruptIndex(t *testing.T) {
	a := stage(t, "index", []byte("NOPE\x00\x00\x00\x02\x00\x00\x00\x01garbage"))

	rec := &recorder{}
	_, err := newEngine().Process(context.Background(), a, rec)
	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, HandlerIndex, perr.Kind)
	assert.ErrorIs(t, err, gitindex.ErrInvalidSignature)
	assert.Empty(t, rec.urls)
}

func TestProcess_Packs(t *testing.T) {
	a := stage(t, "objects/info/packs", []byte("P pack-"+hashA+".pack\n\n"))

	rec := &recorder{}
	res, err := newEngine().Process(context.Background(), a, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Enqueued)
	assert.Equal(t, []string{
		testBase + "objects/pack/pack-" + hashA + ".idx",
		testBase + "objects/pack/pack-" + hashA + ".pack",
	}, rec.urls)
}

func TestProcess_PackFiles(t *testing.T) {
	e := newEngine()

	t.Run("pack data is not read", func(t *testing.T) {
		a, err := NewArtifact(testBase+"objects/pack/pack-"+hashA+".pack", t.TempDir())
		require.NoError(t, err)
		rec := &recorder{}
		res, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Equal(t, HandlerPackData, res.Handler)
		assert.Empty(t, rec.urls)
	})

	t.Run("corrupt pack index", func(t *testing.T) {
		a := stage(t, "objects/pack/pack-"+hashA+".idx", []byte("not an idx"))
		rec := &recorder{}
		_, err := e.Process(context.Background(), a, rec)
		var perr *domain.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, HandlerPackIndex, perr.Kind)
		assert.Empty(t, rec.urls)
	})
}

func TestProcess_LooseObjects(t *testing.T) {
	e := newEngine()
	rel := func(hash string) string { return "objects/" + hash[:2] + "/" + hash[2:] }

	t.Run("blob is a leaf", func(t *testing.T) {
		a := stage(t, rel(hashA), looseObject(t, "blob", []byte("see "+hashB+"\n")))
		rec := &recorder{}
		res, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Zero(t, res.Enqueued)
		assert.Empty(t, rec.urls)
		assert.FileExists(t, a.LocalPath)
	})

	t.Run("commit follows tree and parent", func(t *testing.T) {
		commit := "tree " + hashB + "\nparent " + hashC + "\nauthor A <a@b> 1 +0000\n\nmsg\n"
		a := stage(t, rel(hashA), looseObject(t, "commit", []byte(commit)))
		rec := &recorder{}
		_, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Equal(t, []string{objectURL(hashB), objectURL(hashC)}, rec.urls)
	})

	t.Run("textual ids in a tree payload", func(t *testing.T) {
		payload := "x " + hashB + " y " + hashC + " " + hashB
		a := stage(t, rel(hashA), looseObject(t, "tree", []byte(payload)))
		rec := &recorder{}
		res, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Enqueued)
		assert.ElementsMatch(t, []string{objectURL(hashB), objectURL(hashC)}, rec.urls)
	})

	t.Run("binary tree entries", func(t *testing.T) {
		tree := &object.Tree{Entries: []object.TreeEntry{
			{Name: "README.md", Mode: filemode.Regular, Hash: plumbing.NewHash(hashB)},
			{Name: "src", Mode: filemode.Dir, Hash: plumbing.NewHash(hashC)},
			{Name: "vendor", Mode: filemode.Submodule, Hash: plumbing.NewHash(hashA)},
		}}
		obj := &plumbing.MemoryObject{}
		require.NoError(t, tree.Encode(obj))
		r, err := obj.Reader()
		require.NoError(t, err)
		var payload bytes.Buffer
		_, err = payload.ReadFrom(r)
		require.NoError(t, err)

		a := stage(t, rel(hashA), looseObject(t, "tree", payload.Bytes()))
		rec := &recorder{}
		_, err = e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{objectURL(hashB), objectURL(hashC)}, rec.urls)
	})

	t.Run("corrupt object is deleted", func(t *testing.T) {
		root := t.TempDir()
		ref, err := NewArtifact(testBase+"index", root)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(ref.LocalPath), 0755))
		require.NoError(t, os.WriteFile(ref.LocalPath, []byte("DIRC"), 0644))

		a, err := NewArtifact(testBase+rel(hashB), root)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(a.LocalPath), 0755))
		require.NoError(t, os.WriteFile(a.LocalPath, []byte("<html>not found</html>"), 0644))

		rec := &recorder{}
		_, err = e.Process(context.Background(), a, rec)
		assert.ErrorIs(t, err, domain.ErrCorruptObject)
		assert.NoFileExists(t, a.LocalPath)
		assert.FileExists(t, ref.LocalPath)
		assert.Empty(t, rec.urls)
	})
}

func TestProcess_CancelledObjectIsKept(t *testing.T) {
	e := NewEngine(inflate.NewPool(1, 0), nil)
	commit := "tree " + hashB + "\nauthor A <a@b> 1 +0000\n\nmsg\n"
	a := stage(t, "objects/"+hashA[:2]+"/"+hashA[2:], looseObject(t, "commit", []byte(commit)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	_, err := e.Process(ctx, a, rec)
	assert.ErrorIs(t, err, context.Canceled)
	var perr *domain.ParseError
	assert.False(t, errors.As(err, &perr))
	assert.FileExists(t, a.LocalPath)
	assert.Empty(t, rec.urls)

	_, err = e.Process(context.Background(), a, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{objectURL(hashB)}, rec.urls)
}

func TestProcess_Text(t *testing.T) {
	e := newEngine()

	t.Run("symbolic HEAD", func(t *testing.T) {
		a := stage(t, "HEAD", []byte("ref: refs/heads/main\n"))
		rec := &recorder{}
		_, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Equal(t, []string{testBase + "refs/heads/main"}, rec.urls)
	})

	t.Run("packed refs", func(t *testing.T) {
		data := "# pack-refs with: peeled fully-peeled sorted\n" +
			hashA + " refs/heads/main\n" +
			hashB + " refs/tags/v1.0\n^" + hashC + "\n"
		a := stage(t, "packed-refs", []byte(data))
		rec := &recorder{}
		_, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			objectURL(hashA), testBase + "refs/heads/main",
			objectURL(hashB), testBase + "refs/tags/v1.0",
			objectURL(hashC),
		}, rec.urls)
	})

	t.Run("reflog skips the zero id", func(t *testing.T) {
		data := zeroHash + " " + hashA + " A <a@b> 1700000000 +0000\tclone: from x\n"
		a := stage(t, "logs/HEAD", []byte(data))
		rec := &recorder{}
		_, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Equal(t, []string{objectURL(hashA)}, rec.urls)
	})

	t.Run("escaping refs are rejected", func(t *testing.T) {
		a := stage(t, "HEAD", []byte("ref: refs/../../../../etc/passwd\n"))
		rec := &recorder{}
		res, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Rejected)
		assert.Empty(t, rec.urls)
	})

	t.Run("resolves against the base not the artifact", func(t *testing.T) {
		a := stage(t, "refs/heads/main", []byte(hashA+"\n"))
		rec := &recorder{}
		_, err := e.Process(context.Background(), a, rec)
		require.NoError(t, err)
		assert.Equal(t, []string{objectURL(hashA)}, rec.urls)
	})
}

func TestProcess_MissingFile(t *testing.T) {
	a, err := NewArtifact(testBase+"HEAD", t.TempDir())
	require.NoError(t, err)

	_, err = newEngine().Process(context.Background(), a, &recorder{})
	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSeeds(t *testing.T) {
	seeds := Seeds([]string{"master", "main", "develop"})
	assert.Len(t, seeds, len(CommonFiles)+12)
	assert.Equal(t, CommonFiles, seeds[:len(CommonFiles)])
	assert.Contains(t, seeds, "logs/refs/remotes/origin/develop")
	assert.Contains(t, seeds, "refs/remotes/origin/master")

	assert.Equal(t, CommonFiles, Seeds(nil))
}

func TestResultString(t *testing.T) {
	r := Result{Handler: HandlerText, Found: 3, Enqueued: 2, Rejected: 1}
	assert.Equal(t, "text: 3 found, 2 enqueued, 1 rejected", r.String())
}
