package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/format/idxfile"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/gitindex"
	"github.com/quantmind-br/gitripper/internal/utils"
)

const (
	HandlerConfig    = "config"
	HandlerIndex     = "index"
	HandlerPacks     = "packs"
	HandlerPackIndex = "pack-index"
	HandlerPackData  = "pack"
	HandlerObject    = "object"
	HandlerText      = "text"
)

var (
	branchSectionRe = regexp.MustCompile(`\[branch "([^"]+)"\]`)
	packNameRe      = regexp.MustCompile(`pack-[0-9a-f]{40}`)
	looseObjectRe   = regexp.MustCompile(`^objects/[0-9a-f]{2}/[0-9a-f]{38}$`)
	packIndexRe     = regexp.MustCompile(`^objects/pack/pack-[0-9a-f]{40}\.idx$`)
	packDataRe      = regexp.MustCompile(`^objects/pack/pack-[0-9a-f]{40}\.pack$`)
	hashRe          = regexp.MustCompile(`\b[0-9a-f]{40}\b`)
	hashOrRefRe     = regexp.MustCompile(`\b[0-9a-f]{40}\b|refs/\S+`)
)

var refsPrefix = []byte("refs/")

func exactly(path string) func(string) bool {
	return func(rel string) bool { return rel == path }
}

func always(string) bool { return true }

func (e *Engine) defaultHandlers() []Handler {
	return []Handler{
		{Name: HandlerConfig, Match: exactly("config"), Parse: parseConfig},
		{Name: HandlerIndex, Match: exactly("index"), Parse: parseIndex},
		{Name: HandlerPacks, Match: exactly("objects/info/packs"), Parse: parsePacks},
		{Name: HandlerPackIndex, Match: packIndexRe.MatchString, Parse: e.parsePackIndex},
		{Name: HandlerPackData, Match: packDataRe.MatchString, Parse: skipParse, SkipRead: true},
		{Name: HandlerObject, Match: looseObjectRe.MatchString, Parse: e.parseObject},
		{Name: HandlerText, Match: always, Parse: parseText},
	}
}

// parseConfig enqueues the refs of every [branch "name"] section
func parseConfig(_ context.Context, _ domain.Artifact, data []byte, emit EmitFunc) error {
	for _, name := range configBranches(data) {
		for _, ref := range RefPaths(name) {
			emit(ref)
		}
	}
	return nil
}

// configBranches decodes the config with go-git and falls back to a plain
// header scan when the file does not decode
func configBranches(data []byte) []string {
	cfg := config.New()
	if err := config.NewDecoder(bytes.NewReader(data)).Decode(cfg); err == nil {
		var names []string
		for _, sub := range cfg.Section("branch").Subsections {
			if sub.Name != "" {
				names = append(names, sub.Name)
			}
		}
		return names
	}

	var names []string
	for _, m := range branchSectionRe.FindAllSubmatch(data, -1) {
		names = append(names, string(m[1]))
	}
	return names
}

// parseIndex enqueues the loose object of every staged entry
func parseIndex(_ context.Context, a domain.Artifact, data []byte, emit EmitFunc) error {
	idx, err := gitindex.Parse(data)
	if err != nil {
		return domain.NewParseError(a.Path, HandlerIndex, err)
	}
	for _, h := range idx.Hashes() {
		emit(utils.ObjectPath(h.String()))
	}
	return nil
}

// parsePacks enqueues the .idx and .pack of every listed pack
func parsePacks(_ context.Context, _ domain.Artifact, data []byte, emit EmitFunc) error {
	for _, m := range packNameRe.FindAll(data, -1) {
		name := string(m)
		emit("objects/pack/" + name + ".idx")
		emit("objects/pack/" + name + ".pack")
	}
	return nil
}

// parsePackIndex validates a pack index. Packed objects are not addressable
// as loose files, so nothing is enqueued.
func (e *Engine) parsePackIndex(_ context.Context, a domain.Artifact, data []byte, _ EmitFunc) error {
	idx := idxfile.NewMemoryIndex()
	if err := idxfile.NewDecoder(bytes.NewReader(data)).Decode(idx); err != nil {
		return domain.NewParseError(a.Path, HandlerPackIndex, err)
	}
	count, err := idx.Count()
	if err != nil {
		return domain.NewParseError(a.Path, HandlerPackIndex, err)
	}
	e.logger.Debug().Str("url", a.URL).Int64("objects", count).Msg("Pack index")
	return nil
}

func skipParse(context.Context, domain.Artifact, []byte, EmitFunc) error {
	return nil
}

// parseObject inflates a loose object and follows the ids it embeds. Blobs
// are leaves. A file that fails to inflate is removed so a later run fetches
// it again; a cancelled inflate leaves it in place.
func (e *Engine) parseObject(ctx context.Context, a domain.Artifact, data []byte, emit EmitFunc) error {
	raw, err := e.inflater.Inflate(ctx, data)
	if err != nil {
		if !errors.Is(err, domain.ErrCorruptObject) && !errors.Is(err, domain.ErrObjectTooLarge) {
			return err
		}
		if rmErr := utils.RemoveQuietly(a.LocalPath); rmErr != nil {
			e.logger.Warn().Err(rmErr).Str("path", a.LocalPath).Msg("Failed to remove corrupt object")
		}
		return domain.NewParseError(a.Path, HandlerObject, err)
	}

	kind, payload := splitObject(raw)
	if kind == plumbing.BlobObject {
		return nil
	}

	if kind == plumbing.TreeObject {
		for _, h := range treeEntries(payload) {
			emit(utils.ObjectPath(h.String()))
		}
	}

	for _, m := range hashRe.FindAll(payload, -1) {
		if h := plumbing.NewHash(string(m)); !h.IsZero() {
			emit(utils.ObjectPath(string(m)))
		}
	}
	return nil
}

// splitObject separates the "<type> <size>\x00" header from the payload.
// Without a recognizable header the whole buffer is the payload.
func splitObject(raw []byte) (plumbing.ObjectType, []byte) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return plumbing.InvalidObject, raw
	}
	kind, _, ok := bytes.Cut(raw[:nul], []byte(" "))
	if !ok {
		return plumbing.InvalidObject, raw
	}
	t, err := plumbing.ParseObjectType(string(kind))
	if err != nil {
		return plumbing.InvalidObject, raw
	}
	return t, raw[nul+1:]
}

// treeEntries decodes the binary ids of a tree payload. Submodule entries
// point into another repository and are skipped.
func treeEntries(payload []byte) []plumbing.Hash {
	obj := &plumbing.MemoryObject{}
	obj.SetType(plumbing.TreeObject)
	if _, err := obj.Write(payload); err != nil {
		return nil
	}

	var tree object.Tree
	if err := tree.Decode(obj); err != nil {
		return nil
	}

	hashes := make([]plumbing.Hash, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.Mode == filemode.Submodule {
			continue
		}
		hashes = append(hashes, entry.Hash)
	}
	return hashes
}

// parseText scans refs, logs and anything unclassified for object ids and
// ref names
func parseText(_ context.Context, _ domain.Artifact, data []byte, emit EmitFunc) error {
	for _, m := range hashOrRefRe.FindAll(data, -1) {
		token := string(m)
		if !bytes.HasPrefix(m, refsPrefix) {
			if plumbing.NewHash(token).IsZero() {
				continue
			}
			emit(utils.ObjectPath(token))
			continue
		}
		emit(token)
	}
	return nil
}

// String describes a result for logs
func (r Result) String() string {
	return fmt.Sprintf("%s: %d found, %d enqueued, %d rejected", r.Handler, r.Found, r.Enqueued, r.Rejected)
}
