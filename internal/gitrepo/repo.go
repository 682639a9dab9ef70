// Package gitrepo serves site documents from a git repository. Documents
// are JSON files under articles/ and portfolio/ at the tip of main.
package gitrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"blackbox/api/internal/content"
)

const mainBranch = "main"

var ErrInvalidSlug = errors.New("invalid slug")

type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repo is a content.Source backed by a local repository.
type Repo struct {
	dir string
	mu  sync.RWMutex
}

// Open opens dir, initialising an empty repository on main if none exists.
func Open(dir string) (*Repo, error) {
	if _, err := git.PlainOpen(dir); err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open repo: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create repo dir: %w", err)
		}
		repo, err := git.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("init repo: %w", err)
		}
		head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(mainBranch))
		if err := repo.Storer.SetReference(head); err != nil {
			return nil, fmt.Errorf("set HEAD to main: %w", err)
		}
	}
	return &Repo{dir: dir}, nil
}

func variantDir(variant content.Variant) string {
	if variant == content.VariantPortfolio {
		return "portfolio"
	}
	return "articles"
}

func docPath(variant content.Variant, slug string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, `/\`) || slug == "." || slug == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return path.Join(variantDir(variant), slug+".json"), nil
}

// Publish writes doc under its slug and commits it to main.
func (r *Repo) Publish(variant content.Variant, doc content.RawDocument, author, message string) (CommitInfo, error) {
	rel, err := docPath(variant, doc.Slug())
	if err != nil {
		return CommitInfo{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := git.PlainOpen(r.dir)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return CommitInfo{}, fmt.Errorf("marshal document: %w", err)
	}
	abs := filepath.Join(worktree.Filesystem.Root(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return CommitInfo{}, fmt.Errorf("create %s: %w", variantDir(variant), err)
	}
	if err := os.WriteFile(abs, append(payload, '\n'), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write %s: %w", rel, err)
	}
	if _, err := worktree.Add(rel); err != nil {
		return CommitInfo{}, fmt.Errorf("git add %s: %w", rel, err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@content.blkboxlogic.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit document: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists commits on main, newest first.
func (r *Repo) History(limit int) ([]CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	repo, err := git.PlainOpen(r.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(mainBranch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", mainBranch, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

func (r *Repo) FetchCollection(ctx context.Context, variant content.Variant, q content.CollectionQuery) ([]content.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, content.Retrieval(variant, "collection", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	tree, err := r.headTree()
	if err != nil {
		return nil, content.Retrieval(variant, "collection", err)
	}
	docs := make([]content.RawDocument, 0)
	if tree == nil {
		return docs, nil
	}
	sub, err := tree.Tree(variantDir(variant))
	if errors.Is(err, object.ErrDirectoryNotFound) {
		return docs, nil
	}
	if err != nil {
		return nil, content.Retrieval(variant, "collection", err)
	}

	err = sub.Files().ForEach(func(f *object.File) error {
		if !strings.HasSuffix(f.Name, ".json") || strings.Contains(f.Name, "/") {
			return nil
		}
		doc, err := readDocument(f)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, content.Retrieval(variant, "collection", err)
	}

	content.SortDocuments(variant, docs)
	return content.Select(docs, q), nil
}

func (r *Repo) FetchBySlug(ctx context.Context, variant content.Variant, slug string) (content.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, content.Retrieval(variant, "slug", err)
	}
	rel, err := docPath(variant, slug)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", variant, slug, content.ErrNotFound)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tree, err := r.headTree()
	if err != nil {
		return nil, content.Retrieval(variant, "slug", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%s %q: %w", variant, slug, content.ErrNotFound)
	}
	f, err := tree.File(rel)
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, fmt.Errorf("%s %q: %w", variant, slug, content.ErrNotFound)
	}
	if err != nil {
		return nil, content.Retrieval(variant, "slug", err)
	}
	doc, err := readDocument(f)
	if err != nil {
		return nil, content.Retrieval(variant, "slug", err)
	}
	return doc, nil
}

// headTree returns the tree at the tip of main, or nil before the first
// commit.
func (r *Repo) headTree() (*object.Tree, error) {
	repo, err := git.PlainOpen(r.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(mainBranch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", mainBranch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	tree, err := commitObj.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	return tree, nil
}

func readDocument(f *object.File) (content.RawDocument, error) {
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	var doc content.RawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return doc, nil
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "editor"
	}
	return string(out)
}
