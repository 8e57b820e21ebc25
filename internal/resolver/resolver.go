package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Kind enumerates resolution outcomes.
type Kind int

const (
	// Novel means nothing in the destination matches; place the file normally.
	Novel Kind = iota
	// Identical means the same content already exists at Decision.At.
	Identical
	// NameConflict means a different file occupies the intended name.
	NameConflict
)

func (k Kind) String() string {
	switch k {
	case Identical:
		return "identical"
	case NameConflict:
		return "name_conflict"
	default:
		return "novel"
	}
}

// Decision is the outcome of Resolve.
type Decision struct {
	Kind Kind
	// At is the existing copy for Identical decisions.
	At string
}

// Index is the subset of the hash index the resolver consults.
type Index interface {
	GetHash(ctx context.Context, path string) (string, error)
	FindByHash(ctx context.Context, hash, scope, exclude string) (string, bool, error)
}

// Resolver compares a source file against a destination tree.
type Resolver struct {
	index Index
	scope string
}

// New returns a Resolver searching the destination tree rooted at scope.
func New(index Index, scope string) *Resolver {
	return &Resolver{index: index, scope: scope}
}

// Resolve classifies source (whose digest is sourceHash) against intendedDest:
//  1. an existing file at intendedDest with equal size and hash is Identical;
//  2. otherwise a hash hit anywhere in the destination tree is Identical;
//  3. otherwise a file at intendedDest is a NameConflict;
//  4. otherwise the source is Novel.
func (r *Resolver) Resolve(ctx context.Context, source, sourceHash, intendedDest string) (Decision, error) {
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return Decision{}, fmt.Errorf("stat source: %w", err)
	}

	occupied := false
	destInfo, err := os.Stat(intendedDest)
	switch {
	case err == nil:
		occupied = true
		if destInfo.Mode().IsRegular() && destInfo.Size() == sourceInfo.Size() {
			destHash, err := r.index.GetHash(ctx, intendedDest)
			if err != nil {
				return Decision{}, err
			}
			if destHash == sourceHash {
				return Decision{Kind: Identical, At: intendedDest}, nil
			}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Decision{}, fmt.Errorf("stat destination: %w", err)
	}

	at, found, err := r.index.FindByHash(ctx, sourceHash, r.scope, source)
	if err != nil {
		return Decision{}, err
	}
	if found {
		return Decision{Kind: Identical, At: at}, nil
	}
	if occupied {
		return Decision{Kind: NameConflict}, nil
	}
	return Decision{Kind: Novel}, nil
}
