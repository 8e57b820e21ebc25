// Package resolver decides what happens to a source file whose content or
// name may already exist in the destination tree.
//
// The decision is one of Identical (the content already lives somewhere in
// the destination), NameConflict (a different file owns the intended name) or
// Novel. The resolver only reads; the mover acts on the decision.
package resolver
