// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package fy

// VersionDirective is the (major, minor) pair from a %YAML directive.
type VersionDirective struct {
	Major, Minor int
}

// TagDirective binds a handle ("!", "!!", or "!name!") to a URI prefix. A
// directive is IsDefault when it came from the built-in table rather than
// an explicit %TAG line in the document; overriding a default with a
// different prefix flips DocumentState.TagsExplicit.
type TagDirective struct {
	Handle    string
	Prefix    string
	IsDefault bool
}

// defaultTagDirectives are implicitly present in every document before its
// header is scanned.
func defaultTagDirectives() []TagDirective {
	return []TagDirective{
		{Handle: "!", Prefix: "!", IsDefault: true},
		{Handle: "!!", Prefix: "tag:yaml.org,2002:", IsDefault: true},
	}
}

// DocumentState holds everything scoped to one document: its resolved
// version, its tag directive table, and the implicit/explicit flags §3
// names. It is reference counted because Events expose a pointer to it
// (each DOCUMENT_START/END carries its document's state) and must outlive
// the token that produced it.
type DocumentState struct {
	Version VersionDirective

	Directives []TagDirective

	StartImplicit bool
	EndImplicit   bool

	VersionExplicit bool
	TagsExplicit    bool

	StartMark Mark
	EndMark   Mark

	// versionToken is a non-owning (weak) back-reference to the token
	// that carried the %YAML directive, kept only to attach diagnostics
	// to the right source location. The parser, not the document state,
	// owns the token; this breaks the token<->docstate reference cycle
	// the teacher's C lineage has via raw pointers (see DESIGN.md).
	versionToken *Token

	refs int
}

// newDocumentState returns a fresh state seeded with the two built-in tag
// handles, as if cloned from a configurable default (§4.I).
func newDocumentState(def *DocumentState) *DocumentState {
	ds := &DocumentState{
		Version: VersionDirective{Major: 1, Minor: 2},
	}
	if def != nil {
		ds.Version = def.Version
		ds.Directives = append(ds.Directives, def.Directives...)
	} else {
		ds.Directives = defaultTagDirectives()
	}
	return ds
}

func (ds *DocumentState) retain() *DocumentState {
	if ds != nil {
		ds.refs++
	}
	return ds
}

func (ds *DocumentState) release() {
	if ds == nil {
		return
	}
	ds.refs--
}

// LookupHandle resolves a tag handle against this document's directive
// table, returning (prefix, true) on a hit.
func (ds *DocumentState) LookupHandle(handle string) (string, bool) {
	for _, d := range ds.Directives {
		if d.Handle == handle {
			return d.Prefix, true
		}
	}
	return "", false
}

// appendTagDirective registers handle->prefix, implementing the shadowing
// rule from SPEC_FULL.md: rebinding one of the two built-in handles with a
// *different* prefix flips TagsExplicit; rebinding it with the same prefix
// does not (and is not an error). Binding a non-default handle that is
// already bound returns a SyntaxError.
func (ds *DocumentState) appendTagDirective(d TagDirective, mark Mark) error {
	for i, existing := range ds.Directives {
		if existing.Handle != d.Handle {
			continue
		}
		if existing.IsDefault {
			if existing.Prefix != d.Prefix {
				ds.TagsExplicit = true
			}
			ds.Directives[i] = d
			return nil
		}
		return SyntaxError{
			Module:  ModuleParse,
			Mark:    mark,
			Message: "duplicate %TAG directive for handle " + d.Handle,
		}
	}
	ds.TagsExplicit = true
	ds.Directives = append(ds.Directives, d)
	return nil
}
