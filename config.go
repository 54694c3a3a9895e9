// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// Configuration follows the teacher's functional-options layer
// (options.go): a private config struct, an Option function type that
// mutates it, and With* constructors. See SPEC_FULL.md's AMBIENT STACK
// section.

package fy

import "strings"

// Flag is one bit of the §6 parser flags bit-field.
type Flag uint32

const (
	FlagQuiet Flag = 1 << iota
	FlagParseComments
	FlagDisableAccelerators
	FlagDisableBuffering
	FlagDisableDepthLimit
	FlagDisableMmapOpt
	FlagResolveDocument
	FlagYPathAliases
	FlagSloppyFlowIndentation
	FlagPreferRecursive
	FlagAllowDuplicateKeys
	FlagDisableRecycling
	FlagJSONAuto
	FlagJSONNone
	FlagJSONForce
)

// DefaultVersion selects the %YAML version a document gets when its header
// omits a directive.
type DefaultVersion int

const (
	DefaultVersionAuto DefaultVersion = iota
	DefaultVersion1_1
	DefaultVersion1_2
	DefaultVersion1_3
)

// JSONMode is the resolved (per-input) JSON compatibility mode; FlagJSON*
// is the user's requested policy, Mode is what an individual input
// actually runs in once its filename extension (or a forced flag) is
// taken into account. See input.mode in input.go.
type JSONMode int

const (
	ModeYAML JSONMode = iota
	ModeJSON
)

type config struct {
	flags          Flag
	searchPath     string
	diag           DiagnosticSink
	tabSize        int
	defaultVersion DefaultVersion
	depthLimit     int
	allocatorName  string
}

func defaultConfig() *config {
	return &config{
		depthLimit:     2000,
		defaultVersion: DefaultVersion1_2,
		allocatorName:  "auto",
	}
}

func (c *config) hasFlag(f Flag) bool { return c.flags&f != 0 }

// Option configures a Parser at construction time.
type Option func(*config)

// WithFlags ORs the given flags onto the parser's flag set.
func WithFlags(flags ...Flag) Option {
	return func(c *config) {
		for _, f := range flags {
			c.flags |= f
		}
	}
}

// WithSearchPath sets a colon-separated directory list used to resolve
// %TAG prefixes naming files (out-of-CORE feature, accepted for interface
// compatibility with §6 but unused by the CORE scanner/parser).
func WithSearchPath(path string) Option {
	return func(c *config) { c.searchPath = path }
}

// WithDiagnostic installs a sink that receives every Diagnostic the parser
// produces. With no sink installed, diagnostics are discarded; the parser
// keeps no list of them.
func WithDiagnostic(sink DiagnosticSink) Option {
	return func(c *config) { c.diag = sink }
}

// WithTabSize sets the reader's tabsize; 0 (the default) means "YAML
// rules" (tabs illegal in indentation / simple-key positions).
func WithTabSize(n int) Option {
	return func(c *config) { c.tabSize = n }
}

// WithDefaultVersion sets the version a document assumes when its header
// carries no %YAML directive.
func WithDefaultVersion(v DefaultVersion) Option {
	return func(c *config) { c.defaultVersion = v }
}

// WithDepthLimit overrides the nesting depth at which DepthLimitExceeded is
// raised. A non-positive value disables the limit, equivalent to
// FlagDisableDepthLimit.
func WithDepthLimit(n int) Option {
	return func(c *config) { c.depthLimit = n }
}

// WithAllocator selects the named allocator implementation ("linear",
// "malloc", "mremap", "dedup", or "auto") used for interned scalar text.
// See internal/alloc.
func WithAllocator(name string) Option {
	return func(c *config) { c.allocatorName = name }
}

// Options combines several options into one, applied in order. Later
// options win when they touch the same field, mirroring the teacher's
// Options() combinator.
func Options(opts ...Option) Option {
	return func(c *config) {
		for _, o := range opts {
			if o != nil {
				o(c)
			}
		}
	}
}

// Lenient is a preset that sets FlagAllowDuplicateKeys and
// FlagSloppyFlowIndentation. The parser reads neither flag: it does not
// check mapping keys for duplicates and has no flow-indentation check, so
// Lenient parses exactly as Strict does.
var Lenient = Options(
	WithFlags(FlagAllowDuplicateKeys, FlagSloppyFlowIndentation),
)

// Strict is a preset that keeps every indentation check active. It is the
// parser's behavior with no options at all; it exists so call sites can be
// explicit about intent. Duplicate mapping keys are not rejected.
var Strict = Options()

// JSONCompat forces every input to be scanned in strict JSON mode,
// equivalent to FlagJSONForce.
var JSONCompat = Options(WithFlags(FlagJSONForce))

// modeForName derives the per-input JSON mode from a filename extension,
// honoring FlagJSONForce/FlagJSONNone overrides. See §4.E.
func modeForName(flags Flag, name string) JSONMode {
	switch {
	case flags&FlagJSONForce != 0:
		return ModeJSON
	case flags&FlagJSONNone != 0:
		return ModeYAML
	case strings.HasSuffix(name, ".json"):
		return ModeJSON
	default:
		return ModeYAML
	}
}
