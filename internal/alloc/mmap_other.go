// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

// On non-unix platforms (Windows mmap emulation is out of CORE scope per
// spec.md §1), mmap-anon backing is simply unavailable: newArena falls
// back to heap backing, and growArena always reports "can't grow" so
// arenas fall through to the new-arena path.

package alloc

import "errors"

var errMmapUnsupported = errors.New("alloc: mmap-anon backing unsupported on this platform")

func mmapAnon(size int) ([]byte, error)                     { return nil, errMmapUnsupported }
func mremapGrow(old []byte, newSize int) ([]byte, error)    { return nil, errMmapUnsupported }
func munmapArena(mem []byte) error                          { return nil }
func trimArenaTail(mem []byte, usedBytes int)                {}
