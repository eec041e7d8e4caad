// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package hfsplus is a read-only B-tree engine and catalog navigation
// layer for Apple HFS and HFS+ filesystem images.
//
// It never mutates the image it reads: volume-header parsing, the
// allocation bitmap, per-file compression codecs, and any rendering of
// forks into a caller-facing file representation live outside this
// package. Callers hand in an [ImageReader] plus the three B-tree seed
// forks (catalog, extents overflow, attributes) obtained from their own
// volume-header parser, and get back a [Filesystem] that answers CNID,
// name, and path lookups plus directory enumeration.
package hfsplus
