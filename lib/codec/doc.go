// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by
// both ends of the roompackd control socket (the daemon's serve loop
// and the roompackctl client).
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same logical request always produces identical bytes. Decoding
// ignores unknown fields for forward compatibility between daemon and
// CLI versions.
package codec
