// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package bencode implements the subset of the bencode format needed to
// inspect torrent metadata: a forward-only decoder, a canonical encoder
// (dictionary keys in lexicographic byte order), and helpers to recompute
// the info-hash and extract the payload file list.
//
// The encoder is deliberately canonical rather than byte-preserving: the
// BitTorrent info-hash is defined over the canonical encoding of the info
// dictionary, so re-encoding a decoded dictionary must sort its keys even
// when the source bytes did not.
package bencode

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates the bencode value union.
type Kind int

const (
	KindInteger Kind = iota
	KindBytes
	KindList
	KindDict
)

// Value is a decoded bencode value. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind    Kind
	Integer int64
	Bytes   []byte
	List    []Value
	Dict    map[string]Value
}

// Integer constructs an integer value.
func Integer(v int64) Value { return Value{Kind: KindInteger, Integer: v} }

// Bytes constructs a byte-string value.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// String constructs a byte-string value from a Go string.
func String(s string) Value { return Value{Kind: KindBytes, Bytes: []byte(s)} }

// List constructs a list value.
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }

// Dict constructs a dictionary value.
func Dict(m map[string]Value) Value { return Value{Kind: KindDict, Dict: m} }

// DecodeError reports a malformed or truncated input together with the byte
// offset the decoder had reached.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bencode: %s at offset %d", e.Msg, e.Offset)
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) errf(format string, args ...any) error {
	return &DecodeError{Offset: d.pos, Msg: fmt.Sprintf(format, args...)}
}

// Decode parses a single bencode value from data. Trailing bytes after the
// value are rejected.
func Decode(data []byte) (Value, error) {
	d := &decoder{data: data}
	v, err := d.value()
	if err != nil {
		return Value{}, err
	}
	if d.pos != len(d.data) {
		return Value{}, d.errf("trailing data after value")
	}
	return v, nil
}

func (d *decoder) value() (Value, error) {
	if d.pos >= len(d.data) {
		return Value{}, d.errf("unexpected end of input")
	}

	switch c := d.data[d.pos]; {
	case c == 'i':
		return d.integer()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dict()
	case c >= '0' && c <= '9':
		b, err := d.byteString()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBytes, Bytes: b}, nil
	default:
		return Value{}, d.errf("unexpected byte %q", c)
	}
}

func (d *decoder) integer() (Value, error) {
	start := d.pos
	d.pos++ // consume 'i'
	end := bytes.IndexByte(d.data[d.pos:], 'e')
	if end < 0 {
		d.pos = start
		return Value{}, d.errf("unterminated integer")
	}
	raw := string(d.data[d.pos : d.pos+end])
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{}, d.errf("invalid integer %q", raw)
	}
	d.pos += end + 1
	return Value{Kind: KindInteger, Integer: n}, nil
}

func (d *decoder) byteString() ([]byte, error) {
	colon := bytes.IndexByte(d.data[d.pos:], ':')
	if colon < 0 {
		return nil, d.errf("unterminated string length")
	}
	raw := string(d.data[d.pos : d.pos+colon])
	length, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || length < 0 {
		return nil, d.errf("invalid string length %q", raw)
	}
	d.pos += colon + 1
	if int64(len(d.data)-d.pos) < length {
		return nil, d.errf("string truncated: want %d bytes, have %d", length, len(d.data)-d.pos)
	}
	b := d.data[d.pos : d.pos+int(length)]
	d.pos += int(length)
	return b, nil
}

func (d *decoder) list() (Value, error) {
	d.pos++ // consume 'l'
	var items []Value
	for {
		if d.pos >= len(d.data) {
			return Value{}, d.errf("unterminated list")
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			return Value{Kind: KindList, List: items}, nil
		}
		item, err := d.value()
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
}

func (d *decoder) dict() (Value, error) {
	d.pos++ // consume 'd'
	m := make(map[string]Value)
	for {
		if d.pos >= len(d.data) {
			return Value{}, d.errf("unterminated dictionary")
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			return Value{Kind: KindDict, Dict: m}, nil
		}
		if c := d.data[d.pos]; c < '0' || c > '9' {
			return Value{}, d.errf("dictionary key must be a string, got %q", c)
		}
		key, err := d.byteString()
		if err != nil {
			return Value{}, err
		}
		val, err := d.value()
		if err != nil {
			return Value{}, err
		}
		m[string(key)] = val
	}
}

// Encode serializes v canonically. Dictionary keys are emitted in
// lexicographic byte order regardless of how the value was built.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encode(&buf, v)
	return buf.Bytes()
}

func encode(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindInteger:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(v.Integer, 10))
		buf.WriteByte('e')
	case KindBytes:
		buf.WriteString(strconv.Itoa(len(v.Bytes)))
		buf.WriteByte(':')
		buf.Write(v.Bytes)
	case KindList:
		buf.WriteByte('l')
		for _, item := range v.List {
			encode(buf, item)
		}
		buf.WriteByte('e')
	case KindDict:
		buf.WriteByte('d')
		keys := make([]string, 0, len(v.Dict))
		for k := range v.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encode(buf, String(k))
			encode(buf, v.Dict[k])
		}
		buf.WriteByte('e')
	}
}

// InfoHash decodes torrent metadata and returns the hex-encoded SHA-1 of the
// canonically re-encoded info dictionary. ok is false when the metadata is
// not a dictionary, lacks an info key, or does not decode at all; callers
// treat that as "unknown", not as an error.
func InfoHash(torrent []byte) (string, bool) {
	root, err := Decode(torrent)
	if err != nil || root.Kind != KindDict {
		return "", false
	}
	info, exists := root.Dict["info"]
	if !exists {
		return "", false
	}
	sum := sha1.Sum(Encode(info))
	return hex.EncodeToString(sum[:]), true
}

// FileEntry is one payload file described by torrent metadata.
type FileEntry struct {
	Name string
	Size int64
}

// ExtractFiles returns the payload file list from torrent metadata,
// supporting both single-file mode (info.name + info.length) and multi-file
// mode (info.files, display name = last path segment). ok is false when the
// metadata cannot be interpreted.
func ExtractFiles(torrent []byte) ([]FileEntry, bool) {
	root, err := Decode(torrent)
	if err != nil || root.Kind != KindDict {
		return nil, false
	}
	info, exists := root.Dict["info"]
	if !exists || info.Kind != KindDict {
		return nil, false
	}

	if files, exists := info.Dict["files"]; exists && files.Kind == KindList {
		entries := make([]FileEntry, 0, len(files.List))
		for _, f := range files.List {
			if f.Kind != KindDict {
				return nil, false
			}
			length, exists := f.Dict["length"]
			if !exists || length.Kind != KindInteger {
				return nil, false
			}
			var name string
			if path, exists := f.Dict["path"]; exists && path.Kind == KindList && len(path.List) > 0 {
				last := path.List[len(path.List)-1]
				if last.Kind == KindBytes {
					name = string(last.Bytes)
				}
			}
			entries = append(entries, FileEntry{Name: name, Size: length.Integer})
		}
		return entries, true
	}

	name, hasName := info.Dict["name"]
	length, hasLength := info.Dict["length"]
	if !hasName || !hasLength || name.Kind != KindBytes || length.Kind != KindInteger {
		return nil, false
	}
	return []FileEntry{{Name: string(name.Bytes), Size: length.Integer}}, true
}
