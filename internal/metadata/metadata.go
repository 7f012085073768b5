// Package metadata validates, generates and verifies container metadata
// tags written with ffmpeg's -metadata flag.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Static errors for metadata operations.
var (
	// ErrInvalidTag is returned when a tag key or value cannot be passed to ffmpeg.
	ErrInvalidTag = errors.New("invalid metadata tag")
	// ErrTagMismatch is returned when probed tags differ from the expected ones.
	ErrTagMismatch = errors.New("metadata mismatch")
)

// Well-known tag keys.
const (
	KeyCreationTime = "creation_time"
	KeyComment      = "comment"
	KeyTitle        = "title"
	KeyEncoder      = "encoder"
)

// Tags maps metadata keys to values.
type Tags map[string]string

// Validate checks that every key is non-empty, contains no '=' and no
// control characters, and that no value contains control characters.
func (t Tags) Validate() error {
	for _, k := range t.Keys() {
		if k == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidTag)
		}
		if strings.ContainsRune(k, '=') {
			return fmt.Errorf("%w: key %q contains '='", ErrInvalidTag, k)
		}
		if hasControl(k) {
			return fmt.Errorf("%w: key %q contains control characters", ErrInvalidTag, k)
		}
		if hasControl(t[k]) {
			return fmt.Errorf("%w: value of %q contains control characters", ErrInvalidTag, k)
		}
	}
	return nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// Keys returns the keys in sorted order.
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Args renders the tags as ffmpeg arguments, sorted by key:
// -metadata k1=v1 -metadata k2=v2.
func (t Tags) Args() []string {
	args := make([]string, 0, 2*len(t))
	for _, k := range t.Keys() {
		args = append(args, "-metadata", k+"="+t[k])
	}
	return args
}

// Merge returns a new Tags with every set applied in order. Later sets win.
func Merge(sets ...Tags) Tags {
	out := Tags{}
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// Generator produces tags for a fresh render.
type Generator struct {
	// Now returns the creation time. Defaults to time.Now.
	Now func() time.Time
	// NewID returns the comment identifier. Defaults to uuid.NewString.
	NewID func() string
	// Title and Encoder are written when non-empty.
	Title   string
	Encoder string
}

// Generate returns creation_time (RFC 3339, UTC), a unique comment and the
// optional title and encoder.
func (g Generator) Generate() Tags {
	now := g.Now
	if now == nil {
		now = time.Now
	}
	newID := g.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	tags := Tags{
		KeyCreationTime: now().UTC().Format(time.RFC3339),
		KeyComment:      newID(),
	}
	if g.Title != "" {
		tags[KeyTitle] = g.Title
	}
	if g.Encoder != "" {
		tags[KeyEncoder] = g.Encoder
	}
	return tags
}

// TagReader reads the container tags of a media file.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (map[string]string, error)
}

// MismatchError lists the expected tags that were missing or different.
type MismatchError struct {
	Path string
	// Missing holds expected keys absent from the file.
	Missing []string
	// Different maps keys to the value found in the file.
	Different map[string]string
}

func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Different) > 0 {
		keys := Tags(e.Different).Keys()
		diffs := make([]string, len(keys))
		for i, k := range keys {
			diffs[i] = fmt.Sprintf("%s=%q", k, e.Different[k])
		}
		parts = append(parts, "different "+strings.Join(diffs, ", "))
	}
	return fmt.Sprintf("%s: %s: %s", ErrTagMismatch, e.Path, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrTagMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrTagMismatch
}

// Verify reads the tags of path and compares them to want. Keys are
// compared case-insensitively. Extra tags in the file are ignored.
func Verify(ctx context.Context, r TagReader, path string, want Tags) error {
	got, err := r.ReadTags(ctx, path)
	if err != nil {
		return fmt.Errorf("read tags: %w", err)
	}
	found := make(map[string]string, len(got))
	for k, v := range got {
		found[strings.ToLower(k)] = v
	}

	mismatch := &MismatchError{Path: path, Different: map[string]string{}}
	for _, k := range want.Keys() {
		v, ok := found[strings.ToLower(k)]
		switch {
		case !ok:
			mismatch.Missing = append(mismatch.Missing, k)
		case v != want[k]:
			mismatch.Different[k] = v
		}
	}
	if len(mismatch.Missing) > 0 || len(mismatch.Different) > 0 {
		return mismatch
	}
	return nil
}
