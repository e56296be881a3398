package models

import "strings"

// ListCodec converts between list fields and their single-column text form.
type ListCodec struct {
	split string
	join  string
}

var (
	// PerformersCodec stores performers as "A, B, C".
	PerformersCodec = ListCodec{split: ",", join: ", "}
	// MediaCodec stores media paths as "a.jpg;b.jpg".
	MediaCodec = ListCodec{split: ";", join: ";"}
)

// Decode splits raw text, trims each segment and drops empty ones.
func (c ListCodec) Decode(raw string) []string {
	parts := strings.Split(raw, c.split)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Encode joins items after the same trimming Decode applies.
func (c ListCodec) Encode(items []string) string {
	return strings.Join(c.Clean(items), c.join)
}

// Clean trims items and drops empty ones. Items containing the separator are
// split so that Decode(Encode(x)) == Clean(x).
func (c ListCodec) Clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, c.Decode(item)...)
	}
	return out
}
