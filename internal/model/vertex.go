package model

import "fmt"

// Semantic names the meaning of a vertex attribute.
type Semantic int

const (
	SemanticPosition Semantic = iota
	SemanticColor
	SemanticNormal
	SemanticTangent
	SemanticBinormal
	SemanticUV
	SemanticBoneIDs
	SemanticBoneWeights
)

var semanticNames = [...]string{
	SemanticPosition:    "a_position",
	SemanticColor:       "a_color",
	SemanticNormal:      "a_normal",
	SemanticTangent:     "a_tangent",
	SemanticBinormal:    "a_binormal",
	SemanticUV:          "a_uv",
	SemanticBoneIDs:     "a_bonesIds",
	SemanticBoneWeights: "a_bonesWeights",
}

func (s Semantic) String() string {
	if s < 0 || int(s) >= len(semanticNames) {
		return fmt.Sprintf("Semantic(%d)", int(s))
	}
	return semanticNames[s]
}

// ParseSemantic is the inverse of Semantic.String.
func ParseSemantic(name string) (Semantic, error) {
	for i, n := range semanticNames {
		if n == name {
			return Semantic(i), nil
		}
	}
	return 0, fmt.Errorf("model: unknown vertex semantic %q", name)
}

// Format is the storage type of a vertex attribute.
type Format int

const (
	FormatFloat2 Format = iota
	FormatFloat3
	FormatFloat4
	FormatInt4
)

var formatInfo = [...]struct {
	name string
	size int
}{
	FormatFloat2: {"float2", 8},
	FormatFloat3: {"float3", 12},
	FormatFloat4: {"float4", 16},
	FormatInt4:   {"int4", 16},
}

// Size returns the attribute size in bytes.
func (f Format) Size() int {
	if f < 0 || int(f) >= len(formatInfo) {
		return 0
	}
	return formatInfo[f].size
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatInfo) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatInfo[f].name
}

// ParseFormat is the inverse of Format.String.
func ParseFormat(name string) (Format, error) {
	for i, fi := range formatInfo {
		if fi.name == name {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("model: unknown vertex format %q", name)
}

// VertexAttrib is one entry of a vertex declaration. A negative
// ByteOffset means "right after the previous attribute in the same slot".
type VertexAttrib struct {
	BufferSlot int
	Semantic   Semantic
	Format     Format
	ByteOffset int
}

// VertexDecl is the ordered list of attributes of an interleaved buffer.
type VertexDecl []VertexAttrib

// Normalize resolves pending byte offsets in declaration order.
func (d VertexDecl) Normalize() VertexDecl {
	out := make(VertexDecl, len(d))
	next := map[int]int{}
	for i, a := range d {
		if a.ByteOffset < 0 {
			a.ByteOffset = next[a.BufferSlot]
		}
		if end := a.ByteOffset + a.Format.Size(); end > next[a.BufferSlot] {
			next[a.BufferSlot] = end
		}
		out[i] = a
	}
	return out
}

// Stride returns the size of one vertex in the given buffer slot.
func (d VertexDecl) Stride(slot int) int {
	stride := 0
	for _, a := range d {
		if a.BufferSlot != slot {
			continue
		}
		if end := a.ByteOffset + a.Format.Size(); end > stride {
			stride = end
		}
	}
	return stride
}

// Offset returns the byte offset of semantic s, or -1 when absent.
func (d VertexDecl) Offset(s Semantic) int {
	for _, a := range d {
		if a.Semantic == s {
			return a.ByteOffset
		}
	}
	return -1
}
