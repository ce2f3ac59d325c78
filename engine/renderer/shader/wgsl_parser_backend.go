package shader

import (
	"strconv"
	"strings"
)

// primitiveLayouts maps host-shareable WGSL scalar, vector, and matrix types to their size
// and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2f":     {8, 8},
	"vec2<f32>": {8, 8},
	"vec2i":     {8, 8},
	"vec2<i32>": {8, 8},
	"vec2u":     {8, 8},
	"vec2<u32>": {8, 8},
	"vec3f":     {12, 16},
	"vec3<f32>": {12, 16},
	"vec3i":     {12, 16},
	"vec3<i32>": {12, 16},
	"vec3u":     {12, 16},
	"vec3<u32>": {12, 16},
	"vec4f":     {16, 16},
	"vec4<f32>": {16, 16},
	"vec4i":     {16, 16},
	"vec4<i32>": {16, 16},
	"vec4u":     {16, 16},
	"vec4<u32>": {16, 16},

	"mat2x2f":     {16, 8},
	"mat2x2<f32>": {16, 8},
	"mat3x3f":     {48, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4f":     {64, 16},
	"mat4x4<f32>": {64, 16},
}

func roundUp(align, n uint64) uint64 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// resolveLayout returns the layout of a primitive, a known struct, or a fixed-size array of
// either.
func resolveLayout(typeName string, structs map[string]typeLayout) (typeLayout, bool) {
	typeName = strings.TrimSpace(typeName)
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		return l, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return typeLayout{}, false
	}
	elem, count, ok := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
	if !ok {
		return typeLayout{}, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	el, ok := resolveLayout(elem, structs)
	if !ok {
		return typeLayout{}, false
	}
	return typeLayout{size: n * roundUp(el.align, el.size), align: el.align}, true
}

// structLayouts computes the layout of every struct whose members can all be resolved.
// Structs may reference each other in any order.
func structLayouts(structs map[string]parsedStruct) map[string]typeLayout {
	resolved := make(map[string]typeLayout, len(structs))
	for progress := true; progress; {
		progress = false
		for name, ps := range structs {
			if _, done := resolved[name]; done {
				continue
			}
			if l, ok := layoutOf(ps, resolved); ok {
				resolved[name] = l
				progress = true
			}
		}
	}
	return resolved
}

func layoutOf(ps parsedStruct, known map[string]typeLayout) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, f := range ps.fields {
		if f.builtin {
			continue
		}
		l, ok := resolveLayout(f.typeName, known)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(l.align, offset) + l.size
		align = max(align, l.align)
	}
	return typeLayout{size: roundUp(align, offset), align: align}, true
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case i+1 < len(source) && source[i] == '/' && source[i+1] == '*':
			depth++
			i++
		case depth > 0 && i+1 < len(source) && source[i] == '*' && source[i+1] == '/':
			depth--
			i++
		case depth > 0:
		case i+1 < len(source) && source[i] == '/' && source[i+1] == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
