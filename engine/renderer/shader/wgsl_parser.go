package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormats maps WGSL vertex input types to wgpu vertex formats.
var vertexFormats = map[string]wgpu.VertexFormat{
	"f32":       wgpu.VertexFormatFloat32,
	"vec2f":     wgpu.VertexFormatFloat32x2,
	"vec2<f32>": wgpu.VertexFormatFloat32x2,
	"vec3f":     wgpu.VertexFormatFloat32x3,
	"vec3<f32>": wgpu.VertexFormatFloat32x3,
	"vec4f":     wgpu.VertexFormatFloat32x4,
	"vec4<f32>": wgpu.VertexFormatFloat32x4,
	"u32":       wgpu.VertexFormatUint32,
	"i32":       wgpu.VertexFormatSint32,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	locationRegex = regexp.MustCompile(`@location\(\s*(\d+)\s*\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\s*\w+\s*\)`)

	// fieldRegex matches "[attributes] name: type"
	fieldRegex = regexp.MustCompile(`^(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)$`)

	// bindingDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> uniforms: Uniforms;
	bindingDeclRegex = regexp.MustCompile(`@group\(\s*(\d+)\s*\)\s*@binding\(\s*(\d+)\s*\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// entryPoint locates the first function carrying the given stage attribute ("@vertex" or
// "@fragment") and returns its name and raw parameter list.
func entryPoint(source, stage string) (name, params string, ok bool) {
	idx := indexAttribute(source, stage)
	if idx < 0 {
		return "", "", false
	}
	rest := source[idx+len(stage):]

	fn := strings.Index(rest, "fn ")
	if fn < 0 {
		return "", "", false
	}
	rest = strings.TrimSpace(rest[fn+3:])

	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(rest[:open])

	depth := 0
	for i := open; i < len(rest); i++ {
		switch rest[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return name, rest[open+1 : i], true
			}
		}
	}
	return "", "", false
}

// indexAttribute finds stage as a whole attribute, so "@vertex" does not match "@vertex_foo".
func indexAttribute(source, stage string) int {
	from := 0
	for {
		i := strings.Index(source[from:], stage)
		if i < 0 {
			return -1
		}
		end := from + i + len(stage)
		if end >= len(source) || !isIdentByte(source[end]) {
			return from + i
		}
		from = end
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// parseStructs returns every struct declaration keyed by name.
func parseStructs(source string) map[string]parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make(map[string]parsedStruct, len(matches))
	for _, m := range matches {
		structs[m[1]] = parsedStruct{name: m[1], fields: parseFields(m[2])}
	}
	return structs
}

// parseFields parses a comma separated member or parameter list.
func parseFields(body string) []parsedField {
	parts := splitTopLevel(body)
	fields := make([]parsedField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := fieldRegex.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		f := parsedField{
			name:     m[1],
			typeName: strings.TrimSpace(m[2]),
			location: -1,
			builtin:  builtinRegex.MatchString(part),
		}
		if loc := locationRegex.FindStringSubmatch(part); loc != nil {
			f.location, _ = strconv.Atoi(loc[1])
		}
		fields = append(fields, f)
	}
	return fields
}

// parseVertexInputs resolves the @location inputs of a vertex entry point. Parameters may
// carry @location directly or be a struct whose members do.
func parseVertexInputs(params string, structs map[string]parsedStruct) ([]VertexInput, error) {
	var inputs []VertexInput
	add := func(f parsedField) error {
		format, ok := vertexFormats[f.typeName]
		if !ok {
			return fmt.Errorf("vertex input %q has unsupported type %q", f.name, f.typeName)
		}
		inputs = append(inputs, VertexInput{Name: f.name, Location: uint32(f.location), Format: format})
		return nil
	}

	for _, p := range parseFields(params) {
		switch {
		case p.builtin:
			continue
		case p.location >= 0:
			if err := add(p); err != nil {
				return nil, err
			}
		default:
			ps, ok := structs[p.typeName]
			if !ok {
				return nil, fmt.Errorf("vertex parameter %q has no @location and unknown type %q", p.name, p.typeName)
			}
			for _, f := range ps.fields {
				if f.builtin || f.location < 0 {
					continue
				}
				if err := add(f); err != nil {
					return nil, err
				}
			}
		}
	}

	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Location < inputs[j].Location
	})
	return inputs, nil
}

// parseBindings returns every @group/@binding declaration ordered by group then binding,
// with Size resolved from the known struct layouts where possible.
func parseBindings(source string, layouts map[string]typeLayout) []Binding {
	matches := bindingDeclRegex.FindAllStringSubmatch(source, -1)
	bindings := make([]Binding, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.ParseUint(m[1], 10, 32)
		binding, _ := strconv.ParseUint(m[2], 10, 32)
		b := Binding{
			Group:        uint32(group),
			Binding:      uint32(binding),
			AddressSpace: strings.TrimSpace(m[3]),
			Name:         m[4],
			Type:         strings.TrimSpace(m[5]),
		}
		if l, ok := resolveLayout(b.Type, layouts); ok {
			b.Size = l.size
		}
		bindings = append(bindings, b)
	}
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

// splitTopLevel splits s at commas that are not nested in angle brackets or parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
