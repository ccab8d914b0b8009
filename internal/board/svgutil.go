package board

import "bytes"

// sanitizeSVG normalises style values oksvg fails to parse.
func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	return fixed
}

// tintSVG fills the colour placeholders of a piece template.
func tintSVG(tmpl []byte, fill, stroke string) []byte {
	out := bytes.ReplaceAll(tmpl, []byte("{{fill}}"), []byte(fill))
	return bytes.ReplaceAll(out, []byte("{{stroke}}"), []byte(stroke))
}
