// Package pnginfo reads generation metadata embedded in images.
//
// Metadata is looked up in two places, in order:
//   - PNG text chunks (tEXt and iTXt), returned as a flat keyword map
//   - a stealth watermark hidden in the least significant bit of the
//     alpha channel, returned as a parsed JSON value
//
// The first source that yields anything wins. Lookup is best effort:
// malformed input produces an absent result, never an error.
//
// Basic usage:
//
//	md := pnginfo.GetImageData(data, nil)
//	switch md.Kind {
//	case pnginfo.KindChunks:
//		fmt.Println(md.Chunks["parameters"])
//	case pnginfo.KindStealth:
//		fmt.Printf("%v\n", md.Stealth)
//	}
//
// The subpackages expose the pieces directly: mux parses and writes PNG
// text chunks, stealth reads and embeds watermarks, and compress
// re-encodes images for upload.
package pnginfo
