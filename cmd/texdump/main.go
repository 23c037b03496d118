package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mdlconv/internal/texture"
)

// dumpTexture writes the image payload of src next to dstDir with the
// extension of the wrapped format, and checks that it decodes.
func dumpTexture(src, dstDir string) error {
	ext := strings.ToLower(filepath.Ext(src))
	if !texture.Supported(ext) {
		return fmt.Errorf("%s: unsupported texture type %q", src, ext)
	}
	payload, err := texture.ReadPayload(src)
	if err != nil {
		return err
	}
	outExt := texture.PayloadExt(ext)
	img, err := texture.Decode(payload, outExt)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	dst := filepath.Join(dstDir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+"_dump"+outExt)
	if err := os.WriteFile(dst, payload, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	b := img.Bounds()
	fmt.Printf("OK  %s -> %s  (%dx%d, %d bytes written)\n", src, dst, b.Dx(), b.Dy(), len(payload))
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: texdump <texture>... ")
		os.Exit(2)
	}

	errors := 0
	for _, src := range os.Args[1:] {
		if err := dumpTexture(src, "."); err != nil {
			fmt.Fprintf(os.Stderr, "ERR %v\n", err)
			errors++
		}
	}
	if errors > 0 {
		fmt.Printf("\nDone with %d error(s).\n", errors)
		os.Exit(1)
	}
	fmt.Println("\nDone. All textures extracted.")
}
