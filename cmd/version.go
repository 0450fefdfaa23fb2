package cmd

import (
	"fmt"
	"io"
)

// Set at build time with -ldflags "-X sitesmith/cmd.version=..."
var version = "<dev>"

func Version(w io.Writer) {
	fmt.Fprintf(w, "sitesmith %s\n", version)
}
