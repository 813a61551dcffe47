package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
)

// BundlePath is where served pages load the compiled bundle from.
const BundlePath = "/bundle/bundle.js"

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Huly</title>
  </head>
  <body>
    <div id="app"></div>
    <script src="%s"></script>
  </body>
</html>
`

// WriteIndex writes an index.html into distDir that loads the bundle.
func WriteIndex(distDir string) error {
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return err
	}
	page := fmt.Sprintf(indexTemplate, BundlePath)
	return os.WriteFile(filepath.Join(distDir, "index.html"), []byte(page), 0o644)
}
