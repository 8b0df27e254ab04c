package swagger

import (
	"embed"
	"io/fs"
)

//go:generate curl -sSfL -o static/redoc.standalone.js https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js

// OpenAPI contains the embedded OpenAPI YAML document.
//
//go:embed openapi.yaml
var OpenAPI []byte

//go:embed static
var static embed.FS

// RedocJS contains the embedded ReDoc standalone JavaScript, empty when the
// bundle has not been vendored into static/.
var RedocJS = readStatic("static/redoc.standalone.js")

func readStatic(name string) []byte {
	b, err := fs.ReadFile(static, name)
	if err != nil {
		return nil
	}
	return b
}
