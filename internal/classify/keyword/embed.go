package keyword

import (
	"embed"
)

//go:embed dictionaries/dictionaries.yaml
var dictionariesFS embed.FS

const embeddedDictPath = "dictionaries/dictionaries.yaml"
