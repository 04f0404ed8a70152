package version

import (
	"encoding/json"
	"log"
	"os"
)

// Version is set at build time with -ldflags "-X .../version.Version=x.y.z".
var Version = ""

type Info struct {
	Version string `json:"version"`
}

// Load prefers the linked-in version and falls back to version.json.
func Load() Info {
	if Version != "" {
		return Info{Version: Version}
	}
	return loadFile("version.json")
}

func loadFile(path string) Info {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[version] could not read %s: %v", path, err)
		}
		return Info{Version: "dev"}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		log.Printf("[version] could not parse %s: %v", path, err)
		return Info{Version: "dev"}
	}
	return info
}
