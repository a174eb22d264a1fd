package renderer

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
)

// register records name -> handle. Unnamed resources get a generated name.
// Names are informational; a duplicate replaces the previous entry.
func register(names map[string]containers.Handle, kind, name string, h containers.Handle) string {
	if name == "" {
		name = kind + "-" + uuid.NewString()
	}
	if old, exists := names[name]; exists {
		core.LogWarn("%s with name %q already exists (%s), replacing", kind, name, old)
	}
	names[name] = h
	return name
}

func unregister(names map[string]containers.Handle, name string, h containers.Handle) {
	if names[name] == h {
		delete(names, name)
	}
}

func lookup(names map[string]containers.Handle, name string) (containers.Handle, bool) {
	h, ok := names[name]
	if !ok {
		return containers.InvalidHandle, false
	}
	return h, true
}
